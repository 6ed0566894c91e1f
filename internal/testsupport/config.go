package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"plexbanner/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.AssetDir = filepath.Join(base, "assets")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backup")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Plex.URL = "http://127.0.0.1:32400"
	cfgVal.Plex.Token = "test-token"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPlex points the test config at a Plex server.
func WithPlex(url, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.URL = url
		b.cfg.Plex.Token = token
	}
}

// WithBanners replaces the banner toggles.
func WithBanners(banners config.Banners) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Banners = banners
	}
}

// WithStubbedFFprobe writes an ffprobe stub that prints the given JSON and
// points the config at it.
func WithStubbedFFprobe(output string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		payload := filepath.Join(binDir, "ffprobe.json")
		if err := os.WriteFile(payload, []byte(output), 0o644); err != nil {
			b.t.Fatalf("write ffprobe payload: %v", err)
		}
		target := filepath.Join(binDir, "ffprobe")
		script := []byte("#!/bin/sh\ncat '" + payload + "'\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write ffprobe stub: %v", err)
		}
		b.cfg.Media.ProbeFiles = true
		b.cfg.Media.FFprobeBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
