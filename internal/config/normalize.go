package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlex()
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.asset_dir", &c.Paths.AssetDir, defaultAssetDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.backup_dir", &c.Paths.BackupDir, defaultBackupDir},
		{"paths.log_dir", &c.Paths.LogDir, ""},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizePlex() {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	if c.Plex.URL == "" {
		if value, ok := os.LookupEnv(plexURLEnvVar); ok {
			c.Plex.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv(plexTokenEnvVar); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
	c.Plex.FilmsLibrary = strings.TrimSpace(c.Plex.FilmsLibrary)
	if c.Plex.FilmsLibrary == "" {
		c.Plex.FilmsLibrary = defaultFilmsLibrary
	}
	c.Plex.TVLibrary = strings.TrimSpace(c.Plex.TVLibrary)
	if c.Plex.TVLibrary == "" {
		c.Plex.TVLibrary = defaultTVLibrary
	}
	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultPlexTimeout
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Media.ProbeTimeout <= 0 {
		c.Media.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
