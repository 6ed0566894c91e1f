package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	AssetDir  string `toml:"asset_dir"`
	WorkDir   string `toml:"work_dir"`
	BackupDir string `toml:"backup_dir"`
	LogDir    string `toml:"log_dir"`
}

// Plex contains media server connection settings.
type Plex struct {
	URL          string `toml:"url"`
	Token        string `toml:"token"`
	FilmsLibrary string `toml:"films_library"`
	TVLibrary    string `toml:"tv_library"`
	// PathPrefix is replaced by LocalPrefix when mapping server file paths to
	// paths readable by this host.
	PathPrefix     string `toml:"path_prefix"`
	LocalPrefix    string `toml:"local_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Banners toggles which banners are added and how originals are kept.
type Banners struct {
	Audio     bool `toml:"audio"`
	HDR       bool `toml:"hdr"`
	Films4K   bool `toml:"films_4k"`
	TV4K      bool `toml:"tv_4k"`
	Mini4K    bool `toml:"mini_4k"`
	Posters3D bool `toml:"posters_3d"`
	Mini3D    bool `toml:"mini_3d"`
	// Backup keeps a copy of every bannered poster next to the original backup.
	Backup bool `toml:"backup"`
	// BackupOnNoBanner backs up a poster only when detection found no banner.
	BackupOnNoBanner  bool `toml:"backup_on_no_banner"`
	RestoreFromBackup bool `toml:"restore_from_backup"`
	// Spoilers blurs episode posters until the episode has been watched.
	Spoilers bool `toml:"spoilers"`
}

// Detection contains hash distance thresholds.
type Detection struct {
	// ChangeCutoff decides whether a fetched poster differs from the stored one.
	ChangeCutoff int `toml:"change_cutoff"`
	// CompareCutoff is the default for the compare command.
	CompareCutoff int `toml:"compare_cutoff"`
	// FilmCutoff and TVCutoff override the built-in region cutoffs when positive.
	FilmCutoff int `toml:"film_cutoff"`
	TVCutoff   int `toml:"tv_cutoff"`
}

// Media contains settings for reading attributes from media files.
type Media struct {
	ProbeFiles    bool   `toml:"probe_files"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	ProbeTimeout  int    `toml:"probe_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for plexbanner.
//
// Configuration sections by subsystem:
//   - Paths: state database, banner assets, scratch, backups, and logs
//   - Plex: media server connection and library names
//   - Banners: feature toggles and backup policy
//   - Detection: hash distance cutoffs
//   - Media: optional ffprobe inspection of media files
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Plex      Plex      `toml:"plex"`
	Banners   Banners   `toml:"banners"`
	Detection Detection `toml:"detection"`
	Media     Media     `toml:"media"`
	Logging   Logging   `toml:"logging"`
}

const (
	defaultConfigPath  = "~/.config/plexbanner/config.toml"
	projectConfigName  = "plexbanner.toml"
	databaseFileName   = "plexbanner.db"
	lockFileName       = "plexbanner.lock"
	plexTokenEnvVar    = "PLEX_TOKEN"
	plexURLEnvVar      = "PLEX_URL"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a processing run writes to.
// The asset directory is only read and must already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.BackupDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the item store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, databaseFileName)
}

// LockPath returns the location of the batch run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Media.FFprobeBinary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// LocalMediaPath maps a file path reported by the media server to a local
// path using the configured prefix replacement.
func (c *Config) LocalMediaPath(serverPath string) string {
	prefix := c.Plex.PathPrefix
	if prefix == "" || !strings.HasPrefix(serverPath, prefix) {
		return serverPath
	}
	return c.Plex.LocalPrefix + strings.TrimPrefix(serverPath, prefix)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
