package config

const (
	defaultStateDir         = "~/.local/share/plexbanner"
	defaultAssetDir         = "~/.local/share/plexbanner/assets"
	defaultWorkDir          = "~/.cache/plexbanner/work"
	defaultBackupDir        = "~/.local/share/plexbanner/backup"
	defaultLogDir           = "~/.local/share/plexbanner/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultFilmsLibrary     = "Films"
	defaultTVLibrary        = "TV Shows"
	defaultPlexTimeout      = 30
	defaultChangeCutoff     = 10
	defaultCompareCutoff    = 10
	defaultFFprobeBinary    = "ffprobe"
	defaultProbeTimeout     = 60
	maxHashDistance         = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			AssetDir:  defaultAssetDir,
			WorkDir:   defaultWorkDir,
			BackupDir: defaultBackupDir,
			LogDir:    defaultLogDir,
		},
		Plex: Plex{
			FilmsLibrary:   defaultFilmsLibrary,
			TVLibrary:      defaultTVLibrary,
			TimeoutSeconds: defaultPlexTimeout,
		},
		Banners: Banners{
			Audio:             true,
			HDR:               true,
			Films4K:           true,
			TV4K:              true,
			Backup:            true,
			RestoreFromBackup: true,
		},
		Detection: Detection{
			ChangeCutoff:  defaultChangeCutoff,
			CompareCutoff: defaultCompareCutoff,
		},
		Media: Media{
			FFprobeBinary: defaultFFprobeBinary,
			ProbeTimeout:  defaultProbeTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
