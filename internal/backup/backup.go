package backup

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"plexbanner/internal/banner"
	"plexbanner/internal/config"
	"plexbanner/internal/fileutil"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
	"plexbanner/internal/textutil"
)

// SidecarName is the file next to a media file that holds a user-provided
// clean poster.
const SidecarName = "poster_bak.png"

// ErrNoBackup reports that no clean original is available for an item.
var ErrNoBackup = errors.New("no clean backup")

// Ref identifies the item a backup belongs to.
type Ref struct {
	GUID  string
	Title string
	Class banner.Class
}

// Paths are the backup locations of one item.
type Paths struct {
	Original string
	Bannered string
}

// Source records where the clean original came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceSidecar  Source = "sidecar"
	SourceFetched  Source = "fetched"
	SourceExisting Source = "existing"
)

// Result is the outcome of Store.
type Result struct {
	Path   string
	Source Source
}

// Manager owns the backup tree.
type Manager struct {
	root          string
	keepBannered  bool
	onlyWhenClean bool
	logger        *slog.Logger
}

// New returns a manager rooted at root. keepBannered enables SaveBannered;
// onlyWhenClean requires every region to be evaluated as absent before a
// fetched poster is trusted as the original.
func New(root string, keepBannered, onlyWhenClean bool, logger *slog.Logger) *Manager {
	return &Manager{
		root:          root,
		keepBannered:  keepBannered,
		onlyWhenClean: onlyWhenClean,
		logger:        logging.NewComponentLogger(logger, "backup"),
	}
}

// NewFromConfig builds a manager from [paths] and [banners].
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Manager {
	return New(cfg.Paths.BackupDir, cfg.Banners.Backup, cfg.Banners.BackupOnNoBanner, logger)
}

// PathsFor returns the backup paths for ref.
func (m *Manager) PathsFor(ref Ref) Paths {
	group := groupDir(ref.Class)
	name := textutil.SanitizeFileName(ref.Title)
	token := textutil.GUIDToken(ref.GUID)
	file := token + ".png"
	if name != "" {
		file = name + " [" + token + "].png"
	}
	return Paths{
		Original: filepath.Join(m.root, group, file),
		Bannered: filepath.Join(m.root, "bannered_"+group, file),
	}
}

func groupDir(class banner.Class) string {
	switch class {
	case banner.ClassTVEpisode:
		return "episodes"
	case banner.ClassTVSeason:
		return "seasons"
	case banner.ClassThreeD:
		return "3d"
	}
	return "films"
}

// Store secures a clean original for ref and returns where it lives.
//
// In order: a sidecar poster in mediaDir wins; otherwise the fetched poster
// is saved when detection trusts it (no banner present, and with
// onlyWhenClean no region unknown either); otherwise an existing backup at
// existing or at the default path is reused. A trusted poster with unknown
// regions never replaces an existing backup. When none applies the result
// has SourceNone and an empty path.
func (m *Manager) Store(ref Ref, poster image.Image, detection banner.DetectionResult, existing, mediaDir string) (Result, error) {
	paths := m.PathsFor(ref)
	log := m.logger.With(logging.String(logging.FieldItemGUID, ref.GUID))

	if mediaDir != "" {
		sidecar := filepath.Join(mediaDir, SidecarName)
		if fileutil.Exists(sidecar) {
			if err := fileutil.CopyFile(sidecar, paths.Original); err != nil {
				return Result{}, fmt.Errorf("copy sidecar poster: %w", err)
			}
			log.Debug("backup from sidecar", logging.String("path", paths.Original))
			return Result{Path: paths.Original, Source: SourceSidecar}, nil
		}
	}

	found := existingBackup(existing, paths.Original)
	if poster != nil && m.trusts(detection) && (found == "" || detection.Clean()) {
		if err := imagehash.SavePNG(paths.Original, poster); err != nil {
			return Result{}, fmt.Errorf("save backup poster: %w", err)
		}
		log.Debug("backup from fetched poster", logging.String("path", paths.Original))
		return Result{Path: paths.Original, Source: SourceFetched}, nil
	}

	if found != "" {
		log.Debug("reusing existing backup", logging.String("path", found))
		return Result{Path: found, Source: SourceExisting}, nil
	}

	log.Info("no clean backup available",
		logging.String(logging.FieldEventType, "backup_missing"),
		logging.String(logging.FieldImpact, "restore unavailable for this item"),
	)
	return Result{Source: SourceNone}, nil
}

func existingBackup(candidates ...string) string {
	for _, candidate := range candidates {
		if fileutil.Exists(candidate) {
			return candidate
		}
	}
	return ""
}

func (m *Manager) trusts(detection banner.DetectionResult) bool {
	if m.onlyWhenClean {
		return detection.Clean()
	}
	return !detection.AnyPresent()
}

// SaveBannered keeps a copy of the bannered poster when enabled. It returns
// the path written, or "" when bannered copies are disabled.
func (m *Manager) SaveBannered(ref Ref, img image.Image) (string, error) {
	if !m.keepBannered {
		return "", nil
	}
	path := m.PathsFor(ref).Bannered
	if err := imagehash.SavePNG(path, img); err != nil {
		return "", fmt.Errorf("save bannered poster: %w", err)
	}
	return path, nil
}

// LoadOriginal decodes the clean original at path. A missing or empty path
// reports ErrNoBackup.
func LoadOriginal(path string) (image.Image, error) {
	if !fileutil.Exists(path) {
		return nil, fmt.Errorf("%w: %q", ErrNoBackup, path)
	}
	return imagehash.Load(path)
}
