package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"plexbanner/internal/backup"
	"plexbanner/internal/banner"
	"plexbanner/internal/config"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
	"plexbanner/internal/mediainfo"
	"plexbanner/internal/services"
	"plexbanner/internal/services/plex"
	"plexbanner/internal/store"
)

// MediaServer is the subset of the Plex client the pipeline uses.
type MediaServer interface {
	Item(ctx context.Context, ratingKey string) (plex.Item, error)
	Poster(ctx context.Context, item plex.Item, size image.Point) (image.Image, error)
	UploadPoster(ctx context.Context, ratingKey string, png []byte) error
	AddLabel(ctx context.Context, ratingKey string, kind plex.ItemType, label string) error
	LibraryItems(ctx context.Context, library string, kind plex.ItemType) ([]plex.Item, error)
}

// Status is the per-item outcome of a pipeline call.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusRestored  Status = "restored"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Report describes what happened to one item.
type Report struct {
	RatingKey string
	GUID      string
	Title     string
	Class     banner.Class
	Status    Status
	Actions   []banner.Kind
	Labels    []banner.Label
	Backup    backup.Source
	// Blurred is set when the uploaded poster hides episode artwork.
	Blurred bool
	Err     error
}

const (
	stageFetch   = "fetch"
	stageProbe   = "probe"
	stageDetect  = "detect"
	stageBackup  = "backup"
	stageApply   = "apply"
	stageUpload  = "upload"
	stageLabel   = "label"
	stageRecord  = "record"
	stageRestore = "restore"
)

// Processor runs items through detection, decision and upload.
type Processor struct {
	cfg        *config.Config
	server     MediaServer
	store      *store.Store
	refs       *banner.ReferenceSet
	detector   *banner.Detector
	compositor *banner.Compositor
	backups    *backup.Manager
	prober     mediainfo.Prober
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithProber overrides the media file prober.
func WithProber(p mediainfo.Prober) Option {
	return func(proc *Processor) { proc.prober = p }
}

// New wires a processor. A nil refs selects templates from the configured
// asset directory. Files are probed with ffprobe when media.probe_files is set.
func New(cfg *config.Config, server MediaServer, st *store.Store, refs *banner.ReferenceSet, logger *slog.Logger, opts ...Option) *Processor {
	if refs == nil {
		refs = NewReferenceSet(cfg)
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	p := &Processor{
		cfg:        cfg,
		server:     server,
		store:      st,
		refs:       refs,
		detector:   banner.NewDetector(refs, logger),
		compositor: banner.NewCompositor(refs),
		backups:    backup.NewFromConfig(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
	if cfg.Media.ProbeFiles {
		p.prober = mediainfo.FFprobe{
			Binary:  cfg.FFprobeBinary(),
			Timeout: time.Duration(cfg.Media.ProbeTimeout) * time.Second,
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one item. The returned error is also recorded on the report;
// callers classify it with services.Classify.
func (p *Processor) Process(ctx context.Context, ratingKey string) (Report, error) {
	report := Report{RatingKey: ratingKey}
	err := p.process(ctx, ratingKey, &report)
	if err != nil {
		report.Err = err
		report.Status = StatusFailed
		if services.Classify(err) == services.OutcomeSkipped {
			report.Status = StatusSkipped
		}
		p.recordFailure(ctx, report, err)
	}
	return report, err
}

func (p *Processor) process(ctx context.Context, ratingKey string, report *Report) error {
	fetchCtx := services.WithStage(ctx, stageFetch)
	item, err := p.server.Item(fetchCtx, ratingKey)
	if err != nil {
		return err
	}
	report.GUID = item.GUID
	report.Title = item.DisplayTitle()
	ctx = services.WithItemGUID(ctx, item.GUID)
	log := logging.WithContext(ctx, p.logger)

	class, ok := item.Class()
	if !ok {
		return services.Wrap(services.ErrValidation, stageFetch, "classify", fmt.Sprintf("unsupported item type %q", item.Type), nil)
	}
	attrs := p.attributes(ctx, item)
	if class == banner.ClassFilmWide && attrs.ThreeD && p.cfg.Banners.Posters3D {
		class = banner.ClassThreeD
	}
	report.Class = class
	spec, err := p.refs.Spec(class)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageDetect, "catalog", "", err)
	}

	record, err := p.store.GetByGUID(ctx, item.GUID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageRecord, "load", "", err)
	}

	poster, err := p.server.Poster(fetchCtx, item, spec.Size)
	if err != nil {
		if errors.Is(err, imagehash.ErrImageDecode) && p.cfg.Banners.RestoreFromBackup && record != nil && record.BackupPath != "" {
			logging.WarnWithContext(log, "poster unreadable, restoring backup", "poster_decode_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "original artwork restored"),
			)
			return p.restoreRecord(ctx, item, record, report)
		}
		return err
	}

	whole := spec.WholePoster()
	posterHash, err := whole.Hash(poster)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageDetect, "hash poster", "", err)
	}
	spoiler := p.hidesSpoilers(class, item)
	wasBlurred := record != nil && record.Blurred
	if spoiler == wasBlurred && p.unchanged(record, item, attrs, posterHash) {
		log.Debug("item unchanged since last run", logging.Args(logging.DecisionAttrs("reprocess", "skip", "media and poster unchanged")...)...)
		report.Status = StatusUnchanged
		return p.store.MarkChecked(ctx, item.GUID, "")
	}

	ref := backup.Ref{GUID: item.GUID, Title: item.DisplayTitle(), Class: class}
	base, fromBackup := poster, false
	var (
		detection banner.DetectionResult
		stored    backup.Result
	)
	if wasBlurred {
		// The server holds our blurred upload; banners go onto the backup.
		original, err := backup.LoadOriginal(record.BackupPath)
		if err != nil {
			return services.Wrap(services.ErrNotFound, stageBackup, "load backup", "blurred poster has no clean original", err)
		}
		base, fromBackup = original, true
		stored = backup.Result{Path: record.BackupPath, Source: backup.SourceExisting}
	} else {
		detection, err = p.detector.Detect(poster, class)
		if err != nil {
			return services.Wrap(services.ErrValidation, stageDetect, "detect", "", err)
		}
		existingBackup := ""
		if record != nil {
			existingBackup = record.BackupPath
		}
		mediaDir := ""
		if item.File != "" {
			mediaDir = filepath.Dir(p.cfg.LocalMediaPath(item.File))
		}
		stored, err = p.backups.Store(ref, poster, detection, existingBackup, mediaDir)
		if err != nil {
			return services.Wrap(services.ErrTransient, stageBackup, "store", "", err)
		}
		if spoiler && stored.Source != backup.SourceFetched && stored.Path != "" {
			// Blur the clean original, not a poster that may carry banners.
			original, err := backup.LoadOriginal(stored.Path)
			if err != nil {
				return services.Wrap(services.ErrValidation, stageBackup, "load backup", "", err)
			}
			base, fromBackup = original, true
		}
	}
	report.Backup = stored.Source
	if fromBackup {
		detection, err = p.detector.Detect(base, class)
		if err != nil {
			return services.Wrap(services.ErrValidation, stageDetect, "detect backup", "", err)
		}
	}

	decision := spec.Decide(detection, attrs, Flags(p.cfg, class))
	report.Labels = decision.Labels
	for _, action := range decision.Actions {
		report.Actions = append(report.Actions, action.Kind)
	}
	log.Info("banner decision",
		logging.String(logging.FieldClass, string(class)),
		logging.Int("actions", len(decision.Actions)),
		logging.Int("labels", len(decision.Labels)),
		logging.String("backup_source", string(stored.Source)),
		logging.Bool("blur", spoiler),
	)

	if err := p.addLabels(services.WithStage(ctx, stageLabel), item, decision.Labels); err != nil {
		return err
	}

	next := &store.Item{
		GUID:       item.GUID,
		RatingKey:  item.RatingKey,
		Title:      item.DisplayTitle(),
		Class:      class,
		FileSize:   item.Size,
		Resolution: attrs.Resolution,
		HDR:        attrs.HDR,
		Audio:      attrs.Audio,
		PosterHash: posterHash.String(),
		BackupPath: stored.Path,
		Checked:    true,
		Blurred:    spoiler,
	}
	if record != nil {
		next.CreatedAt = record.CreatedAt
		next.BanneredPath = record.BanneredPath
		if next.BackupPath == "" {
			next.BackupPath = record.BackupPath
		}
	}

	if len(decision.Actions) == 0 && !spoiler && !wasBlurred {
		report.Status = StatusUnchanged
		return p.save(ctx, next)
	}

	canvas := base
	if spoiler {
		canvas = banner.Blur(base, spec.Size, banner.SpoilerSigma)
	}
	result, err := p.compositor.Apply(canvas, class, decision.Actions)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageApply, "composite", "", err)
	}
	if spec.VerifyArtwork && !spec.VerifyComposite(result, base) {
		return services.Wrap(services.ErrValidation, stageApply, "verify", "artwork changed outside banner areas", nil)
	}

	var buf bytes.Buffer
	if err := imagehash.EncodePNG(&buf, result); err != nil {
		return services.Wrap(services.ErrValidation, stageUpload, "encode", "", err)
	}
	if err := p.server.UploadPoster(services.WithStage(ctx, stageUpload), item.RatingKey, buf.Bytes()); err != nil {
		return err
	}

	if !spoiler && len(decision.Actions) > 0 {
		banneredPath, err := p.backups.SaveBannered(ref, result)
		if err != nil {
			logging.WarnWithContext(log, "could not keep bannered copy", "bannered_copy_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run compares against the stored hash only"),
			)
		} else if banneredPath != "" {
			next.BanneredPath = banneredPath
		}
	}
	if resultHash, err := whole.Hash(result); err == nil {
		next.PosterHash = resultHash.String()
	}

	report.Status = StatusUpdated
	report.Blurred = spoiler
	event := "poster_updated"
	switch {
	case spoiler:
		event = "poster_blurred"
	case wasBlurred:
		event = "poster_unblurred"
	}
	log.Info("poster updated", logging.String(logging.FieldEventType, event), logging.Int("banners", len(decision.Actions)))
	return p.save(ctx, next)
}

// hidesSpoilers reports whether the item's poster should be blurred.
func (p *Processor) hidesSpoilers(class banner.Class, item plex.Item) bool {
	return p.cfg.Banners.Spoilers && class == banner.ClassTVEpisode && !item.Watched()
}

func (p *Processor) attributes(ctx context.Context, item plex.Item) banner.MediaAttributes {
	attrs := item.Attributes()
	if p.prober == nil || item.File == "" {
		return attrs
	}
	path := p.cfg.LocalMediaPath(item.File)
	result, err := p.prober.Probe(services.WithStage(ctx, stageProbe), path)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "media probe failed, using server metadata", "probe_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check media.ffprobe_binary and plex.path_prefix/local_prefix"),
			logging.String(logging.FieldImpact, "attributes taken from Plex stream metadata"),
		)
		return attrs
	}
	probed := result.Attributes()
	if !probed.ThreeD {
		probed.ThreeD = attrs.ThreeD
	}
	return probed
}

func (p *Processor) unchanged(record *store.Item, item plex.Item, attrs banner.MediaAttributes, posterHash imagehash.Hash) bool {
	if record == nil || !record.Checked || record.PosterHash == "" {
		return false
	}
	if !record.MediaUnchanged(item.Size, attrs) {
		return false
	}
	stored, err := imagehash.Parse(record.PosterHash)
	if err != nil {
		return false
	}
	return posterHash.Distance(stored) <= p.cfg.Detection.ChangeCutoff
}

func (p *Processor) addLabels(ctx context.Context, item plex.Item, labels []banner.Label) error {
	for _, label := range labels {
		if item.HasLabel(string(label)) {
			continue
		}
		if err := p.server.AddLabel(ctx, item.RatingKey, item.Type, string(label)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) save(ctx context.Context, item *store.Item) error {
	now := p.now().UTC()
	item.CheckedAt = &now
	if err := p.store.Upsert(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, stageRecord, "save", "", err)
	}
	return nil
}

func (p *Processor) recordFailure(ctx context.Context, report Report, cause error) {
	if report.GUID == "" {
		return
	}
	err := p.store.MarkChecked(ctx, report.GUID, cause.Error())
	if errors.Is(err, store.ErrInvalidItem) {
		return
	}
	if err != nil {
		logging.WithContext(ctx, p.logger).Warn("could not record failure", logging.Error(err))
	}
}
