package pipeline

import (
	"bytes"
	"context"

	"plexbanner/internal/backup"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
	"plexbanner/internal/services"
	"plexbanner/internal/services/plex"
	"plexbanner/internal/store"
)

// Restore uploads the backed-up original poster of an item and marks the
// record unchecked so the next run decides banners afresh.
func (p *Processor) Restore(ctx context.Context, ratingKey string) (Report, error) {
	report := Report{RatingKey: ratingKey}
	err := p.restore(ctx, ratingKey, &report)
	if err != nil {
		report.Err = err
		report.Status = StatusFailed
		if services.Classify(err) == services.OutcomeSkipped {
			report.Status = StatusSkipped
		}
	}
	return report, err
}

func (p *Processor) restore(ctx context.Context, ratingKey string, report *Report) error {
	item, err := p.server.Item(services.WithStage(ctx, stageFetch), ratingKey)
	if err != nil {
		return err
	}
	report.GUID = item.GUID
	report.Title = item.DisplayTitle()
	ctx = services.WithItemGUID(ctx, item.GUID)

	record, err := p.store.GetByGUID(ctx, item.GUID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageRecord, "load", "", err)
	}
	if record == nil {
		return services.Wrap(services.ErrNotFound, stageRestore, "lookup", "item has never been processed", nil)
	}
	return p.restoreRecord(ctx, item, record, report)
}

func (p *Processor) restoreRecord(ctx context.Context, item plex.Item, record *store.Item, report *Report) error {
	ctx = services.WithStage(ctx, stageRestore)
	report.Class = record.Class

	original, err := backup.LoadOriginal(record.BackupPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageRestore, "load backup", "", err)
	}
	var buf bytes.Buffer
	if err := imagehash.EncodePNG(&buf, original); err != nil {
		return services.Wrap(services.ErrValidation, stageRestore, "encode", "", err)
	}
	if err := p.server.UploadPoster(ctx, item.RatingKey, buf.Bytes()); err != nil {
		return err
	}

	record.Checked = false
	record.Blurred = false
	record.BanneredPath = ""
	record.PosterHash = ""
	if spec, err := p.refs.Spec(record.Class); err == nil {
		if h, err := spec.WholePoster().Hash(original); err == nil {
			record.PosterHash = h.String()
		}
	}
	if err := p.store.Upsert(ctx, record); err != nil {
		return services.Wrap(services.ErrTransient, stageRecord, "save", "", err)
	}

	report.Status = StatusRestored
	report.Backup = backup.SourceExisting
	logging.WithContext(ctx, p.logger).Info("original poster restored",
		logging.String(logging.FieldEventType, "poster_restored"),
		logging.String("backup", record.BackupPath),
	)
	return nil
}
