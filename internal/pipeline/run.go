package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"plexbanner/internal/logging"
	"plexbanner/internal/services"
	"plexbanner/internal/services/plex"
)

// ErrLocked reports that another run holds the state directory lock.
var ErrLocked = errors.New("another plexbanner run is in progress")

// Summary aggregates a batch run.
type Summary struct {
	RunID    string
	Reports  []Report
	Duration time.Duration
}

// Count returns how many reports have status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Reports {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Operation is Process or Restore.
type Operation func(ctx context.Context, ratingKey string) (Report, error)

// Run applies op to every rating key under the batch lock. Item failures
// are logged and recorded on their reports; Run itself fails only when the
// lock cannot be taken or ctx is cancelled.
func (p *Processor) Run(ctx context.Context, keys []string, op Operation) (Summary, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "run", "directories", "", err)
	}
	lock := flock.New(p.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Summary{}, fmt.Errorf("%w (lock %s)", ErrLocked, p.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	summary := Summary{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, summary.RunID)
	log := logging.WithContext(ctx, p.logger)
	start := p.now()
	log.Info("run started", logging.String(logging.FieldEventType, "run_start"), logging.Int("items", len(keys)))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			summary.Duration = p.now().Sub(start)
			return summary, err
		}
		report, err := op(ctx, key)
		if err != nil {
			outcome := services.Classify(err)
			attrs := []logging.Attr{
				logging.String("rating_key", key),
				logging.String(logging.FieldItemGUID, report.GUID),
				logging.String("outcome", string(outcome)),
				logging.Error(err),
			}
			if outcome == services.OutcomeSkipped {
				logging.WarnWithContext(log, "item skipped", "item_skipped", attrs...)
			} else {
				logging.ErrorWithContext(log, "item failed", "item_failed", attrs...)
			}
		}
		summary.Reports = append(summary.Reports, report)
	}

	summary.Duration = p.now().Sub(start)
	log.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("updated", summary.Count(StatusUpdated)),
		logging.Int("unchanged", summary.Count(StatusUnchanged)),
		logging.Int("restored", summary.Count(StatusRestored)),
		logging.Int("skipped", summary.Count(StatusSkipped)),
		logging.Int("failed", summary.Count(StatusFailed)),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// LibraryKeys lists rating keys of every film in the films library and
// every episode and season in the TV library. Empty library names are
// skipped.
func (p *Processor) LibraryKeys(ctx context.Context, films, tv bool) ([]string, error) {
	type source struct {
		library string
		kind    plex.ItemType
	}
	var sources []source
	if films && p.cfg.Plex.FilmsLibrary != "" {
		sources = append(sources, source{p.cfg.Plex.FilmsLibrary, plex.TypeMovie})
	}
	if tv && p.cfg.Plex.TVLibrary != "" {
		sources = append(sources,
			source{p.cfg.Plex.TVLibrary, plex.TypeEpisode},
			source{p.cfg.Plex.TVLibrary, plex.TypeSeason},
		)
	}

	var keys []string
	seen := make(map[string]struct{})
	for _, src := range sources {
		items, err := p.server.LibraryItems(ctx, src.library, src.kind)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, dup := seen[item.RatingKey]; dup || item.RatingKey == "" {
				continue
			}
			seen[item.RatingKey] = struct{}{}
			keys = append(keys, item.RatingKey)
		}
	}
	return keys, nil
}
