package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"plexbanner/internal/banner"
)

// ErrInvalidItem reports a record that cannot be persisted.
var ErrInvalidItem = errors.New("invalid item")

// Item is the persisted banner state of one media-server item.
type Item struct {
	GUID         string
	RatingKey    string
	Title        string
	Class        banner.Class
	FileSize     int64
	Resolution   banner.Resolution
	HDR          banner.HDRKind
	Audio        banner.AudioKind
	PosterHash   string
	BackupPath   string
	BanneredPath string
	Checked      bool
	Blurred      bool // spoiler-safe poster uploaded; original at BackupPath
	LastError    string
	CheckedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Attributes returns the media attributes recorded for the item.
func (i *Item) Attributes() banner.MediaAttributes {
	return banner.MediaAttributes{
		Resolution: i.Resolution,
		HDR:        i.HDR,
		Audio:      i.Audio,
		ThreeD:     i.Class == banner.ClassThreeD,
	}
}

// MediaUnchanged reports whether the item still describes the same media
// file: identical size and attributes.
func (i *Item) MediaUnchanged(size int64, attrs banner.MediaAttributes) bool {
	if i == nil {
		return false
	}
	return i.FileSize == size &&
		i.Resolution == attrs.Resolution &&
		i.HDR == attrs.HDR &&
		i.Audio == attrs.Audio
}

const itemColumns = "guid, rating_key, title, class, file_size, resolution, hdr, audio, poster_hash, backup_path, bannered_path, checked, blurred, last_error, checked_at, created_at, updated_at"

// Upsert inserts the item or replaces the stored record that has the same
// GUID. CreatedAt of an existing record is preserved.
func (s *Store) Upsert(ctx context.Context, item *Item) error {
	if item == nil || strings.TrimSpace(item.GUID) == "" {
		return fmt.Errorf("%w: guid is required", ErrInvalidItem)
	}
	if strings.TrimSpace(item.RatingKey) == "" {
		return fmt.Errorf("%w: rating key is required for %s", ErrInvalidItem, item.GUID)
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.exec(ctx,
		`INSERT INTO items (`+itemColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(guid) DO UPDATE SET
             rating_key = excluded.rating_key, title = excluded.title, class = excluded.class,
             file_size = excluded.file_size, resolution = excluded.resolution, hdr = excluded.hdr,
             audio = excluded.audio, poster_hash = excluded.poster_hash,
             backup_path = excluded.backup_path, bannered_path = excluded.bannered_path,
             checked = excluded.checked, blurred = excluded.blurred, last_error = excluded.last_error,
             checked_at = excluded.checked_at, updated_at = excluded.updated_at`,
		item.GUID,
		item.RatingKey,
		nullableString(item.Title),
		string(item.Class),
		item.FileSize,
		item.Resolution.String(),
		item.HDR.String(),
		item.Audio.String(),
		nullableString(item.PosterHash),
		nullableString(item.BackupPath),
		nullableString(item.BanneredPath),
		boolToInt(item.Checked),
		boolToInt(item.Blurred),
		nullableString(item.LastError),
		nullableTime(item.CheckedAt),
		item.CreatedAt.Format(time.RFC3339Nano),
		item.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.GUID, err)
	}
	return nil
}

// GetByGUID fetches an item. A missing item returns nil without error.
func (s *Store) GetByGUID(ctx context.Context, guid string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE guid = ?`, guid)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByRatingKey returns the first item recorded under a rating key.
func (s *Store) GetByRatingKey(ctx context.Context, ratingKey string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE rating_key = ? ORDER BY created_at LIMIT 1`, ratingKey)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by rating key: %w", err)
	}
	return item, nil
}

// MarkChecked records the outcome of processing an item. An empty lastErr
// marks the item as checked; otherwise it is left unchecked for the next run.
func (s *Store) MarkChecked(ctx context.Context, guid, lastErr string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.exec(ctx,
		`UPDATE items SET checked = ?, last_error = ?, checked_at = ?, updated_at = ? WHERE guid = ?`,
		boolToInt(lastErr == ""), nullableString(lastErr), now, now, guid,
	)
	if err != nil {
		return fmt.Errorf("mark checked %s: %w", guid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: no item %s", ErrInvalidItem, guid)
	}
	return nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Class         banner.Class
	UncheckedOnly bool
	Limit         int
}

// List returns stored items ordered by title.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Class != "" {
		clauses = append(clauses, "class = ?")
		args = append(args, string(filter.Class))
	}
	if filter.UncheckedOnly {
		clauses = append(clauses, "checked = 0")
	}
	query := `SELECT ` + itemColumns + ` FROM items`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY title COLLATE NOCASE, guid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Delete removes an item. It reports whether a record existed.
func (s *Store) Delete(ctx context.Context, guid string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM items WHERE guid = ?`, guid)
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", guid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", guid, err)
	}
	return n > 0, nil
}

// ResetChecked clears the checked flag on every item so the next run
// re-examines them. It returns the number of items reset.
func (s *Store) ResetChecked(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `UPDATE items SET checked = 0, updated_at = ? WHERE checked = 1`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("reset checked: %w", err)
	}
	return res.RowsAffected()
}
