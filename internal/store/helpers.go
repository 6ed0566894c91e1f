package store

import (
	"database/sql"
	"errors"
	"time"

	"plexbanner/internal/banner"
)

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		guid         string
		ratingKey    string
		title        sql.NullString
		class        string
		fileSize     int64
		resolution   string
		hdr          string
		audio        string
		posterHash   sql.NullString
		backupPath   sql.NullString
		banneredPath sql.NullString
		checked      int64
		blurred      int64
		lastError    sql.NullString
		checkedAt    sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&guid, &ratingKey, &title, &class, &fileSize,
		&resolution, &hdr, &audio, &posterHash,
		&backupPath, &banneredPath, &checked, &blurred, &lastError,
		&checkedAt, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		GUID:         guid,
		RatingKey:    ratingKey,
		Title:        title.String,
		Class:        banner.Class(class),
		FileSize:     fileSize,
		Resolution:   banner.ParseResolution(resolution),
		HDR:          banner.ParseHDR(hdr),
		Audio:        banner.ParseAudio(audio),
		PosterHash:   posterHash.String,
		BackupPath:   backupPath.String,
		BanneredPath: banneredPath.String,
		Checked:      checked != 0,
		Blurred:      blurred != 0,
		LastError:    lastError.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if checkedAt.Valid {
		if ts, err := parseTimeString(checkedAt.String); err == nil {
			item.CheckedAt = &ts
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
