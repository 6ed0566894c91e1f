package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"plexbanner/internal/config"
)

// Store persists per-item banner state in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// connPragmas are applied by the driver to every pooled connection.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

const (
	sqliteBusy    = 5
	busyAttempts  = 5
	busyBaseDelay = 10 * time.Millisecond
	busyMaxDelay  = 200 * time.Millisecond
)

// Open opens the item store in the configured state directory, creating the
// directory and schema as needed.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the item store at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open item store %s: %w", dbPath, err)
	}
	st := &Store{db: db, path: dbPath}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func dsn(path string) string {
	query := url.Values{}
	for _, p := range connPragmas {
		query.Add("_pragma", p)
	}
	return "file:" + path + "?" + query.Encode()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Closing a nil store is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func busy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteBusy {
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

// withBusyRetry runs op until it stops reporting SQLITE_BUSY, backing off
// between attempts.
func withBusyRetry(ctx context.Context, op func() error) error {
	delay := busyBaseDelay
	for attempt := 1; ; attempt++ {
		err := op()
		if !busy(err) || attempt == busyAttempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay = min(delay*2, busyMaxDelay)
	}
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withBusyRetry(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}
