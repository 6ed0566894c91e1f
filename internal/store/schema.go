package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Bump it with every change
// to schema.sql and add the statements that bring the previous version up to
// date to upgrades.
const schemaVersion = 2

// upgrades[v] moves a database from version v to v+1.
var upgrades = map[int][]string{
	1: {`ALTER TABLE items ADD COLUMN blurred INTEGER NOT NULL DEFAULT 0`},
}

// ErrSchemaMismatch reports a database written by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version == schemaVersion:
		return nil
	case version == 0:
		return s.inTx(ctx, "create schema", func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, schemaSQL)
			return err
		})
	case version < schemaVersion:
		return s.inTx(ctx, fmt.Sprintf("upgrade schema from version %d", version), func(tx *sql.Tx) error {
			for v := version; v < schemaVersion; v++ {
				for _, stmt := range upgrades[v] {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return fmt.Errorf("%w: %s is at version %d, this build expects %d (remove it to start over)",
		ErrSchemaMismatch, s.path, version, schemaVersion)
}

// inTx runs fn and records schemaVersion in the same transaction.
func (s *Store) inTx(ctx context.Context, what string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", what, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
