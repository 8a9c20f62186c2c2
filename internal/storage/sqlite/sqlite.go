// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package sqlite stores cache slots in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/staranto/holidayctl/internal/cacheutil"
)

const schema = `CREATE TABLE IF NOT EXISTS slots (
	slot       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists slots in SQLite.
type Store struct {
	path  string
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (or creates) the database at path. An empty path puts
// holidayctl.db in the cache directory.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		base, ok, err := cacheutil.EnsureBaseDir()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("storage path is required")
		}
		path = filepath.Join(base, "holidayctl.db")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{path: cleanPath, sqlDB: sqlDB, now: time.Now}, nil
}

func (s *Store) GetItem(ctx context.Context, slot string) ([]byte, bool, error) {
	var data []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT data FROM slots WHERE slot = ?`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return data, true, nil
}

func (s *Store) SetItem(ctx context.Context, slot string, data []byte) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO slots (slot, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		slot, data, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, slot string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM slots WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// UpdatedAt reports when slot was last written.
func (s *Store) UpdatedAt(ctx context.Context, slot string) (time.Time, bool, error) {
	var ms int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT updated_at FROM slots WHERE slot = ?`, slot).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stat slot %s: %w", slot, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) String() string { return "sqlite:" + s.path }
