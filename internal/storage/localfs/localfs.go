// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package localfs stores cache slots as files beneath the holidayctl cache
// directory. File names are the MD5 of the slot name.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/staranto/holidayctl/internal/cacheutil"
)

var ErrNoDir = errors.New("no cache directory could be resolved")

// Store is a directory of slot files.
type Store struct {
	Dir string
}

// New creates dir if needed and checks it is writable. An empty dir falls
// back to cacheutil.Dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		d, ok := cacheutil.Dir()
		if !ok {
			return nil, ErrNoDir
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil { //nolint:mnd
		return nil, fmt.Errorf("cache directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	return &Store{Dir: dir}, nil
}

func (s *Store) GetItem(ctx context.Context, slot string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	p, ok := cacheutil.EntryPath(s.Dir, slot)
	if !ok {
		return nil, false, nil
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}
	return b, true, nil
}

// SetItem writes to a temp file and renames it over the slot so a crash
// never leaves a half written blob behind.
func (s *Store) SetItem(ctx context.Context, slot string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, _ := cacheutil.EntryPath(s.Dir, slot)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		rmErr := os.Remove(tmp)
		return errors.Join(fmt.Errorf("failed to rename cache file: %w", err), rmErr)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, _ := cacheutil.EntryPath(s.Dir, slot)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Location returns the file backing slot.
func (s *Store) Location(slot string) string {
	p, _ := cacheutil.EntryPath(s.Dir, slot)
	return p
}

func (s *Store) Close() error { return nil }

func (s *Store) String() string { return "localfs:" + s.Dir }
