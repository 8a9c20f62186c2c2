// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/holidayctl/internal/storage/localfs"
	"github.com/staranto/holidayctl/internal/storage/s3"
	"github.com/staranto/holidayctl/internal/storage/sqlite"
	"github.com/staranto/holidayctl/internal/storage/valkey"
)

// Storage is a string keyed blob store. Each slot holds one opaque value and
// is replaced as a whole on every write.
type Storage interface {
	// GetItem returns the blob in slot. The bool is false when the slot is
	// empty, which is not an error.
	GetItem(ctx context.Context, slot string) ([]byte, bool, error)
	SetItem(ctx context.Context, slot string, data []byte) error
	// RemoveItem deletes slot. Removing an empty slot is not an error.
	RemoveItem(ctx context.Context, slot string) error
	Close() error
	String() string
}

// Store kinds accepted by Open.
const (
	KindMemory  = "memory"
	KindLocalFS = "localfs"
	KindSQLite  = "sqlite"
	KindS3      = "s3"
	KindValkey  = "valkey"
)

var ErrUnknownStore = errors.New("unknown cache store")

// Options selects and configures a backend.
type Options struct {
	Kind       string
	Dir        string
	SQLitePath string
	ValkeyAddr string
	Compress   string
	S3         s3.Config
}

// Open returns the backend described by opts, wrapped in a compressor when
// opts.Compress names one.
func Open(ctx context.Context, opts Options) (Storage, error) {
	var (
		st  Storage
		err error
	)

	switch strings.ToLower(opts.Kind) {
	case "", KindLocalFS:
		st, err = localfs.New(opts.Dir)
	case KindMemory:
		st = NewMemory()
	case KindSQLite:
		st, err = sqlite.Open(ctx, opts.SQLitePath)
	case KindS3:
		st, err = s3.New(ctx, opts.S3)
	case KindValkey:
		st, err = valkey.New(ctx, opts.ValkeyAddr, "holidayctl")
	default:
		return nil, fmt.Errorf("%q: %w", opts.Kind, ErrUnknownStore)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache store: %w", opts.Kind, err)
	}

	comp, err := CompressorByName(opts.Compress)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	log.Debugf("cache store: %s (compress=%s)", st, comp.Name())
	return Compressed(st, comp), nil
}
