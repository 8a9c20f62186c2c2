// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"
	"fmt"
	"sync"

	"github.com/apex/log"
	"golang.org/x/text/language"

	"github.com/staranto/holidayctl/internal/cache"
	"github.com/staranto/holidayctl/internal/cacheutil"
	"github.com/staranto/holidayctl/internal/config"
	"github.com/staranto/holidayctl/internal/holiday"
	"github.com/staranto/holidayctl/internal/storage"
	"github.com/staranto/holidayctl/internal/storage/s3"
)

// Meta is shared by every command. It owns the two caches and the holiday
// client, which are built on first use so that commands that never touch the
// API never open a store.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context

	// NoPersist keeps the persistent cache in memory whatever cache.store
	// says. It must be set before the first Persistent or Holidays call.
	NoPersist bool

	session *cache.Service

	once       sync.Once
	openErr    error
	store      storage.Storage
	persistent *cache.Service
	client     *holiday.Client
	clientOpts []holiday.Option
}

type Option func(*Meta)

// WithStorage skips opening the configured store.
func WithStorage(st storage.Storage) Option {
	return func(m *Meta) { m.store = st }
}

// WithClientOptions appends options applied after the configured ones.
func WithClientOptions(opts ...holiday.Option) Option {
	return func(m *Meta) { m.clientOpts = append(m.clientOpts, opts...) }
}

func New(ctx context.Context, args []string, cfg config.Type, opts ...Option) *Meta {
	m := &Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
		session: cache.NewSession(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session is the memory-only cache.
func (m *Meta) Session() *cache.Service {
	return m.session
}

// Persistent is the durable cache, opening the store if needed.
func (m *Meta) Persistent(ctx context.Context) (*cache.Service, error) {
	if err := m.open(ctx); err != nil {
		return nil, err
	}
	return m.persistent, nil
}

// Holidays is the API client, opening the store if needed.
func (m *Meta) Holidays(ctx context.Context) (*holiday.Client, error) {
	if err := m.open(ctx); err != nil {
		return nil, err
	}
	return m.client, nil
}

// Store describes the open store, or "" before first use.
func (m *Meta) Store() string {
	if m.store == nil {
		return ""
	}
	return m.store.String()
}

// Close releases the store.
func (m *Meta) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func (m *Meta) open(ctx context.Context) error {
	m.once.Do(func() {
		if m.store == nil {
			opts := StorageOptions()
			if m.NoPersist {
				log.Debug("durable cache disabled by --no-persist")
				opts.Kind = storage.KindMemory
			}
			st, err := storage.Open(ctx, opts)
			if err != nil {
				m.openErr = err
				return
			}
			m.store = st
		}

		m.persistent = cache.NewPersistent(ctx, m.store)

		opts, err := ClientOptions()
		if err != nil {
			m.openErr = err
			return
		}
		opts = append(opts, holiday.WithSession(m.session))
		m.client = holiday.NewClient(m.persistent, append(opts, m.clientOpts...)...)
	})
	return m.openErr
}

// StorageOptions reads the cache.* keys. HOLIDAYCTL_CACHE=0 forces an in
// memory store.
func StorageOptions() storage.Options {
	kind, _ := config.GetString("cache.store", storage.KindLocalFS)
	if !cacheutil.Enabled() {
		log.Debug("durable cache disabled by environment")
		kind = storage.KindMemory
	}

	dir, _ := config.GetString("cache.dir", "")
	sqlitePath, _ := config.GetString("cache.sqlite.path", "")
	valkeyAddr, _ := config.GetString("cache.valkey.addr", "127.0.0.1:6379")
	compress, _ := config.GetString("cache.compress", "none")

	var s3cfg s3.Config
	s3cfg.Bucket, _ = config.GetString("cache.s3.bucket", "")
	s3cfg.Prefix, _ = config.GetString("cache.s3.prefix", "holidayctl")
	s3cfg.Region, _ = config.GetString("cache.s3.region", "")
	s3cfg.Profile, _ = config.GetString("cache.s3.profile", "")
	s3cfg.Endpoint, _ = config.GetString("cache.s3.endpoint", "")

	return storage.Options{
		Kind:       kind,
		Dir:        dir,
		SQLitePath: sqlitePath,
		ValkeyAddr: valkeyAddr,
		Compress:   compress,
		S3:         s3cfg,
	}
}

// ClientOptions reads base_url, timeout, concurrency, locale and cache.ttl.
func ClientOptions() ([]holiday.Option, error) {
	baseURL, _ := config.GetString("base_url", holiday.DefaultBaseURL)

	timeout, err := config.GetDuration("timeout", holiday.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("config timeout: %w", err)
	}

	ttl, err := config.GetDuration("cache.ttl", holiday.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("config cache.ttl: %w", err)
	}

	concurrency, err := config.GetInt("concurrency", holiday.DefaultConcurrency)
	if err != nil {
		return nil, fmt.Errorf("config concurrency: %w", err)
	}

	opts := []holiday.Option{
		holiday.WithBaseURL(baseURL),
		holiday.WithTimeout(timeout),
		holiday.WithTTL(ttl),
		holiday.WithConcurrency(concurrency),
	}

	if locale, _ := config.GetString("locale", ""); locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("config locale %q: %w", locale, err)
		}
		opts = append(opts, holiday.WithLocale(tag))
	}

	return opts, nil
}
