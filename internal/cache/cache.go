// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/holidayctl/internal/storage"
)

// DefaultSlot is the storage slot a durable cache mirrors into.
const DefaultSlot = "holidayplanner_cache"

// Service is a TTL-aware key/value cache. It is safe for concurrent use; the
// durable mirror is written under the same lock as the map so the stored
// blob always matches some complete state of the map.
type Service struct {
	mu      sync.Mutex
	entries map[string]Entry

	name  string
	store storage.Storage
	slot  string
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStorage makes the cache durable: it is loaded from st on creation and
// written back to st after every mutation.
func WithStorage(st storage.Storage) Option {
	return func(s *Service) { s.store = st }
}

// WithSlot overrides DefaultSlot.
func WithSlot(slot string) Option {
	return func(s *Service) { s.slot = slot }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithName labels the cache in log output.
func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

// New returns a cache. A durable cache reads its slot here; a missing or
// unreadable slot is logged and the cache starts empty.
func New(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		entries: make(map[string]Entry),
		name:    "session",
		slot:    DefaultSlot,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store != nil {
		s.load(ctx)
	}
	return s
}

// NewSession returns the memory-only cache.
func NewSession() *Service {
	return New(context.Background(), WithName("session"))
}

// NewPersistent returns the durable cache backed by st.
func NewPersistent(ctx context.Context, st storage.Storage, opts ...Option) *Service {
	return New(ctx, append([]Option{WithName("persistent"), WithStorage(st)}, opts...)...)
}

// Durable reports whether the cache mirrors into storage.
func (s *Service) Durable() bool {
	return s.store != nil
}

// Get returns the encoded value for key. An expired entry is removed and
// reported as absent.
func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if e.Expired(s.now()) {
		log.Debugf("cache expired: %s", key)
		delete(s.entries, key)
		s.save(ctx)
		return nil, false
	}

	return append(json.RawMessage(nil), e.Data...), true
}

// Lookup is Get decoded into T. A value that does not decode into T is
// logged and reported as absent.
func Lookup[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var v T

	raw, ok := s.Get(ctx, key)
	if !ok {
		return v, false
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		log.WithError(err).WithField("key", key).Warn("cached value does not decode")
		var zero T
		return zero, false
	}
	return v, true
}

// Set stores value under key, replacing any existing entry. A ttl <= 0 means
// the entry never expires. The returned error only reports a value that
// cannot be JSON encoded; storage failures are logged.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	e := Entry{Data: data, Timestamp: now}
	if ttl > 0 {
		at := now + ttl.Milliseconds()
		e.ExpiresAt = &at
	}
	s.entries[key] = e
	s.save(ctx)
	return nil
}

// Has reports whether Get would find key.
func (s *Service) Has(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

// Delete removes key and reports whether it was present.
func (s *Service) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.save(ctx)
	return true
}

// Clear empties the cache and removes its storage slot altogether.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	if s.store == nil {
		return
	}
	if err := s.store.RemoveItem(ctx, s.slot); err != nil {
		log.WithError(err).WithField("cache", s.name).Warn("failed to remove cache from storage")
	}
}

// ClearPattern removes every key matched by re and returns how many went.
func (s *Service) ClearPattern(ctx context.Context, re *regexp.Regexp) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if re.MatchString(k) {
			delete(s.entries, k)
			n++
		}
	}
	log.Debugf("cache cleared %d keys matching %s", n, re)
	s.save(ctx)
	return n
}

// ClearMatching compiles expr and calls ClearPattern.
func (s *Service) ClearMatching(ctx context.Context, expr string) (int, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid key pattern: %w", err)
	}
	return s.ClearPattern(ctx, re), nil
}

// Keys lists the current keys in sorted order. It does not check expiry.
func (s *Service) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the map. It does not check expiry.
func (s *Service) Entries() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries))
	for k, e := range s.entries {
		out[k] = e.clone()
	}
	return out
}

// Len is the number of entries, expired or not.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// load replaces the map with the stored one. Callers hold no lock; it only
// runs from New.
func (s *Service) load(ctx context.Context) {
	blob, ok, err := s.store.GetItem(ctx, s.slot)
	if err != nil {
		log.WithError(err).WithField("cache", s.name).Error("failed to load cache from storage")
		return
	}
	if !ok {
		return
	}

	entries, err := decodeEntries(blob)
	if err != nil {
		log.WithError(err).WithField("cache", s.name).Error("failed to load cache from storage")
		return
	}
	log.Debugf("%s cache loaded %d entries from %s", s.name, len(entries), s.store)
	s.entries = entries
}

// save writes the whole map to storage. Callers must hold s.mu.
func (s *Service) save(ctx context.Context) {
	if s.store == nil {
		return
	}

	blob, err := encodeEntries(s.entries)
	if err != nil {
		log.WithError(err).WithField("cache", s.name).Error("failed to save cache to storage")
		return
	}
	if err := s.store.SetItem(ctx, s.slot, blob); err != nil {
		log.WithError(err).WithField("cache", s.name).Error("failed to save cache to storage")
	}
}
