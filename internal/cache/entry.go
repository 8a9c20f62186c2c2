// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Entry is a single cached value. Data holds the JSON encoding of the value
// so that memory and durable caches share one representation.
type Entry struct {
	Data json.RawMessage `json:"data"`
	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// ExpiresAt is Timestamp+ttl in epoch milliseconds. Nil never expires.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// Expired reports whether now is past ExpiresAt.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.UnixMilli() > *e.ExpiresAt
}

// WrittenAt returns Timestamp as a time.
func (e Entry) WrittenAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ExpiryTime returns ExpiresAt as a time, or false when the entry never
// expires.
func (e Entry) ExpiryTime() (time.Time, bool) {
	if e.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*e.ExpiresAt), true
}

func (e Entry) clone() Entry {
	c := e
	c.Data = append(json.RawMessage(nil), e.Data...)
	if e.ExpiresAt != nil {
		at := *e.ExpiresAt
		c.ExpiresAt = &at
	}
	return c
}

// encodeEntries renders the map as a JSON array of [key, entry] pairs,
// ordered by key.
func encodeEntries(entries map[string]Entry) ([]byte, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]any, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]any{k, entries[k]})
	}
	return json.Marshal(pairs)
}

// decodeEntries is the inverse of encodeEntries.
func decodeEntries(blob []byte) (map[string]Entry, error) {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(blob, &pairs); err != nil {
		return nil, fmt.Errorf("decode cache blob: %w", err)
	}

	entries := make(map[string]Entry, len(pairs))
	for i, p := range pairs {
		var key string
		if err := json.Unmarshal(p[0], &key); err != nil {
			return nil, fmt.Errorf("decode key of pair %d: %w", i, err)
		}
		var e Entry
		if err := json.Unmarshal(p[1], &e); err != nil {
			return nil, fmt.Errorf("decode entry %q: %w", key, err)
		}
		entries[key] = e
	}
	return entries, nil
}
