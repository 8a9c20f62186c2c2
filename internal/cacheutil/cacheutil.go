// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/caarlos0/env/v11"
)

// Settings are the cache related environment variables.
type Settings struct {
	// Dir overrides the base cache directory.
	Dir string `env:"HOLIDAYCTL_CACHE_DIR"`
	// Switch disables durable caching when "0" or "false".
	Switch string `env:"HOLIDAYCTL_CACHE"`
}

// LoadSettings parses the cache settings from the environment.
func LoadSettings() Settings {
	var s Settings
	if err := env.Parse(&s); err != nil {
		log.WithError(err).Warn("failed to parse cache environment")
	}
	return s
}

// Dir resolves the base cache directory.
// Precedence:
//  1. HOLIDAYCTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/holidayctl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c := LoadSettings().Dir; c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "holidayctl"), true
	}
	return "", false
}

// Enabled returns true unless HOLIDAYCTL_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled := LoadSettings().Switch
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// EntryPath returns the absolute path where a slot would live beneath base
// given the clear-text slot name. It also returns true if a file currently
// exists at that path.
func EntryPath(base string, clearKey string) (string, bool) {
	p := filepath.Join(base, EncodeKey(clearKey))
	if _, err := os.Stat(p); err == nil {
		return p, true
	}
	return p, false
}

// EncodeKey hashes k with MD5 and returns the hex string.
func EncodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
