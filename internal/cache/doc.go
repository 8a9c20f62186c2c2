// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache provides a TTL-bounded key/value cache. A Service is either
// memory only (the session cache) or durable, in which case every mutation
// rewrites the whole map into a single storage slot and construction reloads
// it from there (the persistent cache).
//
// Expiry is lazy. An expired entry stays in the map, and in Keys, until
// something reads it.
package cache
