// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the durable slot store the persistent cache mirrors
// its map into, and opens the configured backend (memory, localfs, sqlite,
// s3 or valkey), optionally behind a compressor.
package storage
