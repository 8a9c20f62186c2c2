// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses and decompresses slot blobs.
type Compressor interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Name() string
}

type none struct{}

// None returns a pass-through compressor.
func None() Compressor { return none{} }

func (none) Encode(data []byte) ([]byte, error) { return data, nil }
func (none) Decode(data []byte) ([]byte, error) { return data, nil }
func (none) Name() string                       { return "none" }

type s2c struct{}

// S2 returns a fast compressor using S2 (improved Snappy).
func S2() Compressor { return s2c{} }

func (s2c) Encode(data []byte) ([]byte, error) { return s2.Encode(nil, data), nil }
func (s2c) Decode(data []byte) ([]byte, error) { return s2.Decode(nil, data) }
func (s2c) Name() string                       { return "s2" }

type zstdc struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Zstd returns a compressor using Zstandard at the default level.
func Zstd() (Compressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdc{enc: enc, dec: dec}, nil
}

func (z *zstdc) Encode(data []byte) ([]byte, error) { return z.enc.EncodeAll(data, nil), nil }
func (z *zstdc) Decode(data []byte) ([]byte, error) { return z.dec.DecodeAll(data, nil) }
func (*zstdc) Name() string                         { return "zstd" }

// CompressorByName maps the cache.compress config value to a Compressor.
func CompressorByName(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None(), nil
	case "s2":
		return S2(), nil
	case "zstd":
		return Zstd()
	default:
		return nil, fmt.Errorf("unknown compressor %q", name)
	}
}

type compressed struct {
	Storage
	c Compressor
}

// Compressed wraps st so blobs are encoded on the way in and decoded on the
// way out. A None compressor returns st unchanged.
func Compressed(st Storage, c Compressor) Storage {
	if c == nil || c.Name() == "none" {
		return st
	}
	return &compressed{Storage: st, c: c}
}

func (cs *compressed) GetItem(ctx context.Context, slot string) ([]byte, bool, error) {
	data, ok, err := cs.Storage.GetItem(ctx, slot)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := cs.c.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", cs.c.Name(), err)
	}
	return plain, true, nil
}

func (cs *compressed) SetItem(ctx context.Context, slot string, data []byte) error {
	packed, err := cs.c.Encode(data)
	if err != nil {
		return fmt.Errorf("compress %s: %w", cs.c.Name(), err)
	}
	return cs.Storage.SetItem(ctx, slot, packed)
}

func (cs *compressed) String() string {
	return cs.Storage.String() + "+" + cs.c.Name()
}
