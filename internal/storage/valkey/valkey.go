// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package valkey stores cache slots as Valkey/Redis string keys.
package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// Store keeps one key per slot, namespaced by prefix.
type Store struct {
	client valkey.Client
	addr   string
	prefix string
}

// New connects to addr ("host:port", default localhost:6379) and pings it.
func New(ctx context.Context, addr, prefix string) (*Store, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}

	return NewWithClient(client, addr, prefix), nil
}

// NewWithClient wraps an existing client. addr is only used by String.
func NewWithClient(client valkey.Client, addr, prefix string) *Store {
	return &Store{client: client, addr: addr, prefix: prefix + ":"}
}

func (s *Store) GetItem(ctx context.Context, slot string) ([]byte, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+slot).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("valkey get: %w", err)
	}
	return data, true, nil
}

func (s *Store) SetItem(ctx context.Context, slot string, data []byte) error {
	cmd := s.client.B().Set().Key(s.prefix + slot).Value(valkey.BinaryString(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, slot string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.prefix+slot).Build()).Error(); err != nil {
		return fmt.Errorf("valkey delete: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func (s *Store) String() string { return "valkey://" + s.addr }
