// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage implements the Storage collaborator (spec section 6) as a
// read-only view over a pebble key-value database. Grounded on the
// teacher's chaincmd pebbledb reader (reference/../chaincmd.go's
// pebble.Open/db.Get/db.NewIter helpers for SubnetEVM's hand-rolled key
// scheme), adapted from per-block header/body lookups to the sequencer's
// per-height header/state-diff/marker/tx-count lookups this package serves
// to cmd/sequencer's offline storage subcommands.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
)

const (
	prefixHeader    byte = 'h'
	prefixStateDiff byte = 's'
	prefixTxCount   byte = 't'
	prefixMarker    byte = 'm'
)

// Store is a pebble-backed collaborators.Storage. Values are stored
// unframed: headers and state diffs are whatever bytes the caller wrote,
// tx counts and marker heights are 8-byte big-endian.
type Store struct {
	db *pebble.DB
}

// Open opens the pebble database at path. readOnly should be true for the
// CLI read path (cmd/sequencer's storagecmd subcommands); the daemon's
// write path opens with readOnly false.
func Open(path string, readOnly bool) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func heightKey(prefix byte, height domain.Height) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

func markerKey(kind collaborators.MarkerKind) []byte {
	return append([]byte{prefixMarker}, []byte(kind)...)
}

func (s *Store) get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// GetMarker returns the next-expected block number for kind, 0 if unset.
func (s *Store) GetMarker(ctx context.Context, kind collaborators.MarkerKind) (domain.Height, error) {
	v, err := s.get(markerKey(kind))
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, nil
	}
	return domain.Height(binary.BigEndian.Uint64(v)), nil
}

// SetMarker advances kind's marker to height.
func (s *Store) SetMarker(kind collaborators.MarkerKind, height domain.Height) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(height))
	return s.db.Set(markerKey(kind), v, pebble.Sync)
}

// GetHeader returns the raw encoded header at height.
func (s *Store) GetHeader(ctx context.Context, height domain.Height) ([]byte, error) {
	return s.get(heightKey(prefixHeader, height))
}

// PutHeader stores the raw encoded header for height.
func (s *Store) PutHeader(height domain.Height, header []byte) error {
	return s.db.Set(heightKey(prefixHeader, height), header, pebble.Sync)
}

// GetStateDiff returns the raw encoded state diff at height.
func (s *Store) GetStateDiff(ctx context.Context, height domain.Height) ([]byte, error) {
	return s.get(heightKey(prefixStateDiff, height))
}

// PutStateDiff stores the raw encoded state diff for height.
func (s *Store) PutStateDiff(height domain.Height, diff []byte) error {
	return s.db.Set(heightKey(prefixStateDiff, height), diff, pebble.Sync)
}

// GetTransactionCount returns the number of transactions committed at
// height.
func (s *Store) GetTransactionCount(ctx context.Context, height domain.Height) (uint64, error) {
	v, err := s.get(heightKey(prefixTxCount, height))
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

// PutTransactionCount stores count as the transaction count for height.
func (s *Store) PutTransactionCount(height domain.Height, count uint64) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, count)
	return s.db.Set(heightKey(prefixTxCount, height), v, pebble.Sync)
}

var _ collaborators.Storage = (*Store)(nil)
