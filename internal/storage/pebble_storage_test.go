// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/collaborators"
)

func TestStoreRoundTripsHeaderStateDiffAndTxCount(t *testing.T) {
	s, err := Open(t.TempDir(), false)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	require.NoError(t, s.PutHeader(5, []byte("header-5")))
	require.NoError(t, s.PutStateDiff(5, []byte("diff-5")))
	require.NoError(t, s.PutTransactionCount(5, 12))
	require.NoError(t, s.SetMarker(collaborators.MarkerHeader, 6))

	header, err := s.GetHeader(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("header-5"), header)

	diff, err := s.GetStateDiff(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("diff-5"), diff)

	count, err := s.GetTransactionCount(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(12), count)

	marker, err := s.GetMarker(ctx, collaborators.MarkerHeader)
	require.NoError(t, err)
	require.Equal(t, uint64(6), uint64(marker))
}

func TestStoreReturnsNilForMissingKeys(t *testing.T) {
	s, err := Open(t.TempDir(), false)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	header, err := s.GetHeader(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, header)

	count, err := s.GetTransactionCount(ctx, 99)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
}
