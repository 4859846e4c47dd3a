// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package commitmentmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
)

type xorHasher struct{}

func (xorHasher) Hash(stateDiff []byte) domain.ProposalCommitment {
	var c domain.ProposalCommitment
	for i, b := range stateDiff {
		c[i%len(c)] ^= b
	}
	return c
}

type fakeStorage struct {
	diffs map[domain.Height][]byte
}

func (f *fakeStorage) GetMarker(ctx context.Context, kind collaborators.MarkerKind) (domain.Height, error) {
	return 0, nil
}
func (f *fakeStorage) GetHeader(ctx context.Context, height domain.Height) ([]byte, error) {
	return nil, nil
}
func (f *fakeStorage) GetStateDiff(ctx context.Context, height domain.Height) ([]byte, error) {
	return f.diffs[height], nil
}
func (f *fakeStorage) GetTransactionCount(ctx context.Context, height domain.Height) (uint64, error) {
	return 0, nil
}

func TestAddCommitmentTaskEnforcesOrder(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, xorHasher{}, 4, FullChannelBlock, nil, 0, 0)
	require.NoError(t, err)

	require.NoError(t, m.AddCommitmentTask(ctx, CommitmentTask{Height: 0, StateDiff: []byte("a")}))
	err = m.AddCommitmentTask(ctx, CommitmentTask{Height: 0, StateDiff: []byte("b")})
	var wrongHeight *WrongTaskHeight
	require.ErrorAs(t, err, &wrongHeight)

	require.NoError(t, m.AddCommitmentTask(ctx, CommitmentTask{Height: 1, StateDiff: []byte("b")}))
	require.NoError(t, m.Close())

	var results []CommitmentResult
	for r := range m.Results {
		results = append(results, r)
	}
	require.Len(t, results, 2)
	require.Equal(t, domain.Height(0), results[0].Height)
	require.Equal(t, domain.Height(1), results[1].Height)
}

func TestPrecomputedCommitmentSkipsHashing(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, xorHasher{}, 4, FullChannelBlock, nil, 0, 0)
	require.NoError(t, err)

	var want domain.ProposalCommitment
	want[0] = 42
	require.NoError(t, m.AddCommitmentTask(ctx, CommitmentTask{Height: 0, PrecomputedCommitment: &want}))
	require.NoError(t, m.Close())

	r := <-m.Results
	require.Equal(t, want, r.Commitment)
}

// Supplemented feature: startup catch-up synthesizes tasks from storage
// when the global-root marker trails the known state-diff height.
func TestStartupCatchUpReadsFromStorage(t *testing.T) {
	ctx := context.Background()
	storage := &fakeStorage{diffs: map[domain.Height][]byte{0: []byte("x"), 1: []byte("y")}}

	m, err := New(ctx, xorHasher{}, 4, FullChannelBlock, storage, 0, 2)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	var results []CommitmentResult
	for r := range m.Results {
		results = append(results, r)
	}
	require.Len(t, results, 2)
	require.Equal(t, domain.Height(0), results[0].Height)
	require.Equal(t, domain.Height(1), results[1].Height)
}
