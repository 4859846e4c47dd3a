// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package l1provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/domain"
)

type fakeSync struct {
	height domain.Height
}

func (f fakeSync) GetLatestBlockNumber(ctx context.Context) (domain.Height, error) {
	return f.height, nil
}

// CommitBlock calls that arrive for a height ahead of the provider's
// current height while still in Bootstrap are buffered rather than
// rejected, and replayed once catch-up reaches them (spec section 4.4).
func TestCommitBlockBuffersAheadOfHeightDuringBootstrap(t *testing.T) {
	p := New(nil)
	boot := NewBootstrap(p, fakeSync{height: 2}, time.Millisecond)
	p.AttachBootstrap(boot)

	require.Equal(t, StateBootstrap, p.State())

	h1 := domain.TxHash{1}
	require.NoError(t, p.CommitBlock([]domain.TxHash{h1}, nil, 1))
	require.Equal(t, domain.Height(0), p.CurrentHeight())

	require.NoError(t, p.CommitBlock(nil, nil, 0))
	require.Equal(t, domain.Height(1), p.CurrentHeight())

	caughtUp, err := boot.tryCatchUp(context.Background())
	require.NoError(t, err)
	require.True(t, caughtUp)
	require.Equal(t, domain.Height(2), p.CurrentHeight())
	require.Equal(t, StatePending, p.State())
}

// A gap in the backlog (the expected next height hasn't arrived yet)
// leaves the provider short of the sync target without erroring.
func TestTryCatchUpStopsAtBacklogGap(t *testing.T) {
	p := New(nil)
	boot := NewBootstrap(p, fakeSync{height: 3}, time.Millisecond)
	p.AttachBootstrap(boot)

	// Height 2 arrives but height 0 and 1 never do.
	require.NoError(t, p.CommitBlock(nil, nil, 2))

	caughtUp, err := boot.tryCatchUp(context.Background())
	require.NoError(t, err)
	require.False(t, caughtUp)
	require.Equal(t, domain.Height(0), p.CurrentHeight())
}

func TestRunReturnsOnceCaughtUp(t *testing.T) {
	p := New(nil)
	boot := NewBootstrap(p, fakeSync{height: 0}, 2*time.Millisecond)
	p.AttachBootstrap(boot)

	done := make(chan error, 1)
	go func() { done <- boot.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bootstrap did not catch up")
	}
	require.Equal(t, StatePending, p.State())
}
