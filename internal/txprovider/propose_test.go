// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/starknet-sequencer/core/internal/domain"
)

type fakeMempool struct {
	remaining int
	seq       byte
}

func (f *fakeMempool) GetTxs(n int) []domain.MempoolTx {
	if n > f.remaining {
		n = f.remaining
	}
	out := make([]domain.MempoolTx, n)
	for i := range out {
		f.seq++
		var h domain.TxHash
		h[0] = f.seq
		out[i] = domain.MempoolTx{Ref: domain.TransactionRef{Hash: h}}
	}
	f.remaining -= n
	return out
}

type fakeL1Source struct {
	remaining int
	seq       byte
}

func (f *fakeL1Source) GetTxs(n int, height domain.Height) ([]domain.L1HandlerTx, error) {
	if n > f.remaining {
		n = f.remaining
	}
	out := make([]domain.L1HandlerTx, n)
	for i := range out {
		f.seq++
		var h domain.TxHash
		h[0] = f.seq
		out[i] = domain.L1HandlerTx{Hash: h}
	}
	f.remaining -= n
	return out, nil
}

// S3 — L1 phase exhaustion switches to mempool.
func TestProposeProviderL1PhaseExhaustionSwitchesToMempool(t *testing.T) {
	ctx := context.Background()
	l1 := &fakeL1Source{remaining: 15}
	mp := &fakeMempool{remaining: 100}

	p := NewProposeProvider(ProposeConfig{MaxL1HandlerTxsPerBlock: 15}, mp, l1)

	b1, err := p.GetTxs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, b1, 10)
	for _, tx := range b1 {
		require.True(t, tx.IsL1)
	}

	b2, err := p.GetTxs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, b2, 10)
	l1Count, mpCount := 0, 0
	for _, tx := range b2 {
		if tx.IsL1 {
			l1Count++
		} else {
			mpCount++
		}
	}
	require.Equal(t, 5, l1Count)
	require.Equal(t, 5, mpCount)

	b3, err := p.GetTxs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, b3, 10)
	for _, tx := range b3 {
		require.False(t, tx.IsL1)
	}
}

type failingFilter struct{ err error }

func (f failingFilter) Filter(ctx context.Context, txs []domain.MempoolTx) ([]domain.MempoolTx, error) {
	return nil, f.err
}

func TestProposeProviderAllowListFailsOpen(t *testing.T) {
	ctx := context.Background()
	l1 := &fakeL1Source{remaining: 0}
	mp := &fakeMempool{remaining: 5}

	p := NewProposeProvider(ProposeConfig{
		MaxL1HandlerTxsPerBlock: 0,
		AllowListFilter:         failingFilter{err: errors.New("allow-list unavailable")},
	}, mp, l1)

	got, err := p.GetTxs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

type countingFilter struct{ calls int }

func (f *countingFilter) Filter(ctx context.Context, txs []domain.MempoolTx) ([]domain.MempoolTx, error) {
	f.calls++
	return txs, nil
}

// A canceled context while waiting on AllowListRateLimit fails open:
// the unfiltered batch is still returned rather than blocking forever.
func TestProposeProviderAllowListRateLimitFailsOpenOnCancel(t *testing.T) {
	mp := &fakeMempool{remaining: 5}
	l1 := &fakeL1Source{remaining: 0}
	filter := &countingFilter{}

	p := NewProposeProvider(ProposeConfig{
		MaxL1HandlerTxsPerBlock: 0,
		AllowListFilter:         filter,
		AllowListRateLimit:      rate.NewLimiter(0, 0),
	}, mp, l1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := p.GetTxs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, 0, filter.calls)
}
