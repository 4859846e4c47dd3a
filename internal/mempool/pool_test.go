// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/domain"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func hash(b byte) domain.TxHash {
	var h domain.TxHash
	h[0] = b
	return h
}

func ref(h domain.TxHash, sender domain.Address, nonce domain.Nonce, tip uint64, arrival uint64) domain.TransactionRef {
	return domain.TransactionRef{
		Hash:          h,
		Sender:        sender,
		Nonce:         nonce,
		Tip:           tip,
		MaxL2GasPrice: *uint256.NewInt(tip),
		ArrivalTS:     arrival,
	}
}

func mustAdd(t *testing.T, p *Pool, r domain.TransactionRef) {
	t.Helper()
	require.NoError(t, p.AddTx(domain.MempoolTx{Ref: r}))
}

func hashesOf(txs []domain.MempoolTx) []domain.TxHash {
	out := make([]domain.TxHash, len(txs))
	for i, tx := range txs {
		out[i] = tx.Ref.Hash
	}
	return out
}

// S1 — mempool fills nonce gap.
func TestFillsNonceGap(t *testing.T) {
	p := NewPool(Config{})

	sender0, sender1 := addr(0), addr(1)
	mustAdd(t, p, ref(hash(1), sender0, 1, 10, 1))
	mustAdd(t, p, ref(hash(2), sender1, 0, 10, 2))

	got := p.GetTxs(2)
	require.Equal(t, []domain.TxHash{hash(2)}, hashesOf(got))

	mustAdd(t, p, ref(hash(3), sender0, 0, 10, 3))
	got = p.GetTxs(2)
	require.Equal(t, []domain.TxHash{hash(3), hash(1)}, hashesOf(got))
}

func TestDuplicateHashRejected(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))
	err := p.AddTx(domain.MempoolTx{Ref: ref(hash(1), s, 0, 10, 1)})
	require.ErrorIs(t, err, ErrDuplicateHash)
}

func TestDuplicateNonceRejectsLowerPriority(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))

	err := p.AddTx(domain.MempoolTx{Ref: ref(hash(2), s, 0, 5, 2)})
	var dupErr *ErrDuplicateNonce
	require.ErrorAs(t, err, &dupErr)

	// A strictly higher tip replaces the occupant.
	require.NoError(t, p.AddTx(domain.MempoolTx{Ref: ref(hash(3), s, 0, 20, 3)}))
	got := p.GetTxs(1)
	require.Equal(t, []domain.TxHash{hash(3)}, hashesOf(got))
}

func TestNonceTooOld(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))
	p.CommitBlock(map[domain.Address]domain.Nonce{s: 5}, nil)

	err := p.AddTx(domain.MempoolTx{Ref: ref(hash(2), s, 2, 10, 2)})
	var tooOld *ErrNonceTooOld
	require.ErrorAs(t, err, &tooOld)
}

// R3 — add; commit everything above; add same hash again yields NonceTooOld.
func TestAddCommitReAddYieldsNonceTooOld(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	r := ref(hash(1), s, 0, 10, 1)
	mustAdd(t, p, r)
	p.CommitBlock(map[domain.Address]domain.Nonce{s: 1}, nil)

	err := p.AddTx(domain.MempoolTx{Ref: r})
	var tooOld *ErrNonceTooOld
	require.ErrorAs(t, err, &tooOld)
}

func TestBelowGasThresholdStaysPending(t *testing.T) {
	p := NewPool(Config{})
	p.UpdateGasPriceThreshold(*uint256.NewInt(100))
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))

	got := p.GetTxs(1)
	require.Empty(t, got)

	p.UpdateGasPriceThreshold(*uint256.NewInt(5))
	got = p.GetTxs(1)
	require.Equal(t, []domain.TxHash{hash(1)}, hashesOf(got))
}

// Rewind after a commit whose first post-commit tx is rejected: the
// sender's staged chain above the commit point is not re-queued (spec
// section 4.1's rewind policy, step 2; see DESIGN.md for the resolution of
// the open question on this exact boundary).
func TestRewindSkipsChainWhenNextStagedRejected(t *testing.T) {
	p := NewPool(Config{})
	sender0, sender1 := addr(0), addr(1)

	mustAdd(t, p, ref(hash(10), sender0, 0, 10, 1))
	mustAdd(t, p, ref(hash(11), sender0, 1, 10, 2))
	mustAdd(t, p, ref(hash(20), sender1, 0, 10, 3))
	mustAdd(t, p, ref(hash(21), sender1, 1, 10, 4))

	staged := p.GetTxs(4)
	require.Len(t, staged, 4)

	p.CommitBlock(
		map[domain.Address]domain.Nonce{sender0: 1, sender1: 1},
		map[domain.TxHash]struct{}{hash(11): {}},
	)

	// sender0's nonce-1 tx (hash 11) was the first post-commit staged tx
	// and is rejected, so sender0 contributes nothing further.
	got := p.GetTxs(2)
	require.Equal(t, []domain.TxHash{hash(21)}, hashesOf(got))
}

func TestRewindRestoresFIFOOrderAcrossSenders(t *testing.T) {
	p := NewPool(Config{})
	sender0, sender1 := addr(0), addr(1)

	mustAdd(t, p, ref(hash(1), sender0, 0, 10, 1))
	mustAdd(t, p, ref(hash(2), sender1, 0, 10, 2))

	staged := p.GetTxs(2)
	require.Len(t, staged, 2)

	// Neither sender committed; both rewind.
	p.CommitBlock(nil, nil)

	got := p.GetTxs(2)
	require.Equal(t, []domain.TxHash{hash(1), hash(2)}, hashesOf(got))
}

// (I2): after commit_block, no pool tx for a sender has nonce < committed.
func TestCommitDeletesBelowCommittedNonce(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))
	mustAdd(t, p, ref(hash(2), s, 1, 10, 2))
	p.GetTxs(2)

	p.CommitBlock(map[domain.Address]domain.Nonce{s: 2}, nil)

	err := p.AddTx(domain.MempoolTx{Ref: ref(hash(1), s, 0, 10, 1)})
	var tooOld *ErrNonceTooOld
	require.ErrorAs(t, err, &tooOld)
}

func TestUpdateGasPriceThresholdIsIdempotent(t *testing.T) {
	p := NewPool(Config{})
	s := addr(0)
	mustAdd(t, p, ref(hash(1), s, 0, 10, 1))

	p.UpdateGasPriceThreshold(*uint256.NewInt(5))
	p.UpdateGasPriceThreshold(*uint256.NewInt(5))

	got := p.GetTxs(1)
	require.Equal(t, []domain.TxHash{hash(1)}, hashesOf(got))
}
