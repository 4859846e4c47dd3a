// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool implements the admission, ordering, and eviction engine
// for pending transactions described in spec section 4.1. It is grounded
// on the teacher's core/txpool aggregator (reference/txpool/txpool.go):
// the same separation of a coordinator that owns account bookkeeping from
// the queues that hold orderable refs, generalized from go-ethereum's
// pending/queued split to the priority/pending split spec 3 requires.
package mempool

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
	"github.com/starknet-sequencer/core/internal/metrics"
)

type location int

const (
	locNone location = iota
	locPriority
	locPending
	locStaged
)

// poolEntry is the pool's private record for one transaction. The pool
// exclusively owns MempoolTx (spec section 3, "Ownership"); queues only
// ever hold the lightweight TransactionRef.
type poolEntry struct {
	tx       domain.MempoolTx
	loc      location
	arrivalN uint64 // insertion sequence, used to restore FIFO order on rewind.
}

// accountState tracks one sender's committed nonce and how many of its
// queued transactions are currently staged (handed to a proposer but not
// yet committed or rewound). The "ready" frontier nonce for a sender is
// always committedNonce + stagedCount: spec 4.1's "offset_for_sender".
type accountState struct {
	committedNonce domain.Nonce
	stagedCount    int
	byNonce        map[domain.Nonce]domain.TxHash
}

// Pool is the mempool's single coordinator. Per spec section 5 it is
// logically single-task; this type's methods are safe for concurrent
// callers (guarded by mu), and Task (task.go) additionally offers a
// request-channel realization for callers that want true serialization.
type Pool struct {
	mu sync.Mutex

	comparator Comparator

	accounts map[domain.Address]*accountState
	entries  map[domain.TxHash]*poolEntry

	priority *orderedSet
	pending  *orderedSet
	// staged mirrors the set of hashes currently handed to a proposer
	// (loc == locStaged), grounded on the teacher's core/txpool use of
	// golang-set for address/hash sets. IsStaged answers in O(1) instead
	// of scanning entries.
	staged mapset.Set[domain.TxHash]

	gasThreshold uint256.Int
	arrivalSeq   uint64

	lastReturnedTS uint64
	maxStaleness   uint64

	log     logging.Logger
	metrics *metrics.Set
}

// Config configures a new Pool.
type Config struct {
	// Comparator orders the priority queue. Defaults to TipDescHashAsc.
	Comparator Comparator
	// MaxStaleness is stored on the Pool for use with FreshnessGate. GetTxs
	// does not consult it, under any comparator.
	MaxStaleness uint64
	Metrics      *metrics.Set
}

// NewPool constructs an empty Pool.
func NewPool(cfg Config) *Pool {
	cmp := cfg.Comparator
	if cmp == nil {
		cmp = TipDescHashAsc
	}
	return &Pool{
		comparator:   cmp,
		accounts:     make(map[domain.Address]*accountState),
		entries:      make(map[domain.TxHash]*poolEntry),
		priority:     newOrderedSet(cmp),
		pending:      newOrderedSet(PendingOrder),
		staged:       mapset.NewThreadUnsafeSet[domain.TxHash](),
		maxStaleness: cfg.MaxStaleness,
		log:          logging.For("mempool"),
		metrics:      cfg.Metrics,
	}
}

func (p *Pool) account(sender domain.Address) *accountState {
	a, ok := p.accounts[sender]
	if !ok {
		a = &accountState{byNonce: make(map[domain.Nonce]domain.TxHash)}
		p.accounts[sender] = a
	}
	return a
}

// frontier returns the next nonce for sender eligible to enter the
// priority queue: committed_nonce + offset_for_sender.
func (a *accountState) frontier() domain.Nonce {
	return a.committedNonce + domain.Nonce(a.stagedCount)
}

// AddTx admits tx into the pool, enforcing (P1)-(P3). See spec section 4.1.
func (p *Pool) AddTx(tx domain.MempoolTx) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := tx.Ref
	if _, exists := p.entries[ref.Hash]; exists {
		return ErrDuplicateHash
	}

	acct := p.account(ref.Sender)
	if ref.Nonce < acct.committedNonce {
		return &ErrNonceTooOld{Sender: ref.Sender, Nonce: ref.Nonce, CommittedNonce: acct.committedNonce}
	}

	if existingHash, occupied := acct.byNonce[ref.Nonce]; occupied {
		existing := p.entries[existingHash]
		if !ref.Less(existing.tx.Ref) {
			// The incoming tx is not strictly higher priority than the
			// occupant: reject rather than silently drop the existing one.
			return &ErrDuplicateNonce{Sender: ref.Sender, Nonce: ref.Nonce}
		}
		p.removeEntryFromQueues(existing)
		delete(p.entries, existingHash)
	}

	p.arrivalSeq++
	entry := &poolEntry{tx: tx, arrivalN: p.arrivalSeq}
	p.entries[ref.Hash] = entry
	acct.byNonce[ref.Nonce] = ref.Hash

	p.placeEntry(entry, ref, acct)
	p.reportDepth()
	return nil
}

// placeEntry inserts entry's ref into priority or pending per (P3) and the
// gas-threshold/frontier rules of spec section 3.
func (p *Pool) placeEntry(entry *poolEntry, ref domain.TransactionRef, acct *accountState) {
	ready := ref.Nonce == acct.frontier()
	aboveThreshold := ref.MaxL2GasPrice.Cmp(&p.gasThreshold) >= 0
	if ready && aboveThreshold {
		entry.loc = locPriority
		p.priority.insert(ref)
	} else {
		entry.loc = locPending
		p.pending.insert(ref)
	}
}

func (p *Pool) removeEntryFromQueues(entry *poolEntry) {
	switch entry.loc {
	case locPriority:
		p.priority.remove(entry.tx.Ref.Hash)
	case locPending:
		p.pending.remove(entry.tx.Ref.Hash)
	}
	entry.loc = locNone
}

// promoteFrontier moves sender's newly-ready frontier transaction (if any)
// from pending into priority when it clears the gas threshold, after the
// sender's stagedCount has advanced.
func (p *Pool) promoteFrontier(acct *accountState) {
	hash, ok := acct.byNonce[acct.frontier()]
	if !ok {
		return
	}
	entry := p.entries[hash]
	if entry.loc != locPending {
		return
	}
	ref := entry.tx.Ref
	if ref.MaxL2GasPrice.Cmp(&p.gasThreshold) < 0 {
		return
	}
	p.pending.remove(hash)
	entry.loc = locPriority
	p.priority.insert(ref)
}

// GetTxs returns up to n transactions from the priority queue, staging
// each. See spec section 4.1.
func (p *Pool) GetTxs(n int) []domain.MempoolTx {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.MempoolTx, 0, n)
	for len(out) < n {
		popped := p.priority.popFront(1)
		if len(popped) == 0 {
			break
		}
		ref := popped[0]
		entry := p.entries[ref.Hash]
		entry.loc = locStaged
		p.staged.Add(ref.Hash)
		out = append(out, entry.tx)

		acct := p.account(ref.Sender)
		acct.stagedCount++
		p.promoteFrontier(acct)
	}
	if len(out) > 0 {
		p.lastReturnedTS = out[len(out)-1].Ref.ArrivalTS
	}
	p.reportDepth()
	return out
}

// IsStaged reports whether hash is currently staged: handed to a
// proposer by GetTxs but not yet resolved by CommitBlock.
func (p *Pool) IsStaged(hash domain.TxHash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.staged.Contains(hash)
}

// UpdateGasPriceThreshold moves transactions across the priority/pending
// boundary to re-satisfy the threshold invariant. Idempotent.
func (p *Pool) UpdateGasPriceThreshold(g uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gasThreshold = g

	// Demote priority entries that no longer clear the new threshold.
	for _, ref := range p.priority.peekAll() {
		if ref.MaxL2GasPrice.Cmp(&g) < 0 {
			p.priority.remove(ref.Hash)
			p.entries[ref.Hash].loc = locPending
			p.pending.insert(ref)
		}
	}
	// Promote ready pending entries that now clear the new threshold.
	for sender, acct := range p.accounts {
		_ = sender
		p.promoteFrontier(acct)
	}
	p.reportDepth()
}

// CommitBlock advances committed nonces and rewinds staged-but-uncommitted
// transactions per the rewind policy in spec section 4.1.
func (p *Pool) CommitBlock(committedNonces map[domain.Address]domain.Nonce, rejectedHashes map[domain.TxHash]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	type rewindChain struct {
		acct *accountState
		hashes []domain.TxHash // staged hashes to rewind, in original arrival order.
	}
	var rewinds []rewindChain

	touched := make(map[domain.Address]struct{}, len(committedNonces))
	for sender := range committedNonces {
		touched[sender] = struct{}{}
	}
	for sender := range p.accounts {
		touched[sender] = struct{}{}
	}

	for sender := range touched {
		acct := p.account(sender)
		newCommitted, didCommit := committedNonces[sender]

		staged := p.stagedChain(acct)
		if len(staged) == 0 {
			if didCommit && newCommitted > acct.committedNonce {
				p.deleteBelow(acct, newCommitted)
				acct.committedNonce = newCommitted
				p.promoteFrontier(acct)
			}
			continue
		}

		if didCommit {
			p.deleteBelow(acct, newCommitted)
			acct.committedNonce = newCommitted
			acct.stagedCount = 0

			nextHash, hasNext := acct.byNonce[newCommitted]
			if hasNext {
				if _, rejected := rejectedHashes[nextHash]; rejected {
					// Entire post-commit staged chain for this sender
					// stays un-rewound (spec 4.1 step 2).
					p.discardStaged(acct, staged, newCommitted)
					continue
				}
			}
			rewinds = append(rewinds, rewindChain{acct: acct, hashes: p.stagedAbove(acct, staged, newCommitted)})
		} else {
			lowestHash := staged[0]
			if _, rejected := rejectedHashes[lowestHash]; rejected {
				p.discardStaged(acct, staged, acct.committedNonce)
				continue
			}
			acct.stagedCount = 0
			rewinds = append(rewinds, rewindChain{acct: acct, hashes: staged})
		}
	}

	// rewinds was built by ranging over touched, a map, so its order is
	// unspecified; sort by each chain's earliest arrival before pushing,
	// the same discipline commitBlockLocked's sortByArrival applies in
	// internal/l1provider/provider.go. Chains sort by descending arrival
	// so that insertFront (always index 0) leaves the chain that arrived
	// earliest at the very front once every chain has been pushed.
	sort.Slice(rewinds, func(i, j int) bool {
		return p.chainArrival(rewinds[i].hashes) > p.chainArrival(rewinds[j].hashes)
	})

	// Re-insert rewind chains at the front of the priority queue in
	// reverse staged order, so FIFO-by-arrival is restored once all
	// chains are pushed (spec 4.1 step 4).
	for _, rc := range rewinds {
		for i := len(rc.hashes) - 1; i >= 0; i-- {
			hash := rc.hashes[i]
			entry, ok := p.entries[hash]
			if !ok {
				continue
			}
			entry.loc = locPriority
			p.staged.Remove(hash)
			p.priority.insertFront(entry.tx.Ref)
		}
	}
	p.reportDepth()
}

// stagedChain returns the hashes of acct's staged transactions, ordered by
// nonce ascending (equivalently arrival order, since only a contiguous
// nonce run starting at the pre-commit committed nonce can be staged).
func (p *Pool) stagedChain(acct *accountState) []domain.TxHash {
	if acct.stagedCount == 0 {
		return nil
	}
	out := make([]domain.TxHash, 0, acct.stagedCount)
	start := acct.committedNonce
	for i := 0; i < acct.stagedCount; i++ {
		hash, ok := acct.byNonce[start+domain.Nonce(i)]
		if !ok {
			break
		}
		out = append(out, hash)
	}
	return out
}

// stagedAbove filters staged to only the hashes whose nonce is >= from.
func (p *Pool) stagedAbove(acct *accountState, staged []domain.TxHash, from domain.Nonce) []domain.TxHash {
	out := make([]domain.TxHash, 0, len(staged))
	for _, hash := range staged {
		entry, ok := p.entries[hash]
		if !ok || entry.tx.Ref.Nonce < from {
			continue
		}
		out = append(out, hash)
	}
	return out
}

// chainArrival returns the arrival sequence number of a rewind chain's
// earliest (lowest-nonce) hash, used to order chains deterministically
// before re-insertion. Chains with no resolvable entry sort last.
func (p *Pool) chainArrival(hashes []domain.TxHash) uint64 {
	if len(hashes) == 0 {
		return 0
	}
	entry, ok := p.entries[hashes[0]]
	if !ok {
		return 0
	}
	return entry.arrivalN
}

// deleteBelow removes every pool transaction of acct's sender with
// nonce < newCommitted (spec (I2)).
func (p *Pool) deleteBelow(acct *accountState, newCommitted domain.Nonce) {
	for nonce, hash := range acct.byNonce {
		if nonce >= newCommitted {
			continue
		}
		if entry, ok := p.entries[hash]; ok {
			p.removeEntryFromQueues(entry)
			p.staged.Remove(hash)
			delete(p.entries, hash)
		}
		delete(acct.byNonce, nonce)
	}
}

// discardStaged removes every staged transaction in staged from the pool
// entirely (used when a sender's rewind chain is skipped because its
// first post-commit transaction was rejected) and also purges everything
// below newCommitted.
func (p *Pool) discardStaged(acct *accountState, staged []domain.TxHash, newCommitted domain.Nonce) {
	for _, hash := range staged {
		entry, ok := p.entries[hash]
		if !ok {
			continue
		}
		delete(acct.byNonce, entry.tx.Ref.Nonce)
		p.staged.Remove(hash)
		delete(p.entries, hash)
	}
	acct.stagedCount = 0
	if newCommitted > acct.committedNonce {
		acct.committedNonce = newCommitted
	}
	p.deleteBelow(acct, acct.committedNonce)
}

func (p *Pool) reportDepth() {
	if p.metrics == nil {
		return
	}
	p.metrics.Gauge("priority_depth", nil, float64(p.priority.Len()))
	p.metrics.Gauge("pending_depth", nil, float64(p.pending.Len()))
	p.metrics.Gauge("staged_depth", nil, float64(p.staged.Cardinality()))
}
