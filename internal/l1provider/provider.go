// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package l1provider maintains the ordered, deduplicated buffer of L1->L2
// messages described in spec section 4.4, and its bootstrap catch-up
// protocol (bootstrap.go). It is grounded on the teacher's warp backend
// (reference/warp/backend.go): both are a replica of externally-sourced
// messages with a signature/validity cache in front, reshaped here around
// an ordered uncommitted/committed/proposed set machine instead of a
// signature cache.
package l1provider

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
	"github.com/starknet-sequencer/core/internal/metrics"
)

// State is the L1 provider's session state machine: Bootstrap -> Pending
// <-> Propose/Validate.
type State int

const (
	StateBootstrap State = iota
	StatePending
	StatePropose
	StateValidate
)

func (s State) String() string {
	switch s {
	case StateBootstrap:
		return "bootstrap"
	case StatePending:
		return "pending"
	case StatePropose:
		return "propose"
	case StateValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// ValidationResult is the outcome of Validate.
type ValidationResult int

const (
	Validated ValidationResult = iota
	AlreadyIncludedInProposedBlock
	AlreadyIncludedOnL2
	ConsumedOnL1OrUnknown
	L1ProviderError
)

func (r ValidationResult) String() string {
	switch r {
	case Validated:
		return "validated"
	case AlreadyIncludedInProposedBlock:
		return "already_included_in_proposed_block"
	case AlreadyIncludedOnL2:
		return "already_included_on_l2"
	case ConsumedOnL1OrUnknown:
		return "consumed_on_l1_or_unknown"
	default:
		return "l1_provider_error"
	}
}

// Provider is the single task owning the L1->L2 message buffer. Per spec
// section 5 it runs on one task; methods here are safe for direct
// concurrent use, guarded by mu.
type Provider struct {
	mu sync.Mutex

	state         State
	currentHeight domain.Height

	// uncommitted preserves insertion order (spec section 3).
	uncommitted []domain.L1HandlerTx
	// proposed holds uncommitted txs handed out by GetTxs for the current
	// Propose-session height, keyed by hash.
	proposed map[domain.TxHash]domain.L1HandlerTx
	// committed is append-only within a height and cleared only by never:
	// spec (I5) requires uncommitted ∩ committed = ∅ at all times, so a
	// hash is removed from uncommitted the instant it enters committed.
	committed mapset.Set[domain.TxHash]

	// bootstrap, if attached, receives CommitBlock calls that arrive for
	// a height ahead of currentHeight while still in StateBootstrap,
	// instead of being rejected outright.
	bootstrap *Bootstrap

	log     logging.Logger
	metrics *metrics.Set
}

// New constructs a Provider starting in Bootstrap at height 0. Use
// NewBootstrap (bootstrap.go) to drive it through catch-up.
func New(metricsSet *metrics.Set) *Provider {
	return &Provider{
		state:     StateBootstrap,
		proposed:  make(map[domain.TxHash]domain.L1HandlerTx),
		committed: mapset.NewThreadUnsafeSet[domain.TxHash](),
		log:       logging.For("l1provider"),
		metrics:   metricsSet,
	}
}

// AttachBootstrap wires b so out-of-order CommitBlock calls received
// while still in StateBootstrap are buffered into b's backlog instead of
// rejected with ErrWrongHeight.
func (p *Provider) AttachBootstrap(b *Bootstrap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bootstrap = b
}

// State reports the provider's current session state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentHeight reports the height the provider believes is next to
// commit.
func (p *Provider) CurrentHeight() domain.Height {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentHeight
}

// StartBlock opens a Propose or Validate session for height, per spec
// section 4.4's state diagram (Pending <-> Propose/Validate).
func (p *Provider) StartBlock(height domain.Height, propose bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if height != p.currentHeight {
		return ErrWrongHeight
	}
	if propose {
		p.state = StatePropose
	} else {
		p.state = StateValidate
	}
	return nil
}

// EndBlock returns the provider to Pending without advancing height,
// e.g. when a proposal/validation is abandoned before a decision.
func (p *Provider) EndBlock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StatePending
}

// GetTxs returns up to n uncommitted L1 handlers in insertion order,
// moving each into the proposed set. Only valid in a Propose session for
// height (spec section 4.4).
func (p *Provider) GetTxs(n int, height domain.Height) ([]domain.L1HandlerTx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePropose || height != p.currentHeight {
		return nil, ErrOutOfSessionGetTransactions
	}
	if n > len(p.uncommitted) {
		n = len(p.uncommitted)
	}
	out := make([]domain.L1HandlerTx, n)
	copy(out, p.uncommitted[:n])
	p.uncommitted = p.uncommitted[n:]
	for _, tx := range out {
		p.proposed[tx.Hash] = tx
	}
	p.reportDepth()
	return out, nil
}

// Validate reports hash's status. Only valid in a Validate session for
// height (spec section 4.4).
func (p *Provider) Validate(hash domain.TxHash, height domain.Height) (ValidationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateValidate || height != p.currentHeight {
		return L1ProviderError, ErrOutOfSessionValidate
	}
	if p.committed.Contains(hash) {
		return AlreadyIncludedOnL2, nil
	}
	if _, ok := p.proposed[hash]; ok {
		return AlreadyIncludedInProposedBlock, nil
	}
	for _, tx := range p.uncommitted {
		if tx.Hash == hash {
			return Validated, nil
		}
	}
	return ConsumedOnL1OrUnknown, nil
}

// ProcessL1Events appends newly seen L1->L2 messages to the uncommitted
// buffer, preserving order. Idempotent: a hash already committed or
// already uncommitted is skipped (R1).
func (p *Provider) ProcessL1Events(events []domain.L1HandlerTx) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processL1EventsLocked(events)
}

func (p *Provider) processL1EventsLocked(events []domain.L1HandlerTx) {
	for _, ev := range events {
		if p.committed.Contains(ev.Hash) {
			continue
		}
		if p.containsUncommittedLocked(ev.Hash) {
			continue
		}
		ev.Status = domain.L1HandlerUncommitted
		p.uncommitted = append(p.uncommitted, ev)
	}
	p.reportDepth()
}

func (p *Provider) containsUncommittedLocked(hash domain.TxHash) bool {
	for _, tx := range p.uncommitted {
		if tx.Hash == hash {
			return true
		}
	}
	return false
}

// CommitBlock advances the provider to height+1, removes committed
// (including rejected, which also consumes the L1 message) hashes from
// the uncommitted/proposed sets, and returns any proposed-but-not-
// committed hashes to the head of uncommitted (spec section 4.4). height
// must equal the provider's current height, or ErrWrongHeight is returned
// and no state changes (R2). The one exception: in StateBootstrap with a
// Bootstrap attached, a height above the current one is handed to the
// Bootstrap's buffer and nil is returned.
func (p *Provider) CommitBlock(hashes, rejected []domain.TxHash, height domain.Height) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitBlockLocked(hashes, rejected, height)
}

func (p *Provider) commitBlockLocked(hashes, rejected []domain.TxHash, height domain.Height) error {
	if height != p.currentHeight {
		// A commit for a height beyond what's processable arrives while
		// still catching up: defer it to the attached Bootstrap's backlog
		// instead of rejecting it outright (spec section 4.4).
		if p.state == StateBootstrap && height > p.currentHeight && p.bootstrap != nil {
			p.bootstrap.BufferCommitBlock(hashes, rejected, height)
			return nil
		}
		return ErrWrongHeight
	}

	consumed := mapset.NewThreadUnsafeSet(hashes...)
	consumed.Append(rejected...)
	for h := range consumed.Iter() {
		p.committed.Add(h)
		delete(p.proposed, h)
	}
	p.uncommitted = filterOutHashes(p.uncommitted, consumed)

	// Proposed-but-not-committed hashes return to the head of uncommitted,
	// preserving their original relative order.
	var returning []domain.L1HandlerTx
	for hash, tx := range p.proposed {
		if consumed.Contains(hash) {
			continue
		}
		tx.Status = domain.L1HandlerUncommitted
		returning = append(returning, tx)
	}
	sortByArrival(returning)
	p.uncommitted = append(returning, p.uncommitted...)
	p.proposed = make(map[domain.TxHash]domain.L1HandlerTx)

	p.currentHeight = height + 1
	p.state = StatePending
	p.reportDepth()
	return nil
}

func filterOutHashes(txs []domain.L1HandlerTx, drop mapset.Set[domain.TxHash]) []domain.L1HandlerTx {
	out := txs[:0]
	for _, tx := range txs {
		if drop.Contains(tx.Hash) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// sortByArrival restores the original L1-block-height insertion order of a
// set of proposed txs pulled back from a map (whose iteration order is
// unspecified).
func sortByArrival(txs []domain.L1HandlerTx) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j-1].L1BlockHeight > txs[j].L1BlockHeight; j-- {
			txs[j-1], txs[j] = txs[j], txs[j-1]
		}
	}
}

func (p *Provider) reportDepth() {
	if p.metrics == nil {
		return
	}
	p.metrics.Gauge("uncommitted_depth", nil, float64(len(p.uncommitted)))
	p.metrics.Gauge("proposed_depth", nil, float64(len(p.proposed)))
}
