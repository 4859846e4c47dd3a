// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"sort"

	"github.com/starknet-sequencer/core/internal/domain"
)

// Comparator orders two transaction refs within a queue. The mempool is
// policy-parametric over this comparator (spec section 9, open question 3):
// TipDescHashAsc is the default priority-queue order; FIFOByArrival
// implements the alternative FIFO transaction queue variant.
type Comparator func(a, b domain.TransactionRef) bool

// TipDescHashAsc orders by tip desc, then hash asc. This is the default
// priority-queue comparator required by spec section 4.1.
func TipDescHashAsc(a, b domain.TransactionRef) bool { return a.Less(b) }

// PendingOrder orders the pending queue by max_l2_gas_price desc, then hash
// asc for determinism.
func PendingOrder(a, b domain.TransactionRef) bool {
	cmp := a.MaxL2GasPrice.Cmp(&b.MaxL2GasPrice)
	if cmp != 0 {
		return cmp > 0
	}
	return a.Less(b)
}

// FIFOByArrival orders strictly by arrival timestamp, breaking ties by hash.
// It models the FIFO transaction queue variant referenced in original_source
// apollo_mempool/src/fifo_transaction_queue.rs. The "last returned
// timestamp" freshness check is the separate FreshnessGate below; Pool's
// GetTxs does not apply it.
func FIFOByArrival(a, b domain.TransactionRef) bool {
	if a.ArrivalTS != b.ArrivalTS {
		return a.ArrivalTS < b.ArrivalTS
	}
	return a.Less(b)
}

// FreshnessGate reports whether ref is fresh enough to be returned by
// get_txs under the FIFO policy variant: it must have arrived no earlier
// than lastReturnedTS - maxStaleness, preventing a long-idle batch of old
// transactions from repeatedly winning over newly-arrived high-value ones.
// It is a standalone predicate: Pool.GetTxs does not call it, whichever
// comparator the pool is constructed with.
func FreshnessGate(ref domain.TransactionRef, lastReturnedTS uint64, maxStaleness uint64) bool {
	if lastReturnedTS == 0 {
		return true
	}
	if ref.ArrivalTS+maxStaleness < lastReturnedTS {
		return false
	}
	return true
}

// orderedSet is a sorted set of TransactionRefs, kept sorted by a
// Comparator. Insert/remove are O(n); pool sizes in this sequencer are
// bounded well below where that matters, and determinism is the priority
// over asymptotic performance.
type orderedSet struct {
	less Comparator
	refs []domain.TransactionRef
}

func newOrderedSet(less Comparator) *orderedSet {
	return &orderedSet{less: less}
}

func (s *orderedSet) Len() int { return len(s.refs) }

func (s *orderedSet) insert(ref domain.TransactionRef) {
	i := sort.Search(len(s.refs), func(i int) bool { return !s.less(s.refs[i], ref) })
	s.refs = append(s.refs, domain.TransactionRef{})
	copy(s.refs[i+1:], s.refs[i:])
	s.refs[i] = ref
}

func (s *orderedSet) remove(hash domain.TxHash) bool {
	for i, r := range s.refs {
		if r.Hash == hash {
			s.refs = append(s.refs[:i], s.refs[i+1:]...)
			return true
		}
	}
	return false
}

// insertFront places ref at the very front of the set, bypassing the
// comparator ordering. Used by the rewind policy (spec section 4.1) to
// restore FIFO-by-arrival order for a chain of rewound transactions
// without perturbing the relative order of everything else already queued.
func (s *orderedSet) insertFront(ref domain.TransactionRef) {
	s.refs = append(s.refs, domain.TransactionRef{})
	copy(s.refs[1:], s.refs)
	s.refs[0] = ref
}

// popFront removes and returns up to n refs from the front of the set.
func (s *orderedSet) popFront(n int) []domain.TransactionRef {
	if n > len(s.refs) {
		n = len(s.refs)
	}
	out := make([]domain.TransactionRef, n)
	copy(out, s.refs[:n])
	s.refs = s.refs[n:]
	return out
}

func (s *orderedSet) peekAll() []domain.TransactionRef {
	out := make([]domain.TransactionRef, len(s.refs))
	copy(out, s.refs)
	return out
}
