// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txprovider

import (
	"context"
	"fmt"
	"sync"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/l1provider"
	"github.com/starknet-sequencer/core/internal/logging"
)

// L1HandlerValidationFailed wraps a non-Validated outcome from the L1
// provider's Validate call, surfaced as a typed sub-status per spec
// section 7.
type L1HandlerValidationFailed struct {
	Hash   domain.TxHash
	Result l1provider.ValidationResult
}

func (e *L1HandlerValidationFailed) Error() string {
	return fmt.Sprintf("txprovider: l1 handler %v failed validation: %s", e.Hash, e.Result)
}

// ValidateProvider implements Provider in validate mode: it owns a bounded
// inbound queue fed by the network stream, and a one-shot
// final_n_executed_txs signal (spec section 4.2).
type ValidateProvider struct {
	mu sync.Mutex

	height domain.Height
	l1     L1Validator

	inbound chan domain.InternalConsensusTransaction
	finalN  chan uint64

	finalNDelivered bool

	log logging.Logger
}

// NewValidateProvider constructs a ValidateProvider for height, backed by
// an inbound channel of capacity queueCapacity.
func NewValidateProvider(height domain.Height, l1 L1Validator, queueCapacity int) *ValidateProvider {
	return &ValidateProvider{
		height:  height,
		l1:      l1,
		inbound: make(chan domain.InternalConsensusTransaction, queueCapacity),
		finalN:  make(chan uint64, 1),
		log:     logging.For("txprovider.validate"),
	}
}

// Push delivers one transaction from the network stream into the inbound
// queue. Blocks if the queue is full (bounded-channel backpressure, spec
// section 5).
func (v *ValidateProvider) Push(ctx context.Context, tx domain.InternalConsensusTransaction) error {
	select {
	case v.inbound <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeclareFinalNExecutedTxs delivers the stream's one-shot length signal.
func (v *ValidateProvider) DeclareFinalNExecutedTxs(n uint64) {
	v.finalN <- n
}

// GetTxs drains up to n transactions from the inbound queue without
// blocking beyond what the sender has already delivered. Each L1-handler
// tx is validated against the L1 provider; a non-Validated result errors.
func (v *ValidateProvider) GetTxs(ctx context.Context, n int) ([]domain.InternalConsensusTransaction, error) {
	out := make([]domain.InternalConsensusTransaction, 0, n)
	for len(out) < n {
		select {
		case tx := <-v.inbound:
			if tx.IsL1 {
				result, err := v.l1.Validate(tx.Hash, v.height)
				if err != nil {
					return nil, err
				}
				if result != l1provider.Validated {
					return nil, &L1HandlerValidationFailed{Hash: tx.Hash, Result: result}
				}
			}
			out = append(out, tx)
		default:
			return out, nil
		}
	}
	return out, nil
}

// GetFinalNExecutedTxs returns the stream's declared length exactly once;
// subsequent calls return (0, false).
func (v *ValidateProvider) GetFinalNExecutedTxs() (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalNDelivered {
		return 0, false
	}
	select {
	case n := <-v.finalN:
		v.finalNDelivered = true
		return n, true
	default:
		return 0, false
	}
}
