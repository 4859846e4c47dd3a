// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txprovider implements the TransactionProvider abstraction of
// spec section 9: a single variant-set the Batcher consumes, realized here
// as two concrete types, ProposeProvider and ValidateProvider, behind a
// shared Provider interface. Grounded on the teacher's block_builder
// signal-loop pattern (reference/batcher/block_builder.go) for the
// propose-side phase machine, generalized from go-ethereum's "build until
// full" loop to the two-phase L1-then-mempool order spec section 4.2
// requires.
package txprovider

import (
	"context"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/l1provider"
)

// Provider is the abstraction the Batcher drives via GetTxs, regardless of
// whether it is building (propose) or consuming (validate) a block's
// transaction stream.
type Provider interface {
	GetTxs(ctx context.Context, n int) ([]domain.InternalConsensusTransaction, error)
}

// Mempool is the narrow slice of internal/mempool.Pool/Task the propose
// side needs.
type Mempool interface {
	GetTxs(n int) []domain.MempoolTx
}

// L1Source is the narrow slice of internal/l1provider.Provider the
// propose side needs.
type L1Source interface {
	GetTxs(n int, height domain.Height) ([]domain.L1HandlerTx, error)
}

// L1Validator is the narrow slice of internal/l1provider.Provider the
// validate side needs.
type L1Validator interface {
	Validate(hash domain.TxHash, height domain.Height) (l1provider.ValidationResult, error)
}

// AllowListFilter is the optional timestamp/allow-list external service
// consulted in Mempool phase. A failure fails open: the caller must still
// return the unfiltered batch and record the failure itself.
type AllowListFilter interface {
	Filter(ctx context.Context, txs []domain.MempoolTx) ([]domain.MempoolTx, error)
}
