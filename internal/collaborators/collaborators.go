// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package collaborators declares the typed interfaces the sequencer core
// consumes from the rest of the node: the execution engine, L2 state sync,
// and storage. Grounded on the teacher's interfaces package
// (reference pattern: plugin/evm defines narrow consumer-side interfaces
// against which the VM and its companions are mocked in tests), these are
// plain typed interfaces per spec section 9 ("no inheritance hierarchies").
package collaborators

import (
	"context"

	"github.com/starknet-sequencer/core/internal/domain"
)

// ProposeBlockInput opens a new proposal with the execution collaborator.
type ProposeBlockInput struct {
	ProposalID domain.ProposalID
	BlockInfo  domain.BlockInfo
	Deadline   int64 // unix millis
}

// ValidateProposalInput opens a validation session with the execution
// collaborator.
type ValidateProposalInput struct {
	ProposalID domain.ProposalID
	BlockInfo  domain.BlockInfo
	Deadline   int64
}

// SendProposalContent streams a batch of transactions into an open
// validation session.
type SendProposalContent struct {
	ProposalID domain.ProposalID
	Content    ProposalContentStream
}

// ProposalContentStream is one message of a validate-mode content stream:
// either more transactions, or a finish signal.
type ProposalContentStream struct {
	Txs      []domain.InternalConsensusTransaction
	Finished bool
}

// ProposalContent is the result of a call to GetProposalContent: either a
// batch of transactions, or the terminal Finished signal.
type ProposalContent struct {
	Txs      []domain.InternalConsensusTransaction
	Finished bool

	StateDiffCommitment domain.ProposalCommitment
	FinalNExecutedTxs   uint64
}

// Execution is the engine that actually builds or validates blocks. The
// Batcher is its sole caller.
type Execution interface {
	ProposeBlock(ctx context.Context, in ProposeBlockInput) error
	GetProposalContent(ctx context.Context, id domain.ProposalID) (ProposalContent, error)
	ValidateProposal(ctx context.Context, in ValidateProposalInput) error
	SendProposalContent(ctx context.Context, in SendProposalContent) error
	DecisionReached(ctx context.Context, id domain.ProposalID) error
}

// L2StateSync is consumed by the L1 provider's Bootstrap to learn the
// chain's current height and, by the Commitment Manager, to read historical
// state.
type L2StateSync interface {
	GetBlock(ctx context.Context, height domain.Height) ([]byte, error)
	GetLatestBlockNumber(ctx context.Context) (domain.Height, error)
	GetNonceAt(ctx context.Context, addr domain.Address, height domain.Height) (domain.Nonce, error)
	GetStorageAt(ctx context.Context, addr domain.Address, key domain.TxHash, height domain.Height) ([]byte, error)
	GetClassHashAt(ctx context.Context, addr domain.Address, height domain.Height) (domain.TxHash, error)
	IsClassDeclaredAt(ctx context.Context, classHash domain.TxHash, height domain.Height) (bool, error)
}

// MarkerKind names one of the storage collaborator's named next-expected
// block number markers.
type MarkerKind string

const (
	MarkerHeader     MarkerKind = "header"
	MarkerStateDiff  MarkerKind = "state_diff"
	MarkerGlobalRoot MarkerKind = "global_root"
)

// Storage is the read-only transactional view over persisted block headers,
// state diffs, transactions, classes, and markers (spec section 6).
type Storage interface {
	GetMarker(ctx context.Context, kind MarkerKind) (domain.Height, error)
	GetHeader(ctx context.Context, height domain.Height) ([]byte, error)
	GetStateDiff(ctx context.Context, height domain.Height) ([]byte, error)
	GetTransactionCount(ctx context.Context, height domain.Height) (uint64, error)
}
