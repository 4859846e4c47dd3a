// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package daemon

import (
	"context"
	"errors"

	"github.com/starknet-sequencer/core/internal/batcher"
	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
)

// ErrNoExecutionConfigured is returned by NoopExecution's methods: a
// standalone sequencer process has no execution engine of its own (spec
// section 9 keeps Execution behind a narrow interface deliberately; a real
// deployment substitutes its own implementation for Deps.Execution).
var ErrNoExecutionConfigured = errors.New("daemon: no execution engine configured")

// NoopExecution is the default Deps.Execution for cmd/sequencer when run
// standalone (e.g. to exercise the storage subcommands or the metrics
// endpoint) without an embedding execution engine.
type NoopExecution struct{}

func (NoopExecution) ProposeBlock(ctx context.Context, in collaborators.ProposeBlockInput) error {
	return ErrNoExecutionConfigured
}

func (NoopExecution) GetProposalContent(ctx context.Context, id domain.ProposalID) (collaborators.ProposalContent, error) {
	return collaborators.ProposalContent{}, ErrNoExecutionConfigured
}

func (NoopExecution) ValidateProposal(ctx context.Context, in collaborators.ValidateProposalInput) error {
	return ErrNoExecutionConfigured
}

func (NoopExecution) SendProposalContent(ctx context.Context, in collaborators.SendProposalContent) error {
	return ErrNoExecutionConfigured
}

func (NoopExecution) DecisionReached(ctx context.Context, id domain.ProposalID) error {
	return ErrNoExecutionConfigured
}

var _ collaborators.Execution = NoopExecution{}

// NoopL2Sync is the default Deps.L2Sync for standalone operation.
type NoopL2Sync struct{}

func (NoopL2Sync) GetBlock(ctx context.Context, height domain.Height) ([]byte, error) {
	return nil, ErrNoExecutionConfigured
}

func (NoopL2Sync) GetLatestBlockNumber(ctx context.Context) (domain.Height, error) {
	return 0, ErrNoExecutionConfigured
}

func (NoopL2Sync) GetNonceAt(ctx context.Context, addr domain.Address, height domain.Height) (domain.Nonce, error) {
	return 0, ErrNoExecutionConfigured
}

func (NoopL2Sync) GetStorageAt(ctx context.Context, addr domain.Address, key domain.TxHash, height domain.Height) ([]byte, error) {
	return nil, ErrNoExecutionConfigured
}

func (NoopL2Sync) GetClassHashAt(ctx context.Context, addr domain.Address, height domain.Height) (domain.TxHash, error) {
	return domain.TxHash{}, ErrNoExecutionConfigured
}

func (NoopL2Sync) IsClassDeclaredAt(ctx context.Context, classHash domain.TxHash, height domain.Height) (bool, error) {
	return false, ErrNoExecutionConfigured
}

var _ collaborators.L2StateSync = NoopL2Sync{}

// NoopCende always reports success without writing anything, for
// standalone operation without a real blob-writer.
type NoopCende struct{}

func (NoopCende) AwaitBlobWritten(ctx context.Context, id domain.ProposalID) (batcher.CendeOutcome, error) {
	return batcher.CendeSuccess, nil
}

var _ batcher.CendeClient = NoopCende{}
