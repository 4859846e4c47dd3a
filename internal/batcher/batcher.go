// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package batcher implements the Batcher of spec section 4.2: it drives a
// proposal's lifecycle end to end, from opening it with the execution
// collaborator through streaming transaction batches out over the wire to
// finalizing it into the process-wide valid-proposals map. Grounded on the
// teacher's background block-building task (reference/batcher/block_builder.go's
// shutdownWg-tracked goroutine consulting a shutdown channel at every
// suspension point), generalized here with golang.org/x/sync/errgroup and
// a per-proposal cancellation token instead of a single shared shutdown
// channel, per SPEC_FULL.md's domain stack wiring.
package batcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
	"github.com/starknet-sequencer/core/internal/metrics"
	"github.com/starknet-sequencer/core/internal/txprovider"
	"github.com/starknet-sequencer/core/internal/validproposals"
	"github.com/starknet-sequencer/core/internal/wire"
)

// Config bounds a Batcher's proposal execution.
type Config struct {
	// BatchSize is the n passed to the TransactionProvider's GetTxs on
	// each iteration of the content loop.
	BatchSize int
	// BlobWriteTimeout bounds the "await blob written" now_or_never call
	// (spec section 4.2 step 3).
	BlobWriteTimeout time.Duration
	// BlobWriteRateLimit bounds how often the blob-writer collaborator is
	// called, so a burst of finishing proposals can't hammer it. Nil
	// disables limiting (spec section 7's per-site timeout/fail policy
	// list, "blob-writer" entry).
	BlobWriteRateLimit *rate.Limiter
}

// Batcher drives the propose/validate lifecycle of proposals for one
// height at a time. Per spec section 5 it spawns one task per active
// proposal; Cancel stops that task at its next suspension point.
type Batcher struct {
	cfg Config

	exec  collaborators.Execution
	cende CendeClient

	valid *validproposals.Map

	metrics *metrics.Set
	log     logging.Logger

	mu      sync.Mutex
	cancels map[domain.ProposalID]context.CancelFunc
	grp     *errgroup.Group
}

// New constructs a Batcher. valid is the shared process-wide
// valid-proposals map (spec section 5); its Insert must happen before Fin
// is sent on the wire, which finish below enforces by ordering.
func New(cfg Config, exec collaborators.Execution, cende CendeClient, valid *validproposals.Map, metricsSet *metrics.Set) *Batcher {
	return &Batcher{
		cfg:     cfg,
		exec:    exec,
		cende:   cende,
		valid:   valid,
		metrics: metricsSet,
		log:     logging.For("batcher"),
		cancels: make(map[domain.ProposalID]context.CancelFunc),
		grp:     &errgroup.Group{},
	}
}

// ProposeBlock opens proposal id in propose mode and drives its content
// loop against provider (a txprovider.ProposeProvider), streaming the
// strictly ordered Init -> BlockInfo -> Transactions* ->
// ExecutedTransactionCount -> Fin sequence to out (spec section 5).
// ProposeBlock returns once the background task has been started; the
// caller drains out (and eventually reads the task's error via Wait) as
// the proposal progresses.
func (b *Batcher) ProposeBlock(ctx context.Context, id domain.ProposalID, blockInfo domain.BlockInfo, deadline time.Time, provider txprovider.Provider, out chan<- wire.ProposalPart) error {
	if err := b.exec.ProposeBlock(ctx, collaborators.ProposeBlockInput{
		ProposalID: id,
		BlockInfo:  blockInfo,
		Deadline:   deadline.UnixMilli(),
	}); err != nil {
		return err
	}
	b.emitInit(id, blockInfo, out)
	b.spawn(ctx, id, deadline, func(taskCtx context.Context) error {
		return b.runContentLoop(taskCtx, id, provider, out)
	})
	return nil
}

// ValidateBlock opens proposal id in validate mode and drives the same
// content loop shape, consuming provider (a txprovider.ValidateProvider)
// instead of the propose-side L1-then-mempool provider. The Provider
// abstraction (spec section 9) is what lets ProposeBlock and
// ValidateBlock share runContentLoop.
func (b *Batcher) ValidateBlock(ctx context.Context, id domain.ProposalID, blockInfo domain.BlockInfo, deadline time.Time, provider txprovider.Provider, out chan<- wire.ProposalPart) error {
	if err := b.exec.ValidateProposal(ctx, collaborators.ValidateProposalInput{
		ProposalID: id,
		BlockInfo:  blockInfo,
		Deadline:   deadline.UnixMilli(),
	}); err != nil {
		return err
	}
	b.emitInit(id, blockInfo, out)
	b.spawn(ctx, id, deadline, func(taskCtx context.Context) error {
		return b.runContentLoop(taskCtx, id, provider, out)
	})
	return nil
}

func (b *Batcher) emitInit(id domain.ProposalID, blockInfo domain.BlockInfo, out chan<- wire.ProposalPart) {
	out <- wire.ProposalPart{
		Kind:            wire.PartInit,
		Height:          blockInfo.Height,
		Proposer:        blockInfo.SequencerAddress,
		Timestamp:       blockInfo.Timestamp,
		L1DAMode:        blockInfo.L1DAMode,
		StarknetVersion: blockInfo.StarknetVersion,
	}
	out <- wire.ProposalPart{Kind: wire.PartBlockInfo}
}

// spawn registers a cancellation token for id and runs fn on the
// Batcher's task group, per spec section 5's "one task per active
// proposal, consulted at every content fetch".
func (b *Batcher) spawn(ctx context.Context, id domain.ProposalID, deadline time.Time, fn func(context.Context) error) {
	taskCtx, cancel := context.WithDeadline(ctx, deadline)
	b.mu.Lock()
	b.cancels[id] = cancel
	b.mu.Unlock()

	b.grp.Go(func() error {
		defer func() {
			cancel()
			b.mu.Lock()
			delete(b.cancels, id)
			b.mu.Unlock()
		}()
		err := fn(taskCtx)
		if err != nil && taskCtx.Err() != nil {
			return ErrInterrupted
		}
		return err
	})
}

// Cancel fires id's cancellation token. The proposal task's next
// suspension point returns ErrInterrupted with no partial commitment
// inserted into the valid-proposals map (spec section 5).
func (b *Batcher) Cancel(id domain.ProposalID) {
	b.mu.Lock()
	cancel, ok := b.cancels[id]
	delete(b.cancels, id)
	b.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every in-flight proposal task has returned, and
// returns the first non-nil error among them.
func (b *Batcher) Wait() error {
	return b.grp.Wait()
}

// runContentLoop repeatedly pulls a batch from provider, hands it to the
// execution collaborator, and streams the collaborator's response out
// until Finished, per spec section 4.2 steps 1-3.
func (b *Batcher) runContentLoop(ctx context.Context, id domain.ProposalID, provider txprovider.Provider, out chan<- wire.ProposalPart) error {
	var content []domain.InternalConsensusTransaction

	for {
		select {
		case <-ctx.Done():
			return ErrInterrupted
		default:
		}

		batch, err := provider.GetTxs(ctx, b.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := b.exec.SendProposalContent(ctx, collaborators.SendProposalContent{
				ProposalID: id,
				Content:    collaborators.ProposalContentStream{Txs: batch},
			}); err != nil {
				return err
			}
		}

		result, err := b.exec.GetProposalContent(ctx, id)
		if err != nil {
			return err
		}

		if !result.Finished {
			content = append(content, result.Txs...)
			if b.metrics != nil {
				b.metrics.Gauge("proposal_content_len", nil, float64(len(content)))
			}
			select {
			case out <- wire.ProposalPart{Kind: wire.PartTransactions, Transactions: result.Txs}:
			case <-ctx.Done():
				return ErrInterrupted
			}
			continue
		}

		return b.finish(ctx, id, result, content, out)
	}
}

// finish truncates content to final_n_executed_txs (I3; trailing
// elements of the last batch may straddle the block bound and must be
// dropped across batch boundaries), awaits the blob-writer, and emits
// ExecutedTransactionCount then Fin -- inserting into the valid-proposals
// map strictly before Fin goes out, closing the race with a repropose
// (spec section 4.2 step 3).
func (b *Batcher) finish(ctx context.Context, id domain.ProposalID, result collaborators.ProposalContent, content []domain.InternalConsensusTransaction, out chan<- wire.ProposalPart) error {
	if uint64(len(content)) > result.FinalNExecutedTxs {
		content = content[:result.FinalNExecutedTxs]
	}

	if b.cende != nil {
		if b.cfg.BlobWriteRateLimit != nil {
			if err := b.cfg.BlobWriteRateLimit.Wait(ctx); err != nil {
				return err
			}
		}
		if err := awaitBlobWritten(ctx, b.cende, id, b.cfg.BlobWriteTimeout); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ErrInterrupted
	default:
	}

	select {
	case out <- wire.ProposalPart{Kind: wire.PartExecutedTransactionCount, ExecutedCount: result.FinalNExecutedTxs}:
	case <-ctx.Done():
		return ErrInterrupted
	}

	b.valid.Insert(id.Height, result.StateDiffCommitment, collaborators.ProposalContent{
		Txs:                 content,
		Finished:            true,
		StateDiffCommitment: result.StateDiffCommitment,
		FinalNExecutedTxs:   result.FinalNExecutedTxs,
	})

	select {
	case out <- wire.ProposalPart{Kind: wire.PartFin, Commitment: result.StateDiffCommitment}:
	case <-ctx.Done():
		// Fin didn't make it onto the wire, but the map insertion above
		// already happened; a repropose can still find this commitment.
		return ErrInterrupted
	}

	return b.exec.DecisionReached(ctx, id)
}
