// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package commitmentmanager implements the bounded work-queue pipeline of
// spec section 4.2: state diffs come in, commitments come out in height
// order. Grounded on the teacher's background-worker pattern
// (reference/batcher/block_builder.go's shutdownWg-tracked goroutine),
// generalized with golang.org/x/sync/errgroup for the worker's lifecycle
// and cancellation instead of a raw WaitGroup, per SPEC_FULL.md's domain
// stack wiring.
package commitmentmanager

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
)

// FullChannelPolicy selects what happens when the input channel is full.
type FullChannelPolicy int

const (
	// FullChannelBlock backpressures the caller until a slot frees up.
	FullChannelBlock FullChannelPolicy = iota
	// FullChannelPanic treats a full channel as a fatal configuration
	// error (spec section 7's "fatal errors... propagated").
	FullChannelPanic
)

// WrongTaskHeight is returned by AddCommitmentTask when height does not
// equal the next expected offset.
type WrongTaskHeight struct {
	Expected domain.Height
	Actual   domain.Height
}

func (e *WrongTaskHeight) Error() string {
	return fmt.Sprintf("commitmentmanager: wrong task height: expected %d, got %d", e.Expected, e.Actual)
}

// CommitmentTask is one unit of input work: a state diff at height,
// optionally carrying a precomputed commitment (skipping recomputation).
type CommitmentTask struct {
	Height                      domain.Height
	StateDiff                   []byte
	PrecomputedCommitment       *domain.ProposalCommitment
}

// CommitmentResult is one unit of output, delivered in height order.
type CommitmentResult struct {
	Height     domain.Height
	Commitment domain.ProposalCommitment
}

// Hasher computes a proposal commitment from a state diff. Production
// wiring supplies the execution collaborator's state-diff hash function;
// tests supply a deterministic stand-in.
type Hasher interface {
	Hash(stateDiff []byte) domain.ProposalCommitment
}

// Manager runs the commitment pipeline: a single worker consuming tasks
// from a bounded input channel, in the order AddCommitmentTask enforces,
// and publishing results on Results in the same order.
type Manager struct {
	hasher Hasher
	policy FullChannelPolicy

	tasks   chan CommitmentTask
	Results chan CommitmentResult

	nextExpected domain.Height

	log logging.Logger
	grp *errgroup.Group
}

// New constructs a Manager. storage and globalRootHeight/stateDiffHeight
// drive the startup catch-up described in spec section 4.2 and
// SPEC_FULL.md's supplemented feature 1: if globalRootHeight trails
// stateDiffHeight, catch-up tasks for the missing heights are enqueued
// from storage before live tasks are accepted.
func New(ctx context.Context, hasher Hasher, capacity int, policy FullChannelPolicy, storage collaborators.Storage, globalRootHeight, stateDiffHeight domain.Height) (*Manager, error) {
	m := &Manager{
		hasher:       hasher,
		policy:       policy,
		tasks:        make(chan CommitmentTask, capacity),
		Results:      make(chan CommitmentResult, capacity),
		nextExpected: globalRootHeight,
		log:          logging.For("commitmentmanager"),
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	m.grp = grp
	grp.Go(func() error { return m.run(grpCtx) })

	if globalRootHeight < stateDiffHeight {
		if err := m.enqueueCatchUp(grpCtx, storage, globalRootHeight, stateDiffHeight); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) enqueueCatchUp(ctx context.Context, storage collaborators.Storage, from, to domain.Height) error {
	for h := from; h < to; h++ {
		diff, err := storage.GetStateDiff(ctx, h)
		if err != nil {
			return fmt.Errorf("commitmentmanager: catch-up read at height %d: %w", h, err)
		}
		if err := m.AddCommitmentTask(ctx, CommitmentTask{Height: h, StateDiff: diff}); err != nil {
			return err
		}
	}
	return nil
}

// AddCommitmentTask enqueues task. Errors WrongTaskHeight unless
// task.Height equals the next expected offset; advances the offset on
// success.
func (m *Manager) AddCommitmentTask(ctx context.Context, task CommitmentTask) error {
	if task.Height != m.nextExpected {
		return &WrongTaskHeight{Expected: m.nextExpected, Actual: task.Height}
	}

	switch m.policy {
	case FullChannelPanic:
		select {
		case m.tasks <- task:
		default:
			panic(fmt.Sprintf("commitmentmanager: task channel full at height %d", task.Height))
		}
	default:
		select {
		case m.tasks <- task:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.nextExpected++
	return nil
}

// Close stops accepting new tasks and waits for the worker to drain.
func (m *Manager) Close() error {
	close(m.tasks)
	err := m.grp.Wait()
	close(m.Results)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Manager) run(ctx context.Context) error {
	for task := range m.tasks {
		var commitment domain.ProposalCommitment
		if task.PrecomputedCommitment != nil {
			commitment = *task.PrecomputedCommitment
		} else {
			commitment = m.hasher.Hash(task.StateDiff)
		}
		select {
		case m.Results <- CommitmentResult{Height: task.Height, Commitment: commitment}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
