// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package batcher

import (
	"context"
	"fmt"
	"time"

	"github.com/starknet-sequencer/core/internal/domain"
)

// CendeOutcome is the result a blob-writer collaborator reports for a
// finished proposal's state diff. Grounded on the Rust
// apollo_batcher/src/cende_client_types.rs three-outcome result type
// (SPEC_FULL.md supplemented feature 5), instead of collapsing to a bare
// bool.
type CendeOutcome int

const (
	CendeSuccess CendeOutcome = iota
	CendeFailure
)

// CendeClient is the "blob written" collaborator the Batcher awaits after
// a proposal finishes (spec section 4.2 step 3). Write calls are expected
// to be fast; AwaitBlobWritten itself may still block until ctx is done.
type CendeClient interface {
	AwaitBlobWritten(ctx context.Context, id domain.ProposalID) (CendeOutcome, error)
}

// awaitBlobWritten calls client.AwaitBlobWritten with now_or_never
// semantics: success, failure, and "didn't return in time" are all
// reported as distinct, typed outcomes (spec section 7), and a panic
// inside the client is caught and reported rather than crashing the
// Batcher's proposal task, mirroring the teacher's recover()-based guard
// on awaitSubmittedTxs (reference/batcher/block_builder.go) but without
// the re-panic: a blob-write failure only abandons this one proposal, it
// does not poison the Batcher.
func awaitBlobWritten(ctx context.Context, client CendeClient, id domain.ProposalID, deadline time.Duration) error {
	type outcome struct {
		result CendeOutcome
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", ErrBlobWriteTaskPanicked, r)}
			}
		}()
		result, err := client.AwaitBlobWritten(ctx, id)
		ch <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		if res.result == CendeFailure {
			return ErrBlobWriteFailed
		}
		return nil
	case <-timer.C:
		return ErrBlobWriteDidNotRespond
	case <-ctx.Done():
		return ctx.Err()
	}
}
