// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package batcher

import "errors"

// ErrInterrupted is returned by an in-flight proposal task when its
// cancellation token fires before the proposal finished (spec section 5:
// "the next suspension to return Interrupted with no partial commitment
// inserted into the valid-proposals map").
var ErrInterrupted = errors.New("batcher: proposal interrupted")

// ErrWrongHeight reports a commit-block notification for a height older
// than the one the Batcher currently has open. No method of Batcher in this
// package returns it.
var ErrWrongHeight = errors.New("batcher: wrong height")

// Blob-writer ("cende") outcomes (spec section 7): the three outcomes are
// distinct error variants rather than a bare bool, per SPEC_FULL.md's
// supplemented feature 5.
var (
	ErrBlobWriteFailed        = errors.New("batcher: blob write reported failure")
	ErrBlobWriteTaskPanicked  = errors.New("batcher: blob write task panicked")
	ErrBlobWriteDidNotRespond = errors.New("batcher: blob write did not respond in time")
)
