// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/starknet-sequencer/core/internal/domain"
)

// request is a closure executed on Task's single goroutine, giving direct,
// lock-free access to the underlying Pool from inside the task.
type request func(p *Pool)

// Task serializes all Pool operations through a single goroutine and a
// bounded request channel, realizing the "mempool runs on a single task"
// model of spec section 5 the way the teacher's TxPool.loop serializes
// subpool resets against a single head-updater goroutine
// (reference/txpool/txpool.go). Pool itself is already safe for direct
// concurrent use; Task exists for callers that want the channel-based
// suspension points spec section 5 describes explicitly.
type Task struct {
	pool *Pool
	reqs chan request
	done chan struct{}
}

// NewTask wraps pool with a single-goroutine request loop. capacity bounds
// the request channel (backpressure point callers suspend on).
func NewTask(pool *Pool, capacity int) *Task {
	t := &Task{
		pool: pool,
		reqs: make(chan request, capacity),
		done: make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Task) run() {
	defer close(t.done)
	for req := range t.reqs {
		req(t.pool)
	}
}

// Close stops accepting new requests once all enqueued ones have run.
func (t *Task) Close() {
	close(t.reqs)
	<-t.done
}

// AddTx enqueues an AddTx request and blocks until it completes or ctx is
// done (a suspension point per spec section 5).
func (t *Task) AddTx(ctx context.Context, tx domain.MempoolTx) error {
	reply := make(chan error, 1)
	select {
	case t.reqs <- func(p *Pool) { reply <- p.AddTx(tx) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetTxs enqueues a GetTxs request and blocks until it completes.
func (t *Task) GetTxs(ctx context.Context, n int) ([]domain.MempoolTx, error) {
	reply := make(chan []domain.MempoolTx, 1)
	select {
	case t.reqs <- func(p *Pool) { reply <- p.GetTxs(n) }:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case txs := <-reply:
		return txs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CommitBlock enqueues a CommitBlock request and blocks until it completes.
func (t *Task) CommitBlock(ctx context.Context, committedNonces map[domain.Address]domain.Nonce, rejectedHashes map[domain.TxHash]struct{}) error {
	reply := make(chan struct{}, 1)
	select {
	case t.reqs <- func(p *Pool) { p.CommitBlock(committedNonces, rejectedHashes); reply <- struct{}{} }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateGasPriceThreshold enqueues a threshold update and blocks until it
// completes.
func (t *Task) UpdateGasPriceThreshold(ctx context.Context, g uint256.Int) error {
	reply := make(chan struct{}, 1)
	select {
	case t.reqs <- func(p *Pool) { p.UpdateGasPriceThreshold(g); reply <- struct{}{} }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
