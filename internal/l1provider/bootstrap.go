// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package l1provider

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
)

// SyncClient reports the L2 chain's current height so Bootstrap knows when
// it has caught the provider up to the live chain. It is a narrow slice of
// the L2 state-sync collaborator described in spec section 6; satisfied
// structurally by the real client, no import needed here.
type SyncClient interface {
	GetLatestBlockNumber(ctx context.Context) (domain.Height, error)
}

// replayCacheBytes bounds the memory the bootstrap's backlog of buffered
// CommitBlock calls can consume, grounded on the teacher's core/txpool
// byte-cache dependency (fastcache) repurposed here for a bounded replay
// buffer instead of an unbounded Go slice.
const replayCacheBytes = 1 << 20

// Bootstrap drives a Provider from StateBootstrap to StatePending,
// replaying any CommitBlock calls that arrived before catch-up finished.
// Grounded on the teacher's network bootstrapper pattern of buffering
// incoming state until a background sync goroutine confirms the node is
// caught up (reference/warp/backend.go keeps an analogous pending set
// until the validator set syncs).
type Bootstrap struct {
	provider      *Provider
	sync          SyncClient
	retryInterval time.Duration

	// replay holds CommitBlock calls buffered while the provider is still
	// in Bootstrap, keyed by height, so tryCatchUp can probe for the next
	// expected height directly instead of scanning an ordered slice.
	replay *fastcache.Cache

	log logging.Logger
}

// NewBootstrap wraps provider with a catch-up driver polling sync every
// retryInterval (spec's sync_retry_interval configuration knob).
func NewBootstrap(provider *Provider, sync SyncClient, retryInterval time.Duration) *Bootstrap {
	return &Bootstrap{
		provider:      provider,
		sync:          sync,
		retryInterval: retryInterval,
		replay:        fastcache.New(replayCacheBytes),
		log:           logging.For("l1provider.bootstrap"),
	}
}

func heightKey(h domain.Height) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	return buf[:]
}

// encodeBacklog packs hashes and rejected into a single byte slice: an
// 8-byte count of hashes, followed by each hash's 32 raw bytes, followed
// by each rejected hash's 32 raw bytes.
func encodeBacklog(hashes, rejected []domain.TxHash) []byte {
	buf := make([]byte, 8+32*(len(hashes)+len(rejected)))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(hashes)))
	off := 8
	for _, h := range hashes {
		off += copy(buf[off:], h[:])
	}
	for _, h := range rejected {
		off += copy(buf[off:], h[:])
	}
	return buf
}

func decodeBacklog(buf []byte) (hashes, rejected []domain.TxHash) {
	if len(buf) < 8 {
		return nil, nil
	}
	n := binary.BigEndian.Uint64(buf[:8])
	off := 8
	for i := uint64(0); i < n && off+32 <= len(buf); i++ {
		var h domain.TxHash
		copy(h[:], buf[off:off+32])
		hashes = append(hashes, h)
		off += 32
	}
	for off+32 <= len(buf) {
		var h domain.TxHash
		copy(h[:], buf[off:off+32])
		rejected = append(rejected, h)
		off += 32
	}
	return hashes, rejected
}

// BufferCommitBlock records a CommitBlock call received while the provider
// is still in Bootstrap, to be replayed in height order once catch-up
// completes.
func (b *Bootstrap) BufferCommitBlock(hashes, rejected []domain.TxHash, height domain.Height) {
	b.replay.Set(heightKey(height), encodeBacklog(hashes, rejected))
}

// Run polls sync for the chain's current height and replays the backlog in
// height order until the provider's height reaches it, then transitions
// the provider to Pending. It returns once caught up, or when ctx is
// done.
func (b *Bootstrap) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.retryInterval)
	defer ticker.Stop()

	for {
		caughtUp, err := b.tryCatchUp(ctx)
		if err != nil {
			b.log.Warn("bootstrap sync check failed", "err", err)
		} else if caughtUp {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bootstrap) tryCatchUp(ctx context.Context) (bool, error) {
	target, err := b.sync.GetLatestBlockNumber(ctx)
	if err != nil {
		return false, err
	}

	b.provider.mu.Lock()
	defer b.provider.mu.Unlock()

	for b.provider.currentHeight < target {
		key := heightKey(b.provider.currentHeight)
		buf, ok := b.replay.HasGet(nil, key)
		if !ok {
			// Gap in the backlog: wait for more entries or for sync to
			// catch the gap itself via process_l1_events.
			break
		}
		hashes, rejected := decodeBacklog(buf)
		if err := b.provider.commitBlockLocked(hashes, rejected, b.provider.currentHeight); err != nil {
			return false, err
		}
		b.replay.Del(key)
	}

	if b.provider.currentHeight >= target {
		b.provider.state = StatePending
		return true, nil
	}
	return false, nil
}
