// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txprovider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
	"github.com/starknet-sequencer/core/internal/metrics"
)

// phase is the propose-side state machine of spec section 4.2: starts in
// L1, switches to Mempool once the L1 source is exhausted or the
// per-block L1 cap is hit.
type phase int

const (
	phaseL1 phase = iota
	phaseMempool
)

// ProposeConfig configures a ProposeProvider.
type ProposeConfig struct {
	Height                  domain.Height
	MaxL1HandlerTxsPerBlock int
	AllowListFilter         AllowListFilter // optional
	// AllowListRateLimit bounds how often AllowListFilter.Filter is
	// called, the external timestamp-filter service of spec section 4.2.
	// Nil disables limiting.
	AllowListRateLimit *rate.Limiter
	Metrics            *metrics.Set
}

// ProposeProvider implements Provider in propose mode: it feeds a block
// builder with L1-handler transactions first, then mempool transactions,
// per spec section 4.2.
type ProposeProvider struct {
	mu sync.Mutex

	cfg     ProposeConfig
	mempool Mempool
	l1      L1Source

	phase  phase
	usedL1 int

	log logging.Logger
}

// NewProposeProvider constructs a ProposeProvider starting in the L1
// phase (spec section 4.2, "starts in L1 (or configurable)").
func NewProposeProvider(cfg ProposeConfig, mempool Mempool, l1 L1Source) *ProposeProvider {
	return &ProposeProvider{
		cfg:     cfg,
		mempool: mempool,
		l1:      l1,
		phase:   phaseL1,
		log:     logging.For("txprovider.propose"),
	}
}

// GetTxs returns up to n transactions, preferring L1 handlers until the
// phase switches to Mempool.
func (p *ProposeProvider) GetTxs(ctx context.Context, n int) ([]domain.InternalConsensusTransaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.InternalConsensusTransaction, 0, n)

	if p.phase == phaseL1 {
		remaining := p.cfg.MaxL1HandlerTxsPerBlock - p.usedL1
		want := n
		if remaining < want {
			want = remaining
		}
		if want > 0 {
			l1Txs, err := p.l1.GetTxs(want, p.cfg.Height)
			if err != nil {
				return nil, err
			}
			for _, tx := range l1Txs {
				out = append(out, domain.InternalConsensusTransaction{Hash: tx.Hash, Payload: tx.Payload, IsL1: true})
			}
			p.usedL1 += len(l1Txs)
			if len(l1Txs) < want || p.usedL1 >= p.cfg.MaxL1HandlerTxsPerBlock {
				p.phase = phaseMempool
			}
		} else {
			p.phase = phaseMempool
		}
	}

	if len(out) < n && p.phase == phaseMempool {
		remaining := n - len(out)
		mempoolTxs := p.mempool.GetTxs(remaining)
		if p.cfg.AllowListFilter != nil {
			if p.cfg.AllowListRateLimit != nil && p.cfg.AllowListRateLimit.Wait(ctx) != nil {
				p.log.Warn("allow-list rate limit wait aborted, failing open")
			} else if filtered, err := p.cfg.AllowListFilter.Filter(ctx, mempoolTxs); err != nil {
				// Fail open: return the unfiltered batch, caller records
				// the failure in observability.
				p.log.Warn("allow-list filter failed, failing open", "err", err)
			} else {
				mempoolTxs = filtered
			}
		}
		for _, tx := range mempoolTxs {
			out = append(out, domain.InternalConsensusTransaction{Hash: tx.Ref.Hash, Payload: tx.Payload})
		}
	}

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.Gauge("propose_used_l1", nil, float64(p.usedL1))
	}
	return out, nil
}
