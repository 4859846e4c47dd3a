// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package daemon wires the mempool, L1 provider, transaction providers,
// batcher, commitment manager, and consensus driver into the single
// process cmd/sequencer runs. Grounded on the teacher's node assembly in
// cmd/evm-node/main.go (one App wiring flags, a logger, and a set of
// long-lived components behind app.Before/app.Action), generalized here
// from a single EVM node into the sequencer's multi-component pipeline.
package daemon

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/starknet-sequencer/core/internal/batcher"
	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/commitmentmanager"
	"github.com/starknet-sequencer/core/internal/config"
	"github.com/starknet-sequencer/core/internal/consensus"
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/l1provider"
	"github.com/starknet-sequencer/core/internal/logging"
	"github.com/starknet-sequencer/core/internal/mempool"
	"github.com/starknet-sequencer/core/internal/metrics"
	"github.com/starknet-sequencer/core/internal/validproposals"
)

// sha256Hasher satisfies commitmentmanager.Hasher the way the teacher's
// utils.ComputeHash256Array derives block IDs from raw bytes.
type sha256Hasher struct{}

func (sha256Hasher) Hash(stateDiff []byte) domain.ProposalCommitment {
	sum := sha256.Sum256(stateDiff)
	var c domain.ProposalCommitment
	copy(c[:], sum[:])
	return c
}

// Daemon bundles every core component for one running sequencer process.
type Daemon struct {
	cfg config.Config

	Registry *metrics.Registry
	Log      logging.Logger

	Mempool           *mempool.Pool
	L1Provider        *l1provider.Provider
	L1Bootstrap       *l1provider.Bootstrap
	CommitmentManager *commitmentmanager.Manager
	ValidProposals    *validproposals.Map
	Batcher           *batcher.Batcher
	ConsensusDriver   *consensus.Driver
}

// Deps are the collaborators the daemon cannot construct itself: the
// execution engine, L2 state sync client, storage backend, and the
// consensus committee, all supplied by the process embedding this package
// (spec section 9 explicitly keeps these behind narrow interfaces rather
// than folding their implementations into the core).
type Deps struct {
	Execution  collaborators.Execution
	L2Sync     collaborators.L2StateSync
	Storage    collaborators.Storage
	Cende      batcher.CendeClient
	Validators *consensus.ValidatorSet
	Self       domain.VoterID
}

// New constructs every component from cfg and deps. The only thing it
// starts is the commitment manager's worker goroutine (commitmentmanager.New
// launches it); call Run to begin serving metrics and driving the L1
// provider's bootstrap catch-up.
func New(ctx context.Context, cfg config.Config, deps Deps, globalRootHeight, stateDiffHeight domain.Height) (*Daemon, error) {
	logging.Init(cfg.LogLevel)
	reg := metrics.NewRegistry()

	mp := mempool.NewPool(mempool.Config{Metrics: reg.NewSet("mempool")})
	l1p := l1provider.New(reg.NewSet("l1provider"))
	l1boot := l1provider.NewBootstrap(l1p, deps.L2Sync, cfg.L1PollInterval)
	l1p.AttachBootstrap(l1boot)

	cm, err := commitmentmanager.New(ctx, sha256Hasher{}, 64, commitmentmanager.FullChannelBlock, deps.Storage, globalRootHeight, stateDiffHeight)
	if err != nil {
		return nil, fmt.Errorf("daemon: commitment manager: %w", err)
	}

	var blobLimit *rate.Limiter
	if cfg.BlobWriteRateLimit > 0 {
		blobLimit = rate.NewLimiter(rate.Limit(cfg.BlobWriteRateLimit), 1)
	}

	valid := validproposals.New()
	bat := batcher.New(batcher.Config{
		BatchSize:          cfg.BatchSize,
		BlobWriteTimeout:   cfg.BlobWriteTimeout,
		BlobWriteRateLimit: blobLimit,
	}, deps.Execution, deps.Cende, valid, reg.NewSet("batcher"))

	driver := consensus.NewDriver(deps.Validators, deps.Self)

	return &Daemon{
		cfg:               cfg,
		Registry:          reg,
		Log:               logging.For("daemon"),
		Mempool:           mp,
		L1Provider:        l1p,
		L1Bootstrap:       l1boot,
		CommitmentManager: cm,
		ValidProposals:    valid,
		Batcher:           bat,
		ConsensusDriver:   driver,
	}, nil
}

// Run starts the metrics HTTP server and blocks until ctx is canceled,
// then drains the commitment manager and the batcher's in-flight tasks.
func (d *Daemon) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.Registry.Prometheus(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := d.L1Bootstrap.Run(ctx); err != nil && ctx.Err() == nil {
			d.Log.Warn("l1 bootstrap did not complete", "err", err)
		}
	}()

	d.Log.Info("daemon started", "metrics_addr", d.cfg.MetricsAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.BlobWriteTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := d.CommitmentManager.Close(); err != nil {
		return err
	}
	return d.Batcher.Wait()
}
