// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// sequencer is the Starknet sequencer core's daemon entrypoint: it wires
// the mempool, L1 provider, transaction providers, batcher, commitment
// manager, and consensus driver into one process, and exposes read-only
// storage inspection subcommands. Grounded on the teacher's evm-node
// entrypoint (cmd/evm-node/main.go's cli.App with app.Before/app.Action
// plus a chaincmd subcommand set), generalized from viper/pflag config
// loading (cmd/simulator/main) instead of raw DatabaseFlags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/starknet-sequencer/core/cmd/sequencer/storagecmd"
	"github.com/starknet-sequencer/core/internal/config"
	"github.com/starknet-sequencer/core/internal/consensus"
	"github.com/starknet-sequencer/core/internal/daemon"
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/storage"
)

const clientIdentifier = "sequencer"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "Starknet sequencer core: mempool, batcher, consensus, L1 provider",
	Version: config.Version,
}

func init() {
	app.Action = runDaemon
	app.Commands = storagecmd.Commands
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cliCtx *cli.Context) error {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sequencer: building viper: %w", err)
	}

	if v.GetBool(config.VersionKey) {
		fmt.Println(config.Version)
		return nil
	}

	cfg, err := config.BuildConfig(v)
	if err != nil {
		return fmt.Errorf("sequencer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.Store
	if cfg.DataDir != "" {
		store, err = storage.Open(cfg.DataDir, false)
		if err != nil {
			return fmt.Errorf("sequencer: opening storage at %s: %w", cfg.DataDir, err)
		}
		defer store.Close()
	}

	// A standalone process has no committee configuration of its own
	// (spec's Non-goals exclude designing a P2P transport); it runs as the
	// sole validator of a single-member set until an embedding process
	// wires in real committee discovery.
	self := domain.VoterID{1}
	validators := consensus.NewValidatorSet([]domain.VoterID{self})

	deps := daemon.Deps{
		Execution:  daemon.NoopExecution{},
		L2Sync:     daemon.NoopL2Sync{},
		Storage:    store,
		Cende:      daemon.NoopCende{},
		Validators: validators,
		Self:       self,
	}

	d, err := daemon.New(ctx, cfg, deps, 0, 0)
	if err != nil {
		return fmt.Errorf("sequencer: %w", err)
	}

	return d.Run(ctx)
}
