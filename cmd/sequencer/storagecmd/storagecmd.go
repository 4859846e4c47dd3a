// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storagecmd implements cmd/sequencer's read-only storage
// inspection subcommands (marker, header, state-diff, tx-count), grounded
// on the teacher's chaincmd subcommand shape
// (cmd/evm-node/chaincmd.ExportCommand et al.: Action/Name/Usage/ArgsUsage
// over a read-only pebbledb), per SPEC_FULL.md's supplemented feature 4.
package storagecmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/storage"
)

var dataDirFlag = &cli.StringFlag{
	Name:     "data-dir",
	Usage:    "path to the sequencer's storage directory",
	Required: true,
}

// Commands is the full set of offline storage subcommands cmd/sequencer
// registers.
var Commands = []*cli.Command{
	MarkerCommand,
	HeaderCommand,
	StateDiffCommand,
	TxCountCommand,
}

var MarkerCommand = &cli.Command{
	Name:      "marker",
	Usage:     "print a storage marker's next-expected height",
	ArgsUsage: "<header|state_diff|global_root>",
	Flags:     []cli.Flag{dataDirFlag},
	Action:    runMarker,
}

var HeaderCommand = &cli.Command{
	Name:      "header",
	Usage:     "print the raw header bytes (hex) at a height",
	ArgsUsage: "<height>",
	Flags:     []cli.Flag{dataDirFlag},
	Action:    runHeader,
}

var StateDiffCommand = &cli.Command{
	Name:      "state-diff",
	Usage:     "print the raw state diff bytes (hex) at a height",
	ArgsUsage: "<height>",
	Flags:     []cli.Flag{dataDirFlag},
	Action:    runStateDiff,
}

var TxCountCommand = &cli.Command{
	Name:      "tx-count",
	Usage:     "print the committed transaction count at a height",
	ArgsUsage: "<height>",
	Flags:     []cli.Flag{dataDirFlag},
	Action:    runTxCount,
}

func openStore(ctx *cli.Context) (*storage.Store, error) {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		return nil, fmt.Errorf("storagecmd: --data-dir required")
	}
	return storage.Open(dir, true)
}

func parseHeight(ctx *cli.Context) (domain.Height, error) {
	if ctx.Args().Len() < 1 {
		return 0, fmt.Errorf("storagecmd: height argument required")
	}
	h, err := strconv.ParseUint(ctx.Args().Get(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storagecmd: invalid height %q: %w", ctx.Args().Get(0), err)
	}
	return domain.Height(h), nil
}

func runMarker(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("storagecmd: marker kind argument required")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	kind := collaborators.MarkerKind(ctx.Args().Get(0))
	height, err := s.GetMarker(context.Background(), kind)
	if err != nil {
		return err
	}
	fmt.Println(height)
	return nil
}

func runHeader(ctx *cli.Context) error {
	height, err := parseHeight(ctx)
	if err != nil {
		return err
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	header, err := s.GetHeader(context.Background(), height)
	if err != nil {
		return err
	}
	if header == nil {
		return fmt.Errorf("storagecmd: no header at height %d", height)
	}
	fmt.Println(hex.EncodeToString(header))
	return nil
}

func runStateDiff(ctx *cli.Context) error {
	height, err := parseHeight(ctx)
	if err != nil {
		return err
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	diff, err := s.GetStateDiff(context.Background(), height)
	if err != nil {
		return err
	}
	if diff == nil {
		return fmt.Errorf("storagecmd: no state diff at height %d", height)
	}
	fmt.Println(hex.EncodeToString(diff))
	return nil
}

func runTxCount(ctx *cli.Context) error {
	height, err := parseHeight(ctx)
	if err != nil {
		return err
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.GetTransactionCount(context.Background(), height)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}
