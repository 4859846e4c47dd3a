// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"github.com/holiman/uint256"

	"github.com/starknet-sequencer/core/internal/domain"
)

// BuildProposalInput carries everything needed to synthesize a new
// proposal's BlockInfo: the parent block's info (for timestamp clamping)
// and the externally-sourced gas price / DA-mode feed. Split out as its
// own unit rather than inlined in the state machine, mirroring the Rust
// apollo_consensus_orchestrator build_proposal.rs / utils_test.rs split
// (SPEC_FULL.md supplemented feature 3) for easier standalone testing.
type BuildProposalInput struct {
	Parent domain.BlockInfo
	// Now is the wall-clock the node observed when it started building,
	// in unix seconds.
	Now uint64

	L2GasPrice       uint256.Int
	L1GasPrice       uint256.Int
	L1DataGasPrice   uint256.Int
	SequencerAddress domain.Address
	L1DAMode         domain.L1DAMode
	StarknetVersion  string
}

// SynthesizeBlockInfo builds the BlockInfo for a proposal at
// parent.Height+1. The timestamp is clamped to strictly follow the
// parent's: a block can never claim a timestamp at or before its parent.
func SynthesizeBlockInfo(in BuildProposalInput) domain.BlockInfo {
	ts := in.Now
	if ts <= in.Parent.Timestamp {
		ts = in.Parent.Timestamp + 1
	}
	return domain.BlockInfo{
		Height:           in.Parent.Height + 1,
		Timestamp:        ts,
		L2GasPrice:       in.L2GasPrice,
		L1GasPrice:       in.L1GasPrice,
		L1DataGasPrice:   in.L1DataGasPrice,
		SequencerAddress: in.SequencerAddress,
		L1DAMode:         in.L1DAMode,
		StarknetVersion:  in.StarknetVersion,
	}
}
