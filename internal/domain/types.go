// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package domain holds the value types shared across the mempool, batcher,
// consensus, and L1 provider components. Nothing in this package owns
// mutable state: every type here is a plain, comparable-by-value record that
// travels across component boundaries by copy, per the ownership rules in
// spec section 5.
package domain

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
)

// TxHash identifies a transaction content-addressably.
type TxHash = ids.ID

// ProposalCommitment is the state-diff commitment computed for a finished
// proposal.
type ProposalCommitment = ids.ID

// Address identifies a sender account.
type Address = ids.ID

// VoterID identifies a consensus participant.
type VoterID = ids.NodeID

// Nonce is a per-account monotonic transaction counter.
type Nonce uint64

// Height is a consensus/chain height.
type Height uint64

// Round is a consensus round within a height.
type Round uint32

// ProposalID is monotonic per height, minted by the Batcher.
type ProposalID struct {
	Height Height
	Index  uint64
}

func (p ProposalID) String() string {
	return fmt.Sprintf("%d/%d", p.Height, p.Index)
}

// TransactionRef is the immutable, lightweight handle the mempool's queues
// order and compare. It never carries the transaction body.
type TransactionRef struct {
	Hash          TxHash
	Sender        Address
	Nonce         Nonce
	Tip           uint64
	MaxL2GasPrice uint256.Int
	ArrivalTS     uint64
}

// Less implements the priority-queue tie-break: tip desc, then hash asc.
func (r TransactionRef) Less(other TransactionRef) bool {
	if r.Tip != other.Tip {
		return r.Tip > other.Tip
	}
	return bytes.Compare(r.Hash[:], other.Hash[:]) < 0
}

// MempoolTx is the full signed transaction as admitted to the pool, keyed by
// its hash. The pool is its sole owner; every other component only ever
// sees a TransactionRef.
type MempoolTx struct {
	Ref     TransactionRef
	Payload []byte
}

// AccountState mirrors the sequencer's view of an account's last committed
// nonce. Advanced only by commit-block events.
type AccountState struct {
	Sender         Address
	CommittedNonce Nonce
}

// L1HandlerStatus is the lifecycle state of an L1HandlerTx.
type L1HandlerStatus int

const (
	L1HandlerUncommitted L1HandlerStatus = iota
	L1HandlerCommitted
	L1HandlerRejected
)

// L1HandlerTx is a transaction consuming an L1->L2 message.
type L1HandlerTx struct {
	Hash          TxHash
	Payload       []byte
	L1BlockHeight uint64
	Status        L1HandlerStatus
}

// InternalConsensusTransaction is a single transaction as carried inside a
// proposal's content (either a MempoolTx or an L1HandlerTx rendered for the
// wire).
type InternalConsensusTransaction struct {
	Hash    TxHash
	Payload []byte
	IsL1    bool
}

// BlockInfo carries the per-height metadata a proposal's Init/BlockInfo
// wire parts announce.
type BlockInfo struct {
	Height            Height
	Timestamp         uint64
	L2GasPrice        uint256.Int
	L1GasPrice        uint256.Int
	L1DataGasPrice    uint256.Int
	SequencerAddress  Address
	L1DAMode          L1DAMode
	StarknetVersion   string
}

// L1DAMode selects how data availability is published for a block.
type L1DAMode int

const (
	L1DABlob L1DAMode = iota
	L1DACalldata
)

// VoteKind distinguishes Tendermint-style vote phases.
type VoteKind int

const (
	VotePrevote VoteKind = iota
	VotePrecommit
)

func (k VoteKind) String() string {
	if k == VotePrevote {
		return "prevote"
	}
	return "precommit"
}

// ConsensusVote is a single signed vote as emitted on, or received from,
// the network wire.
type ConsensusVote struct {
	Kind               VoteKind
	Height             Height
	Round              Round
	Voter              VoterID
	ProposalCommitment *ProposalCommitment // nil means a nil-vote.
	Signature          []byte
}
