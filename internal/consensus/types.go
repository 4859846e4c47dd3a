// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus implements the single-height Tendermint-style state
// machine of spec section 4.3: propose / prevote / precommit / decide with
// timeouts, retries, and weighted quorum accounting. Grounded on the
// teacher's single-threaded message-driven VM engine loop
// (reference/batcher/block_builder.go's waitForEvent/commonEng.Message
// pattern): external I/O (votes, proposal parts, timer fires, validation
// callbacks) is delivered as discrete events to one cooperative handler,
// exactly as spec section 4.3's scheduling model requires, generalized
// from a single "build or don't" message to the full round/step lattice.
package consensus

import (
	"fmt"

	"github.com/starknet-sequencer/core/internal/domain"
)

// Step is a round's position in the propose/prevote/precommit/decide
// lattice (spec section 4.3).
type Step int

const (
	StepPropose Step = iota
	StepPrevote
	StepPrecommit
	StepDecided
)

func (s Step) String() string {
	switch s {
	case StepPropose:
		return "propose"
	case StepPrevote:
		return "prevote"
	case StepPrecommit:
		return "precommit"
	case StepDecided:
		return "decided"
	default:
		return "unknown"
	}
}

// HeightState is the mutable state for one active height (spec section 3).
// One exists per height, owned exclusively by the Driver/Machine pair, and
// is destroyed on Decision.
type HeightState struct {
	Height Height
	Round  domain.Round
	Step   Step

	LockedValue *domain.ProposalCommitment
	LockedRound *domain.Round
	ValidValue  *domain.ProposalCommitment
	ValidRound  *domain.Round

	Decision *domain.ProposalCommitment
}

// Height is re-exported from domain for readability within this package.
type Height = domain.Height

// EventKind discriminates the events handle_event accepts (spec section
// 4.3: "External I/O... is delivered as discrete events").
type EventKind int

const (
	// EventProposal carries a Proposal(h, r, valid_round, commitment)
	// message from the round's leader.
	EventProposal EventKind = iota
	// EventPrevote carries one network Prevote vote.
	EventPrevote
	// EventPrecommit carries one network Precommit vote.
	EventPrecommit
	// EventTimeoutPropose fires when an armed TimeoutPropose(r) expires.
	EventTimeoutPropose
	// EventTimeoutPrevote fires when an armed TimeoutPrevote(r) expires.
	EventTimeoutPrevote
	// EventTimeoutPrecommit fires when an armed TimeoutPrecommit(r) expires.
	EventTimeoutPrecommit
	// EventFinishedValidation delivers the asynchronous result of a
	// StartValidateProposal request the Machine issued earlier.
	EventFinishedValidation
)

func (k EventKind) String() string {
	switch k {
	case EventProposal:
		return "proposal"
	case EventPrevote:
		return "prevote"
	case EventPrecommit:
		return "precommit"
	case EventTimeoutPropose:
		return "timeout_propose"
	case EventTimeoutPrevote:
		return "timeout_prevote"
	case EventTimeoutPrecommit:
		return "timeout_precommit"
	case EventFinishedValidation:
		return "finished_validation"
	default:
		return "unknown"
	}
}

// Event is the single envelope handle_event consumes. Only the fields
// relevant to Kind are populated; this mirrors the tagged-struct shape of
// wire.ProposalPart rather than a type hierarchy, per spec section 9's "no
// inheritance hierarchies".
type Event struct {
	Kind   EventKind
	Round  domain.Round

	// EventProposal
	Proposer   domain.VoterID
	ValidRound *domain.Round
	Commitment domain.ProposalCommitment

	// EventPrevote / EventPrecommit
	Vote domain.ConsensusVote

	// EventFinishedValidation
	ValidationCommitment domain.ProposalCommitment
	ValidationOK          bool
}

func (e Event) String() string {
	return fmt.Sprintf("%s@r%d", e.Kind, e.Round)
}

// ActionKind discriminates the side effects HandleEvent asks its caller to
// perform. The Machine is pure: it never performs I/O itself, matching spec
// section 9's "every suspension point is explicit in the component
// interfaces".
type ActionKind int

const (
	ActionStartBuildProposal ActionKind = iota
	ActionStartValidateProposal
	ActionBroadcastPrevote
	ActionBroadcastPrecommit
	ActionArmTimeoutPropose
	ActionArmTimeoutPrevote
	ActionArmTimeoutPrecommit
	ActionDecide
)

func (k ActionKind) String() string {
	switch k {
	case ActionStartBuildProposal:
		return "start_build_proposal"
	case ActionStartValidateProposal:
		return "start_validate_proposal"
	case ActionBroadcastPrevote:
		return "broadcast_prevote"
	case ActionBroadcastPrecommit:
		return "broadcast_precommit"
	case ActionArmTimeoutPropose:
		return "arm_timeout_propose"
	case ActionArmTimeoutPrevote:
		return "arm_timeout_prevote"
	case ActionArmTimeoutPrecommit:
		return "arm_timeout_precommit"
	case ActionDecide:
		return "decide"
	default:
		return "unknown"
	}
}

// Action is one output of HandleEvent.
type Action struct {
	Kind ActionKind
	Round      domain.Round
	ValidRound *domain.Round
	Commitment *domain.ProposalCommitment // nil means a nil-vote/proposal.
}
