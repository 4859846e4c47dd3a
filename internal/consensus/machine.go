// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
)

// timeoutKind distinguishes which of the two quorum-armed timeouts
// (prevote, precommit; TimeoutPropose is not tracked here) a
// (round, kind) pair tracks, so HandleEvent only arms each one once per
// round (spec section 4.3: "First time we count...").
type timeoutKind int

const (
	timeoutPrevote timeoutKind = iota
	timeoutPrecommit
)

type timeoutKey struct {
	round domain.Round
	kind  timeoutKind
}

// proposalRecord tracks what the Machine has seen for one round's
// proposal, so a re-delivered or out-of-order Proposal event is a no-op
// (spec section 6's "SM tolerates duplicates").
type proposalRecord struct {
	seen               bool
	proposer           domain.VoterID
	commitment         domain.ProposalCommitment
	validRound         *domain.Round
	validationPending  bool
}

// Machine is the pure, single-height Tendermint-style state machine of
// spec section 4.3. It performs no I/O: HandleEvent returns the Actions
// its caller (Driver) must perform, matching the cooperative scheduling
// model spec section 5 requires ("all state transitions are synchronous
// within a single event").
type Machine struct {
	self       domain.VoterID
	validators *ValidatorSet
	votes      *VoteTracker

	state HeightState

	proposals     map[domain.Round]*proposalRecord
	timeoutsArmed map[timeoutKey]bool

	log logging.Logger
}

// NewMachine constructs a Machine for height, with self identifying which
// validator we are (used to decide whether we are the round's proposer).
func NewMachine(height domain.Height, validators *ValidatorSet, self domain.VoterID) *Machine {
	return &Machine{
		self:          self,
		validators:    validators,
		votes:         NewVoteTracker(validators),
		state:         HeightState{Height: height, Round: 0, Step: StepPropose},
		proposals:     make(map[domain.Round]*proposalRecord),
		timeoutsArmed: make(map[timeoutKey]bool),
		log:           logging.For("consensus.machine"),
	}
}

// State returns a copy of the current HeightState, for observability and
// tests.
func (m *Machine) State() HeightState { return m.state }

// Start enters round 0, as either proposer or validator (spec section
// 4.3's "on entering round r").
func (m *Machine) Start() []Action {
	return m.enterRound(0)
}

func (m *Machine) enterRound(r domain.Round) []Action {
	m.state.Round = r
	m.state.Step = StepPropose

	var actions []Action
	if m.validators.Proposer(r) == m.self {
		a := Action{Kind: ActionStartBuildProposal, Round: r}
		if m.state.ValidValue != nil {
			a.ValidRound = m.state.ValidRound
			a.Commitment = m.state.ValidValue
		}
		actions = append(actions, a)
	}
	actions = append(actions, Action{Kind: ActionArmTimeoutPropose, Round: r})
	return actions
}

// HandleEvent is the single entry point every external event is delivered
// to. It returns the actions the caller must perform as a result.
func (m *Machine) HandleEvent(ev Event) []Action {
	if m.state.Step == StepDecided {
		return nil
	}
	switch ev.Kind {
	case EventProposal:
		return m.handleProposal(ev)
	case EventFinishedValidation:
		return m.handleFinishedValidation(ev)
	case EventPrevote:
		return m.handlePrevote(ev)
	case EventPrecommit:
		return m.handlePrecommit(ev)
	case EventTimeoutPropose:
		return m.handleTimeoutPropose(ev)
	case EventTimeoutPrevote:
		return m.handleTimeoutPrevote(ev)
	case EventTimeoutPrecommit:
		return m.handleTimeoutPrecommit(ev)
	default:
		return nil
	}
}

func (m *Machine) handleProposal(ev Event) []Action {
	rec, ok := m.proposals[ev.Round]
	if !ok {
		rec = &proposalRecord{}
		m.proposals[ev.Round] = rec
	}
	if rec.seen {
		return nil // duplicate delivery, idempotent.
	}
	rec.seen = true
	rec.proposer = ev.Proposer
	rec.commitment = ev.Commitment
	rec.validRound = ev.ValidRound

	if ev.Proposer != m.validators.Proposer(ev.Round) {
		// Not from the round's leader: ignore (spec section 4.3's
		// "proposer matches the leader-fn for r").
		return nil
	}

	rec.validationPending = true
	commitment := ev.Commitment
	return []Action{{
		Kind:       ActionStartValidateProposal,
		Round:      ev.Round,
		ValidRound: ev.ValidRound,
		Commitment: &commitment,
	}}
}

func (m *Machine) handleFinishedValidation(ev Event) []Action {
	rec, ok := m.proposals[ev.Round]
	if !ok || !rec.validationPending {
		return nil // stale or cancelled async request.
	}
	rec.validationPending = false

	if ev.Round != m.state.Round || m.state.Step != StepPropose {
		// Round moved on while validation was in flight; drop the result
		// per spec section 5's cancellation semantics.
		return nil
	}

	if !ev.ValidationOK {
		return m.broadcastPrevote(ev.Round, nil)
	}

	commitment := ev.ValidationCommitment
	broadcastReal := rec.validRound == nil ||
		(m.state.LockedValue != nil && *m.state.LockedValue == commitment) ||
		(m.state.LockedRound != nil && rec.validRound != nil && *m.state.LockedRound <= *rec.validRound)

	if broadcastReal {
		return m.broadcastPrevote(ev.Round, &commitment)
	}
	return m.broadcastPrevote(ev.Round, nil)
}

func (m *Machine) broadcastPrevote(round domain.Round, commitment *domain.ProposalCommitment) []Action {
	m.state.Step = StepPrevote
	return []Action{{Kind: ActionBroadcastPrevote, Round: round, Commitment: commitment}}
}

func (m *Machine) handlePrevote(ev Event) []Action {
	if !m.votes.Record(ev.Round, domain.VotePrevote, ev.Vote.Voter, ev.Vote.ProposalCommitment) {
		return nil
	}

	var actions []Action
	if ev.Vote.ProposalCommitment != nil {
		commitment := *ev.Vote.ProposalCommitment
		key := timeoutKey{round: ev.Round, kind: timeoutPrevote}
		if m.votes.HasQuorum(ev.Round, domain.VotePrevote, commitment) && !m.timeoutsArmed[key] {
			m.timeoutsArmed[key] = true
			actions = append(actions, Action{Kind: ActionArmTimeoutPrevote, Round: ev.Round})

			round := ev.Round
			m.state.ValidValue = &commitment
			m.state.ValidRound = &round

			if ev.Round == m.state.Round && m.state.Step == StepPrevote {
				m.state.LockedValue = &commitment
				m.state.LockedRound = &round
				m.state.Step = StepPrecommit
				actions = append(actions, Action{Kind: ActionBroadcastPrecommit, Round: ev.Round, Commitment: &commitment})
			}
		}
		return actions
	}

	if ev.Round == m.state.Round && m.state.Step == StepPrevote && m.votes.HasNilQuorum(ev.Round, domain.VotePrevote) {
		m.state.Step = StepPrecommit
		actions = append(actions, Action{Kind: ActionBroadcastPrecommit, Round: ev.Round})
	}
	return actions
}

func (m *Machine) handlePrecommit(ev Event) []Action {
	if !m.votes.Record(ev.Round, domain.VotePrecommit, ev.Vote.Voter, ev.Vote.ProposalCommitment) {
		return nil
	}

	var actions []Action
	if ev.Vote.ProposalCommitment != nil {
		commitment := *ev.Vote.ProposalCommitment
		if m.state.Decision == nil && ev.Round >= m.state.Round && m.votes.HasQuorum(ev.Round, domain.VotePrecommit, commitment) {
			round := ev.Round
			m.state.Decision = &commitment
			m.state.LockedValue = &commitment
			m.state.LockedRound = &round
			m.state.Step = StepDecided
			actions = append(actions, Action{Kind: ActionDecide, Round: ev.Round, Commitment: &commitment})
		}
		return actions
	}

	key := timeoutKey{round: ev.Round, kind: timeoutPrecommit}
	if ev.Round == m.state.Round && m.votes.HasNilQuorum(ev.Round, domain.VotePrecommit) && !m.timeoutsArmed[key] {
		m.timeoutsArmed[key] = true
		actions = append(actions, Action{Kind: ActionArmTimeoutPrecommit, Round: ev.Round})
	}
	return actions
}

func (m *Machine) handleTimeoutPropose(ev Event) []Action {
	if ev.Round != m.state.Round || m.state.Step != StepPropose {
		return nil
	}
	return m.broadcastPrevote(ev.Round, nil)
}

func (m *Machine) handleTimeoutPrevote(ev Event) []Action {
	if ev.Round != m.state.Round || m.state.Step != StepPrevote {
		return nil
	}
	m.state.Step = StepPrecommit
	return []Action{{Kind: ActionBroadcastPrecommit, Round: ev.Round}}
}

func (m *Machine) handleTimeoutPrecommit(ev Event) []Action {
	if ev.Round != m.state.Round || m.state.Step != StepPrecommit || m.state.Decision != nil {
		return nil
	}
	return m.enterRound(ev.Round + 1)
}
