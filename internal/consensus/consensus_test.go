// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/domain"
)

func voter(b byte) domain.VoterID {
	var v domain.VoterID
	v[0] = b
	return v
}

func commitment(b byte) domain.ProposalCommitment {
	var c domain.ProposalCommitment
	c[0] = b
	return c
}

func newValidators(n int) (*ValidatorSet, []domain.VoterID) {
	ids := make([]domain.VoterID, n)
	for i := range ids {
		ids[i] = voter(byte(i + 1))
	}
	return NewValidatorSet(ids), ids
}

func vote(round domain.Round, v domain.VoterID, c *domain.ProposalCommitment) domain.ConsensusVote {
	return domain.ConsensusVote{Round: round, Voter: v, ProposalCommitment: c}
}

func TestThresholdIsByzantineQuorum(t *testing.T) {
	vs, _ := newValidators(100)
	require.Equal(t, uint64(67), vs.Threshold())
}

func TestProposerRoundRobin(t *testing.T) {
	vs, ids := newValidators(4)
	require.Equal(t, ids[0], vs.Proposer(0))
	require.Equal(t, ids[1], vs.Proposer(1))
	require.Equal(t, ids[0], vs.Proposer(4))
}

func TestVoteTrackerRejectsDoubleVoting(t *testing.T) {
	vs, ids := newValidators(3)
	vt := NewVoteTracker(vs)
	c := commitment(1)

	require.True(t, vt.Record(0, domain.VotePrevote, ids[0], &c))
	// Same voter claiming a different commitment is not counted twice (I4).
	other := commitment(2)
	require.False(t, vt.Record(0, domain.VotePrevote, ids[0], &other))
	require.Equal(t, uint64(1), vt.WeightFor(0, domain.VotePrevote, c))
	require.Equal(t, uint64(0), vt.WeightFor(0, domain.VotePrevote, other))
}

// S4 — consensus happy path, all honest: a validator sees a valid proposal
// from the round-0 leader, then enough matching prevotes, then enough
// matching precommits, and decides in round 0.
func TestHappyPathDecidesRoundZero(t *testing.T) {
	vs, ids := newValidators(4) // threshold = 3
	self := ids[1]              // not the round-0 proposer
	m := NewMachine(10, vs, self)

	actions := m.Start()
	require.Len(t, actions, 1) // validator: just ArmTimeoutPropose, no StartBuildProposal.
	require.Equal(t, ActionArmTimeoutPropose, actions[0].Kind)

	c := commitment(7)
	actions = m.HandleEvent(Event{Kind: EventProposal, Round: 0, Proposer: vs.Proposer(0), Commitment: c})
	require.Len(t, actions, 1)
	require.Equal(t, ActionStartValidateProposal, actions[0].Kind)

	actions = m.HandleEvent(Event{Kind: EventFinishedValidation, Round: 0, ValidationOK: true, ValidationCommitment: c})
	require.Len(t, actions, 1)
	require.Equal(t, ActionBroadcastPrevote, actions[0].Kind)
	require.Equal(t, c, *actions[0].Commitment)
	require.Equal(t, StepPrevote, m.State().Step)

	// Three (of four) matching prevotes reach quorum; we should arm
	// TimeoutPrevote and immediately precommit our locked value.
	for i := 0; i < 3; i++ {
		actions = m.HandleEvent(Event{Kind: EventPrevote, Round: 0, Vote: vote(0, ids[i], &c)})
	}
	var sawArm, sawPrecommit bool
	for _, a := range actions {
		if a.Kind == ActionArmTimeoutPrevote {
			sawArm = true
		}
		if a.Kind == ActionBroadcastPrecommit {
			sawPrecommit = true
			require.Equal(t, c, *a.Commitment)
		}
	}
	require.True(t, sawArm)
	require.True(t, sawPrecommit)
	require.Equal(t, StepPrecommit, m.State().Step)

	// Three matching precommits reach quorum: Decide.
	for i := 0; i < 3; i++ {
		actions = m.HandleEvent(Event{Kind: EventPrecommit, Round: 0, Vote: vote(0, ids[i], &c)})
	}
	require.Len(t, actions, 1)
	require.Equal(t, ActionDecide, actions[0].Kind)
	require.Equal(t, c, *actions[0].Commitment)
	require.Equal(t, StepDecided, m.State().Step)
	require.NotNil(t, m.State().Decision)
	require.Equal(t, c, *m.State().Decision)

	// Post-decision events are no-ops (height destroyed on Decision).
	require.Empty(t, m.HandleEvent(Event{Kind: EventTimeoutPrecommit, Round: 0}))
}

// S5 — only half the prevotes arrive before TimeoutPrevote fires: we
// broadcast Precommit(nil); TimeoutPrecommit then starts round 1.
func TestTimeoutPrevoteTriggersNilPrecommitThenNewRound(t *testing.T) {
	vs, ids := newValidators(4)
	self := ids[1]
	m := NewMachine(5, vs, self)
	m.Start()

	c := commitment(9)
	m.HandleEvent(Event{Kind: EventProposal, Round: 0, Proposer: vs.Proposer(0), Commitment: c})
	m.HandleEvent(Event{Kind: EventFinishedValidation, Round: 0, ValidationOK: true, ValidationCommitment: c})
	require.Equal(t, StepPrevote, m.State().Step)

	// Only 2/4 prevotes arrive: below threshold 3, no quorum action.
	m.HandleEvent(Event{Kind: EventPrevote, Round: 0, Vote: vote(0, ids[0], &c)})
	actions := m.HandleEvent(Event{Kind: EventPrevote, Round: 0, Vote: vote(0, ids[2], &c)})
	require.Empty(t, actions)
	require.Equal(t, StepPrevote, m.State().Step)

	actions = m.HandleEvent(Event{Kind: EventTimeoutPrevote, Round: 0})
	require.Len(t, actions, 1)
	require.Equal(t, ActionBroadcastPrecommit, actions[0].Kind)
	require.Nil(t, actions[0].Commitment)
	require.Equal(t, StepPrecommit, m.State().Step)

	actions = m.HandleEvent(Event{Kind: EventTimeoutPrecommit, Round: 0})
	require.NotEmpty(t, actions)
	var sawArmPropose bool
	for _, a := range actions {
		if a.Kind == ActionArmTimeoutPropose {
			sawArmPropose = true
			require.Equal(t, domain.Round(1), a.Round)
		}
	}
	require.True(t, sawArmPropose)
	require.Equal(t, domain.Round(1), m.State().Round)
	require.Equal(t, StepPropose, m.State().Step)
}

func TestNilPrevoteQuorumTriggersImmediatePrecommit(t *testing.T) {
	vs, ids := newValidators(4)
	m := NewMachine(1, vs, ids[0])
	m.Start() // proposer of round 0.

	c := commitment(1)
	m.HandleEvent(Event{Kind: EventProposal, Round: 0, Proposer: vs.Proposer(0), Commitment: c})
	m.HandleEvent(Event{Kind: EventFinishedValidation, Round: 0, ValidationOK: true, ValidationCommitment: c})

	for i := 0; i < 3; i++ {
		m.HandleEvent(Event{Kind: EventPrevote, Round: 0, Vote: vote(0, ids[i], nil)})
	}
	require.Equal(t, StepPrecommit, m.State().Step)
}

func TestProposerEntersRoundWithValidValue(t *testing.T) {
	vs, ids := newValidators(4)
	m := NewMachine(1, vs, ids[0])
	m.Start()

	c := commitment(2)
	round := domain.Round(3)
	m.state.ValidValue = &c
	m.state.ValidRound = &round

	actions := m.enterRound(4)
	require.Equal(t, ids[0], vs.Proposer(4))
	require.Len(t, actions, 2)
	require.Equal(t, ActionStartBuildProposal, actions[0].Kind)
	require.NotNil(t, actions[0].ValidRound)
	require.Equal(t, round, *actions[0].ValidRound)
	require.Equal(t, c, *actions[0].Commitment)
}

func TestDriverDropsEventsForInactiveHeight(t *testing.T) {
	vs, ids := newValidators(4)
	d := NewDriver(vs, ids[1])

	actions := d.StartHeight(1)
	require.NotEmpty(t, actions)

	// Event tagged with a stale height is dropped outright.
	stale := d.HandleEvent(0, Event{Kind: EventTimeoutPropose, Round: 0})
	require.Empty(t, stale)

	// A fresh height discards the old Machine's pending state.
	d.StartHeight(2)
	height, state := d.ActiveHeight()
	require.Equal(t, domain.Height(2), height)
	require.Equal(t, domain.Round(0), state.Round)
}
