// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starknet-sequencer/core/internal/domain"
)

// maxTrackedRounds bounds how many (round, kind) tallies VoteTracker keeps
// live at once. A height normally advances through very few rounds; this
// guards against an adversarial peer flooding votes for rounds far ahead
// of the local one, the same bounded-cache shape the teacher uses for its
// warp message/signature caches (reference/warp/backend.go).
const maxTrackedRounds = 64

// voteKey identifies one (round, kind) tally.
type voteKey struct {
	round domain.Round
	kind  domain.VoteKind
}

// tally accumulates cumulative weight per commitment (or nil) for one
// (round, kind), and the set of voters already counted, to reject
// double-voting idempotently (spec section 4.3's vote accounting).
type tally struct {
	weight     map[domain.ProposalCommitment]uint64
	nilWeight  uint64
	seenVoters map[domain.VoterID]struct{}
}

func newTally() *tally {
	return &tally{
		weight:     make(map[domain.ProposalCommitment]uint64),
		seenVoters: make(map[domain.VoterID]struct{}),
	}
}

// VoteTracker maintains, per (height, round, kind), a map from commitment
// to cumulative weight plus the set of voters already counted (spec
// section 4.3). One VoteTracker serves a single height; the Driver
// replaces it, together with its Machine, when StartHeight begins a new
// height.
type VoteTracker struct {
	validators *ValidatorSet
	cache      *lru.Cache[voteKey, *tally]
}

// NewVoteTracker builds a tracker over validators.
func NewVoteTracker(validators *ValidatorSet) *VoteTracker {
	cache, err := lru.New[voteKey, *tally](maxTrackedRounds)
	if err != nil {
		// Only possible with a non-positive size, which maxTrackedRounds
		// never is.
		panic(err)
	}
	return &VoteTracker{validators: validators, cache: cache}
}

func (t *VoteTracker) tallyFor(round domain.Round, kind domain.VoteKind) *tally {
	key := voteKey{round: round, kind: kind}
	if tl, ok := t.cache.Get(key); ok {
		return tl
	}
	tl := newTally()
	t.cache.Add(key, tl)
	return tl
}

// Record accounts one vote. It is idempotent: a voter already counted for
// this (round, kind) is ignored regardless of what commitment it now
// claims, matching spec section 4.3 ("reject double-voting... do not count
// twice"). Returns whether this call actually added new weight.
func (t *VoteTracker) Record(round domain.Round, kind domain.VoteKind, voter domain.VoterID, commitment *domain.ProposalCommitment) bool {
	if !t.validators.IsMember(voter) {
		return false
	}
	tl := t.tallyFor(round, kind)
	if _, seen := tl.seenVoters[voter]; seen {
		return false
	}
	tl.seenVoters[voter] = struct{}{}

	w := t.validators.Weight(voter)
	if commitment == nil {
		tl.nilWeight += w
	} else {
		tl.weight[*commitment] += w
	}
	return true
}

// WeightFor returns the cumulative weight counted for commitment at
// (round, kind).
func (t *VoteTracker) WeightFor(round domain.Round, kind domain.VoteKind, commitment domain.ProposalCommitment) uint64 {
	tl := t.tallyFor(round, kind)
	return tl.weight[commitment]
}

// NilWeight returns the cumulative weight counted for nil votes at
// (round, kind).
func (t *VoteTracker) NilWeight(round domain.Round, kind domain.VoteKind) uint64 {
	return t.tallyFor(round, kind).nilWeight
}

// HasQuorum reports whether commitment has reached the weighted Byzantine
// quorum threshold at (round, kind) (I4).
func (t *VoteTracker) HasQuorum(round domain.Round, kind domain.VoteKind, commitment domain.ProposalCommitment) bool {
	return t.WeightFor(round, kind, commitment) >= t.validators.Threshold()
}

// HasNilQuorum reports whether nil votes reached quorum at (round, kind).
func (t *VoteTracker) HasNilQuorum(round domain.Round, kind domain.VoteKind) bool {
	return t.NilWeight(round, kind) >= t.validators.Threshold()
}
