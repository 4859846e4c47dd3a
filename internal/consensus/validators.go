// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"github.com/starknet-sequencer/core/internal/domain"
)

// ValidatorSet is the weighted committee consensus runs over. Weights
// default to 1 (spec section 4.3), but the threshold math is generic over
// arbitrary weights.
type ValidatorSet struct {
	ordered []domain.VoterID
	weight  map[domain.VoterID]uint64
	total   uint64
}

// NewValidatorSet builds a set with every id weighted 1.
func NewValidatorSet(ids []domain.VoterID) *ValidatorSet {
	weights := make(map[domain.VoterID]uint64, len(ids))
	for _, id := range ids {
		weights[id] = 1
	}
	return NewWeightedValidatorSet(ids, weights)
}

// NewWeightedValidatorSet builds a set from explicit per-validator weights.
// ids not present in weights default to weight 1.
func NewWeightedValidatorSet(ids []domain.VoterID, weights map[domain.VoterID]uint64) *ValidatorSet {
	vs := &ValidatorSet{
		ordered: append([]domain.VoterID(nil), ids...),
		weight:  make(map[domain.VoterID]uint64, len(ids)),
	}
	for _, id := range ids {
		w, ok := weights[id]
		if !ok {
			w = 1
		}
		vs.weight[id] = w
		vs.total += w
	}
	return vs
}

// Weight returns id's voting weight, 0 if id is not a member.
func (vs *ValidatorSet) Weight(id domain.VoterID) uint64 { return vs.weight[id] }

// TotalWeight is the sum of all member weights.
func (vs *ValidatorSet) TotalWeight() uint64 { return vs.total }

// Threshold is the Byzantine quorum: floor(2N/3) + 1 of total weight,
// i.e. 2f+1 for N=3f+1 (spec section 4.3; confirmed against the N=100,
// threshold=67 worked example in scenario S4).
func (vs *ValidatorSet) Threshold() uint64 {
	return (2*vs.total)/3 + 1
}

// Proposer returns the round-robin leader for round r. Grounded on the
// teacher's deterministic, round-number-indexed leader selection used for
// subnet validator rotation (no randomness, purely a function of height's
// validator ordering and the round number).
func (vs *ValidatorSet) Proposer(r domain.Round) domain.VoterID {
	if len(vs.ordered) == 0 {
		return domain.VoterID{}
	}
	return vs.ordered[int(r)%len(vs.ordered)]
}

// IsMember reports whether id belongs to the set.
func (vs *ValidatorSet) IsMember(id domain.VoterID) bool {
	_, ok := vs.weight[id]
	return ok
}
