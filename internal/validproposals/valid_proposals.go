// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validproposals holds the single process-wide valid-proposals map
// (spec section 5): height -> commitment -> ProposalContent, guarded by one
// lock, written only by Batcher tasks and read by repropose handlers.
// Grounded on the teacher's single-lock shared maps (e.g. the validator
// manager's RWMutex-guarded set in plugin/evm/validators/manager.go).
package validproposals

import (
	"sync"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
)

// Map is the process-wide valid-proposals table.
type Map struct {
	mu      sync.RWMutex
	byHeight map[domain.Height]map[domain.ProposalCommitment]collaborators.ProposalContent
}

// New creates an empty valid-proposals map.
func New() *Map {
	return &Map{byHeight: make(map[domain.Height]map[domain.ProposalCommitment]collaborators.ProposalContent)}
}

// Insert records a finished proposal's content, keyed by (height,
// commitment). Must be called before the owning Batcher task sends Fin on
// the wire, to close the race with a subsequent repropose (spec section
// 4.2 step 3).
func (m *Map) Insert(height domain.Height, commitment domain.ProposalCommitment, content collaborators.ProposalContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCommitment, ok := m.byHeight[height]
	if !ok {
		byCommitment = make(map[domain.ProposalCommitment]collaborators.ProposalContent)
		m.byHeight[height] = byCommitment
	}
	byCommitment[commitment] = content
}

// Get returns the proposal content for (height, commitment), if any.
func (m *Map) Get(height domain.Height, commitment domain.ProposalCommitment) (collaborators.ProposalContent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byCommitment, ok := m.byHeight[height]
	if !ok {
		return collaborators.ProposalContent{}, false
	}
	content, ok := byCommitment[commitment]
	return content, ok
}

// Prune drops all entries for heights strictly below keepFrom, called once
// a height has been decided and its older, un-decided siblings are no
// longer reachable by any repropose.
func (m *Map) Prune(keepFrom domain.Height) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.byHeight {
		if h < keepFrom {
			delete(m.byHeight, h)
		}
	}
}
