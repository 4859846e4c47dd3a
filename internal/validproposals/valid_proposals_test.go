// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validproposals

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/collaborators"
	"github.com/starknet-sequencer/core/internal/domain"
)

func TestInsertAndGet(t *testing.T) {
	m := New()
	var commitment domain.ProposalCommitment
	commitment[0] = 1

	content := collaborators.ProposalContent{FinalNExecutedTxs: 3}
	m.Insert(5, commitment, content)

	got, ok := m.Get(5, commitment)
	require.True(t, ok)
	require.Equal(t, uint64(3), got.FinalNExecutedTxs)

	_, ok = m.Get(6, commitment)
	require.False(t, ok)
}

func TestPruneDropsOlderHeights(t *testing.T) {
	m := New()
	var c domain.ProposalCommitment
	m.Insert(1, c, collaborators.ProposalContent{})
	m.Insert(2, c, collaborators.ProposalContent{})
	m.Insert(3, c, collaborators.ProposalContent{})

	m.Prune(3)

	_, ok := m.Get(1, c)
	require.False(t, ok)
	_, ok = m.Get(2, c)
	require.False(t, ok)
	_, ok = m.Get(3, c)
	require.True(t, ok)
}
