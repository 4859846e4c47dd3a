// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starknet-sequencer/core/internal/domain"
)

func TestEncodeDecodeInit(t *testing.T) {
	vr := domain.Round(2)
	var proposer domain.Address
	proposer[0] = 7

	p := ProposalPart{
		Kind:       PartInit,
		Height:     42,
		Round:      3,
		ValidRound: &vr,
		Proposer:   proposer,
		Timestamp:  1000,
	}

	decoded, err := Decode(Encode(p))
	require.NoError(t, err)
	require.Equal(t, PartInit, decoded.Kind)
	require.Equal(t, domain.Height(42), decoded.Height)
	require.Equal(t, domain.Round(3), decoded.Round)
	require.NotNil(t, decoded.ValidRound)
	require.Equal(t, domain.Round(2), *decoded.ValidRound)
	require.Equal(t, proposer, decoded.Proposer)
}

func TestEncodeDecodeTransactions(t *testing.T) {
	var h1, h2 domain.TxHash
	h1[0], h2[0] = 1, 2

	p := ProposalPart{
		Kind: PartTransactions,
		Transactions: []domain.InternalConsensusTransaction{
			{Hash: h1, Payload: []byte("a")},
			{Hash: h2, Payload: []byte("b")},
		},
	}

	decoded, err := Decode(Encode(p))
	require.NoError(t, err)
	require.Equal(t, PartTransactions, decoded.Kind)
	require.Len(t, decoded.Transactions, 2)
	require.Equal(t, h1, decoded.Transactions[0].Hash)
	require.Equal(t, []byte("b"), decoded.Transactions[1].Payload)
}

func TestEncodeDecodeFin(t *testing.T) {
	var c domain.ProposalCommitment
	c[0] = 99
	p := ProposalPart{Kind: PartFin, Commitment: c}

	decoded, err := Decode(Encode(p))
	require.NoError(t, err)
	require.Equal(t, PartFin, decoded.Kind)
	require.Equal(t, c, decoded.Commitment)
}

func TestEncodeDecodeVote(t *testing.T) {
	var commitment domain.ProposalCommitment
	commitment[0] = 5
	var voter domain.VoterID
	voter[0] = 3

	v := domain.ConsensusVote{
		Kind:               domain.VotePrecommit,
		Height:             10,
		Round:              1,
		Voter:              voter,
		ProposalCommitment: &commitment,
		Signature:          []byte("sig"),
	}

	decoded, err := DecodeVote(EncodeVote(v))
	require.NoError(t, err)
	require.Equal(t, domain.VotePrecommit, decoded.Kind)
	require.Equal(t, domain.Height(10), decoded.Height)
	require.NotNil(t, decoded.ProposalCommitment)
	require.Equal(t, commitment, *decoded.ProposalCommitment)
	require.Equal(t, []byte("sig"), decoded.Signature)
}

func TestEncodeDecodeNilVote(t *testing.T) {
	var voter domain.VoterID
	voter[0] = 4
	v := domain.ConsensusVote{
		Kind:   domain.VotePrevote,
		Height: 1,
		Round:  0,
		Voter:  voter,
	}

	decoded, err := DecodeVote(EncodeVote(v))
	require.NoError(t, err)
	require.Nil(t, decoded.ProposalCommitment)
}
