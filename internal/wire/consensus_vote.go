// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/starknet-sequencer/core/internal/domain"
)

// EncodeVote serializes a ConsensusVote with the same protowire framing as
// ProposalPart.
func EncodeVote(v domain.ConsensusVote) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Kind))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Height))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Round))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, v.Voter[:])
	if v.ProposalCommitment != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, v.ProposalCommitment[:])
	}
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, v.Signature)
	return b
}

// DecodeVote parses bytes produced by EncodeVote.
func DecodeVote(data []byte) (domain.ConsensusVote, error) {
	var v domain.ConsensusVote
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, fmt.Errorf("wire: bad vote tag")
		}
		data = data[n:]
		switch num {
		case 1:
			val, n := protowire.ConsumeVarint(data)
			v.Kind = domain.VoteKind(val)
			data = data[n:]
		case 2:
			val, n := protowire.ConsumeVarint(data)
			v.Height = domain.Height(val)
			data = data[n:]
		case 3:
			val, n := protowire.ConsumeVarint(data)
			v.Round = domain.Round(val)
			data = data[n:]
		case 4:
			val, n := protowire.ConsumeBytes(data)
			copy(v.Voter[:], val)
			data = data[n:]
		case 5:
			val, n := protowire.ConsumeBytes(data)
			var c domain.ProposalCommitment
			copy(c[:], val)
			v.ProposalCommitment = &c
			data = data[n:]
		case 6:
			val, n := protowire.ConsumeBytes(data)
			v.Signature = append([]byte(nil), val...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return v, fmt.Errorf("wire: bad unknown vote field")
			}
			data = data[n:]
		}
	}
	return v, nil
}
