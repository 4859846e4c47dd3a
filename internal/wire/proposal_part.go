// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire defines the network wire format emitted by the Batcher
// (ProposalPart) and Consensus (ConsensusVote), and encodes/decodes both
// with the low-level protobuf wire encoder the way the teacher's warp
// message codec frames its payloads by hand (reference/warp/backend.go
// uses warp.UnsignedMessage, itself a hand-framed binary payload rather
// than a generated proto message); here protowire is used directly instead
// of a .proto-generated type, since ProposalPart's part kinds are a closed
// oneof that doesn't warrant a generated schema.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/starknet-sequencer/core/internal/domain"
)

// PartKind distinguishes ProposalPart variants.
type PartKind int

const (
	PartInit PartKind = iota + 1
	PartBlockInfo
	PartTransactions
	PartExecutedTransactionCount
	PartFin
)

// ProposalPart is one message of the Batcher's strictly ordered outbound
// stream: Init -> BlockInfo -> Transactions* -> ExecutedTransactionCount ->
// Fin (spec section 5).
type ProposalPart struct {
	Kind PartKind

	// PartInit
	Height      domain.Height
	Round       domain.Round
	ValidRound  *domain.Round
	Proposer    domain.Address
	Timestamp   uint64
	Builder     domain.Address
	L1DAMode    domain.L1DAMode
	L2GasPrice  []byte // uint256 big-endian
	L1GasPrice  []byte
	StarknetVersion string

	// PartTransactions
	Transactions []domain.InternalConsensusTransaction

	// PartExecutedTransactionCount
	ExecutedCount uint64

	// PartFin
	Commitment domain.ProposalCommitment
}

const (
	fieldKind = 1
	fieldInit = 2
	fieldTransactions = 3
	fieldExecutedCount = 4
	fieldCommitment = 5
)

// Encode serializes p using protobuf wire framing: a top-level tagged
// message whose field number selects the variant, matching the manual
// framing style of the teacher's warp messages.
func Encode(p ProposalPart) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Kind))

	switch p.Kind {
	case PartInit, PartBlockInfo:
		b = protowire.AppendTag(b, fieldInit, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeInit(p))
	case PartTransactions:
		for _, tx := range p.Transactions {
			b = protowire.AppendTag(b, fieldTransactions, protowire.BytesType)
			b = protowire.AppendBytes(b, encodeTx(tx))
		}
	case PartExecutedTransactionCount:
		b = protowire.AppendTag(b, fieldExecutedCount, protowire.VarintType)
		b = protowire.AppendVarint(b, p.ExecutedCount)
	case PartFin:
		b = protowire.AppendTag(b, fieldCommitment, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Commitment[:])
	}
	return b
}

func encodeInit(p ProposalPart) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Height))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Round))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Proposer[:])
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, p.Timestamp)
	if p.ValidRound != nil {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*p.ValidRound))
	}
	return b
}

func encodeTx(tx domain.InternalConsensusTransaction) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.Hash[:])
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.Payload)
	return b
}

// Decode parses bytes produced by Encode. Unknown top-level fields are
// skipped (protowire.ConsumeFieldValue); an unknown field inside a nested
// Init or transaction message is an error.
func Decode(data []byte) (ProposalPart, error) {
	var p ProposalPart
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldKind:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad kind varint")
			}
			p.Kind = PartKind(v)
			data = data[n:]
		case fieldInit:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad init bytes")
			}
			if err := decodeInit(v, &p); err != nil {
				return p, err
			}
			data = data[n:]
		case fieldTransactions:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad tx bytes")
			}
			tx, err := decodeTx(v)
			if err != nil {
				return p, err
			}
			p.Transactions = append(p.Transactions, tx)
			data = data[n:]
		case fieldExecutedCount:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad executed count")
			}
			p.ExecutedCount = v
			data = data[n:]
		case fieldCommitment:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad commitment bytes")
			}
			copy(p.Commitment[:], v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, fmt.Errorf("wire: bad unknown field")
			}
			data = data[n:]
		}
	}
	return p, nil
}

func decodeInit(data []byte, p *ProposalPart) error {
	for len(data) > 0 {
		num, _, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("wire: bad init tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			p.Height = domain.Height(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			p.Round = domain.Round(v)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			copy(p.Proposer[:], v)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeVarint(data)
			p.Timestamp = v
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeVarint(data)
			r := domain.Round(v)
			p.ValidRound = &r
			data = data[n:]
		default:
			return fmt.Errorf("wire: unknown init field %d", num)
		}
	}
	return nil
}

func decodeTx(data []byte) (domain.InternalConsensusTransaction, error) {
	var tx domain.InternalConsensusTransaction
	for len(data) > 0 {
		num, _, n := protowire.ConsumeTag(data)
		if n < 0 {
			return tx, fmt.Errorf("wire: bad tx tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			copy(tx.Hash[:], v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			tx.Payload = append([]byte(nil), v...)
			data = data[n:]
		default:
			return tx, fmt.Errorf("wire: unknown tx field %d", num)
		}
	}
	return tx, nil
}
