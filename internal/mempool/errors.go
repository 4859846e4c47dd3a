// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"errors"
	"fmt"

	"github.com/starknet-sequencer/core/internal/domain"
)

// ErrDuplicateHash is returned by AddTx when tx.Hash is already present.
var ErrDuplicateHash = errors.New("mempool: duplicate transaction hash")

// ErrDuplicateNonce is returned by AddTx when the pool already holds a
// transaction at the same (sender, nonce) that is not strictly lower
// priority than the incoming one.
type ErrDuplicateNonce struct {
	Sender domain.Address
	Nonce  domain.Nonce
}

func (e *ErrDuplicateNonce) Error() string {
	return fmt.Sprintf("mempool: duplicate nonce %d for sender %s", e.Nonce, e.Sender)
}

// ErrNonceTooOld is returned by AddTx when tx.Nonce < committed_nonce(sender).
type ErrNonceTooOld struct {
	Sender         domain.Address
	Nonce          domain.Nonce
	CommittedNonce domain.Nonce
}

func (e *ErrNonceTooOld) Error() string {
	return fmt.Sprintf("mempool: nonce %d too old for sender %s (committed nonce %d)", e.Nonce, e.Sender, e.CommittedNonce)
}
