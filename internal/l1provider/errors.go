// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package l1provider

import "errors"

// ErrOutOfSessionGetTransactions is returned by GetTxs when the provider
// is not in a Propose session for the requested height.
var ErrOutOfSessionGetTransactions = errors.New("l1provider: get_txs called out of propose session")

// ErrOutOfSessionValidate is returned by Validate when the provider is not
// in a Validate session for the requested height.
var ErrOutOfSessionValidate = errors.New("l1provider: validate called out of validate session")

// ErrWrongHeight is returned by CommitBlock and StartBlock when the
// requested height does not match the provider's expectations.
var ErrWrongHeight = errors.New("l1provider: wrong height")
