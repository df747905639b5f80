// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"

	"github.com/luxfi/shieldpool/merkletree"
)

// The wire-exposed error taxonomy from spec.md §6/§7, one typed sentinel
// per code. Transact never wraps these in a way that breaks errors.Is.
var (
	ErrUnauthorized                   = errors.New("pool: unauthorized")
	ErrExtDataHashMismatch            = errors.New("pool: ext_data_hash mismatch")
	ErrUnknownRoot                    = errors.New("pool: unknown root")
	ErrInvalidPublicAmountData        = errors.New("pool: invalid public amount data")
	ErrInsufficientFundsForWithdrawal = errors.New("pool: insufficient funds for withdrawal")
	ErrInsufficientFundsForFee        = errors.New("pool: insufficient funds for fee")
	ErrInvalidProof                   = errors.New("pool: invalid proof")
	ErrInvalidFee                     = errors.New("pool: invalid fee")
	ErrInvalidExtAmount               = errors.New("pool: invalid ext amount")
	ErrPublicAmountCalculationError   = errors.New("pool: public amount calculation error")
	ErrArithmeticOverflow             = errors.New("pool: arithmetic overflow")
	ErrDepositLimitExceeded           = errors.New("pool: deposit limit exceeded")
	ErrInvalidFeeRate                 = errors.New("pool: invalid fee rate")
	ErrInvalidFeeRecipient            = errors.New("pool: invalid fee recipient")
	ErrInvalidFeeAmount               = errors.New("pool: invalid fee amount")
	ErrRecipientMismatch              = errors.New("pool: recipient mismatch")
)

// ErrMerkleTreeFull aliases merkletree.ErrMerkleTreeFull so callers can
// errors.Is against either package's sentinel for the one error that
// genuinely originates one layer down.
var ErrMerkleTreeFull = merkletree.ErrMerkleTreeFull
