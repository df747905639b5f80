// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger abstracts the host account/storage collaborator that
// the pool transacts against: account balances, signature checks, and
// the durable records backing nullifiers, commitments, and the Merkle
// tree singleton state.
package ledger

import (
	"context"
	"errors"
)

// Nullifier and commitment records are written into two physical slots
// per transaction (one per spent input / produced output). Key carries
// the slot prefix alongside the 32-byte identifier so a Ledger
// implementation can lay both out in one flat keyspace.
const (
	SlotNullifier0  = "nullifier0"
	SlotNullifier1  = "nullifier1"
	SlotCommitment0 = "commitment0"
	SlotCommitment1 = "commitment1"
)

// Fixed singleton records addressed with a zero ID.
var (
	MerkleTreeKey  = Key{Prefix: "merkle_tree"}
	TreeTokenKey   = Key{Prefix: "tree_token"}
	GlobalConfigKey = Key{Prefix: "global_config"}
)

// Key addresses a single record in the ledger's flat keyspace.
type Key struct {
	Prefix string
	ID     [32]byte
}

// Bytes renders Key as a stable byte string suitable for use as a map or
// KV-store key.
func (k Key) Bytes() []byte {
	out := make([]byte, 0, len(k.Prefix)+1+32)
	out = append(out, []byte(k.Prefix)...)
	out = append(out, ':')
	out = append(out, k.ID[:]...)
	return out
}

// NullifierKey0/NullifierKey1 and CommitmentKey0/CommitmentKey1 build
// the keys for the two dual-slot record families.
func NullifierKey0(id [32]byte) Key  { return Key{Prefix: SlotNullifier0, ID: id} }
func NullifierKey1(id [32]byte) Key  { return Key{Prefix: SlotNullifier1, ID: id} }
func CommitmentKey0(id [32]byte) Key { return Key{Prefix: SlotCommitment0, ID: id} }
func CommitmentKey1(id [32]byte) Key { return Key{Prefix: SlotCommitment1, ID: id} }

// AccountID identifies a native-value account held by the host.
type AccountID [32]byte

var (
	// ErrUnauthorized is returned by Authorize when signer did not sign
	// this transaction.
	ErrUnauthorized = errors.New("ledger: unauthorized signer")

	// ErrInsufficientBalance is returned by Transfer.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrNullifierAlreadyUsed is returned by CreateNullifiers when any
	// of the four dual-slot key variants for the two supplied
	// nullifiers already exists.
	ErrNullifierAlreadyUsed = errors.New("ledger: nullifier already used")

	// ErrNotFound names a missing record. GetBytes does not return it:
	// both Memory and Store report a never-written record with ok=false
	// and a nil error.
	ErrNotFound = errors.New("ledger: record not found")
)

// Ledger is the host-side collaborator the pool engine transacts
// against. Implementations must make CreateNullifiers and
// RecordCommitments atomic with respect to concurrent callers.
type Ledger interface {
	// Authorize verifies that signer authorized the in-flight
	// transaction (e.g. checked a transaction signature against the
	// account's on-file key).
	Authorize(ctx context.Context, signer AccountID) error

	// Transfer moves amount of native value from 'from' to 'to' under a
	// per-account lock. amount is never negative; the caller is
	// responsible for computing directionality.
	Transfer(ctx context.Context, from, to AccountID, amount uint64) error

	// Balance returns an account's current native-value balance, so a
	// caller can enforce a reserve (e.g. rent-exemption) bound before
	// attempting a Transfer that would otherwise succeed.
	Balance(ctx context.Context, account AccountID) (uint64, error)

	// NullifierExists reports whether a marker has been recorded at key.
	NullifierExists(ctx context.Context, key Key) (bool, error)

	// CreateNullifiers checks all four dual-slot variants of key0.ID and
	// key1.ID for an existing marker and, if none is present, atomically
	// records markers at exactly key0 and key1. It returns
	// ErrNullifierAlreadyUsed if any variant already exists.
	CreateNullifiers(ctx context.Context, key0, key1 Key) error

	// RecordCommitments atomically stores the two output commitment
	// leaves.
	RecordCommitments(ctx context.Context, key0, key1 Key, data0, data1 []byte) error

	// GetBytes loads a singleton record (e.g. the Merkle tree state or
	// global config). ok is false when the record has never been
	// written.
	GetBytes(ctx context.Context, key Key) (value []byte, ok bool, err error)

	// PutBytes stores a singleton record.
	PutBytes(ctx context.Context, key Key, value []byte) error
}
