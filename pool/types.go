// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the TransactEngine: the end-to-end validation
// and state-mutation pipeline for one shielded-pool transaction, built
// on fieldcodec, groth16, merkletree, and an external ledger.Ledger.
package pool

// GlobalConfig holds the authority-updatable fee policy knobs. Rates are
// basis points (0-10000).
type GlobalConfig struct {
	Authority         [32]byte
	DepositFeeRate    uint16
	WithdrawalFeeRate uint16
	FeeErrorMargin    uint16
}

// Proof is the wire-format Groth16 proof plus its seven public inputs,
// exactly as spec.md §6 lays it out. All 32-byte fields are big-endian
// field encodings; ProofA/ProofB/ProofC follow the Groth16Verifier byte
// layout (ProofA pre-negated by the caller).
type Proof struct {
	ProofA            [64]byte
	ProofB            [128]byte
	ProofC            [64]byte
	Root              [32]byte
	PublicAmount      [32]byte
	ExtDataHash       [32]byte
	InputNullifiers   [2][32]byte
	OutputCommitments [2][32]byte
}

// ExtDataMinified is the on-wire slice of ExtData the client actually
// transmits; the rest is reconstructed call-site.
type ExtDataMinified struct {
	ExtAmount int64
	Fee       uint64
}

// ExtData is the full external-data record hashed into proof.ExtDataHash.
type ExtData struct {
	Recipient        [32]byte
	ExtAmount        int64
	EncryptedOutput1 []byte
	EncryptedOutput2 []byte
	Fee              uint64
	FeeRecipient     [32]byte
	MintAddress      [32]byte
}
