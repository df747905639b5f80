// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"encoding/json"

	"github.com/luxfi/log"

	"github.com/luxfi/shieldpool/fieldcodec"
	"github.com/luxfi/shieldpool/groth16"
	"github.com/luxfi/shieldpool/ledger"
	"github.com/luxfi/shieldpool/merkletree"
)

// Verifier abstracts step 6's zero-knowledge check behind an interface,
// per spec.md §9's design note that the pairing engine should be reached
// through an interface boundary rather than a concrete dependency, so a
// test can substitute a stub without a real trusted-setup proof.
type Verifier interface {
	Verify(proof groth16.Proof, publicInputs [][32]byte) error
}

// groth16Verifier is the production Verifier, backed by the real BN254
// pairing check.
type groth16Verifier struct {
	vk groth16.VerifyingKey
}

func (g groth16Verifier) Verify(proof groth16.Proof, publicInputs [][32]byte) error {
	v, err := groth16.New(proof, publicInputs, g.vk)
	if err != nil {
		return err
	}
	return v.Verify()
}

// Engine is the TransactEngine: it owns one pool's MerkleTreeState and
// GlobalConfig in memory and orchestrates fieldcodec, a Verifier,
// merkletree, and a ledger.Ledger to execute Transact calls against
// them one at a time, per spec.md §5's single-threaded-per-transaction
// model.
type Engine struct {
	log         log.Logger
	verifier    Verifier
	treeState   *merkletree.State
	tree        *merkletree.Tree
	config      GlobalConfig
	ledger      ledger.Ledger
	poolAccount ledger.AccountID
	rentReserve uint64
}

// NewEngine wires an Engine around an already-allocated Merkle tree
// state (see merkletree.NewState) and a ledger. poolAccount is the
// account holding the pool's native-value balance (TreeTokenAccount in
// spec.md §6).
func NewEngine(vk groth16.VerifyingKey, treeState *merkletree.State, ledg ledger.Ledger, poolAccount ledger.AccountID, rentReserve uint64, logger log.Logger) *Engine {
	return NewEngineWithVerifier(groth16Verifier{vk: vk}, treeState, ledg, poolAccount, rentReserve, logger)
}

// NewEngineWithVerifier is NewEngine with an injectable Verifier, for
// tests that need to exercise Transact's pipeline without a real
// Groth16 proof.
func NewEngineWithVerifier(verifier Verifier, treeState *merkletree.State, ledg ledger.Ledger, poolAccount ledger.AccountID, rentReserve uint64, logger log.Logger) *Engine {
	return &Engine{
		log:         logger,
		verifier:    verifier,
		treeState:   treeState,
		tree:        merkletree.New(treeState),
		ledger:      ledg,
		poolAccount: poolAccount,
		rentReserve: rentReserve,
	}
}

// Initialize creates all pool accounts and sets policy defaults. It may
// be called unconditionally in test mode, or gated by the caller on a
// configured admin identity in production (spec.md §6's precondition is
// enforced by the caller, since "admin" is a host-ledger concept outside
// this package's scope).
func (e *Engine) Initialize(ctx context.Context, authority [32]byte, config GlobalConfig) error {
	e.treeState.Authority = authority
	e.tree.Initialize()
	e.config = config

	if err := e.persistTreeState(ctx); err != nil {
		return err
	}
	return e.persistConfig(ctx)
}

// UpdateDepositLimit requires the caller to be the tree's recorded
// authority.
func (e *Engine) UpdateDepositLimit(ctx context.Context, caller [32]byte, newLimit uint64) error {
	if caller != e.treeState.Authority {
		return ErrUnauthorized
	}
	e.treeState.MaxDepositAmount = newLimit
	return e.persistTreeState(ctx)
}

// UpdateGlobalConfigParams carries the optional per-field updates for
// UpdateGlobalConfig; a nil field leaves the corresponding config value
// untouched.
type UpdateGlobalConfigParams struct {
	DepositFeeRate    *uint16
	WithdrawalFeeRate *uint16
	FeeErrorMargin    *uint16
}

// UpdateGlobalConfig requires the caller to be the config's authority
// and every provided rate to be at most 10000 basis points; it then
// atomically updates the present fields.
func (e *Engine) UpdateGlobalConfig(ctx context.Context, caller [32]byte, params UpdateGlobalConfigParams) error {
	if caller != e.config.Authority {
		return ErrUnauthorized
	}
	for _, rate := range [3]*uint16{params.DepositFeeRate, params.WithdrawalFeeRate, params.FeeErrorMargin} {
		if rate != nil && *rate > 10_000 {
			return ErrInvalidFeeRate
		}
	}

	next := e.config
	if params.DepositFeeRate != nil {
		next.DepositFeeRate = *params.DepositFeeRate
	}
	if params.WithdrawalFeeRate != nil {
		next.WithdrawalFeeRate = *params.WithdrawalFeeRate
	}
	if params.FeeErrorMargin != nil {
		next.FeeErrorMargin = *params.FeeErrorMargin
	}
	e.config = next
	return e.persistConfig(ctx)
}

// TransactParams bundles a proof and minified ext_data with the
// call-site identifiers spec.md §4.4 step 1 reconstructs ext_data from:
// the recipient and fee-recipient accounts, the constant mint
// identifier, and the signer authorizing value movement.
type TransactParams struct {
	Proof            Proof
	ExtData          ExtDataMinified
	EncryptedOutput1 []byte
	EncryptedOutput2 []byte
	Recipient        ledger.AccountID
	FeeRecipient     ledger.AccountID
	MintAddress      [32]byte
	Signer           ledger.AccountID
}

// Transact executes spec.md §4.4's nine-step pipeline in order. Any
// failure aborts before any of steps 7-9 mutate state; steps 7-9
// themselves either all apply or none do, since CreateNullifiers fails
// closed and every subsequent step is only reached after it succeeds.
func (e *Engine) Transact(ctx context.Context, p TransactParams) error {
	if err := e.ledger.Authorize(ctx, p.Signer); err != nil {
		return ErrUnauthorized
	}

	// Step 1: reconstruct ext_data.
	extData := ExtData{
		Recipient:        [32]byte(p.Recipient),
		ExtAmount:        p.ExtData.ExtAmount,
		EncryptedOutput1: p.EncryptedOutput1,
		EncryptedOutput2: p.EncryptedOutput2,
		Fee:              p.ExtData.Fee,
		FeeRecipient:     [32]byte(p.FeeRecipient),
		MintAddress:      p.MintAddress,
	}

	// Step 2: root freshness.
	if !e.tree.IsKnownRoot(p.Proof.Root) {
		return ErrUnknownRoot
	}

	// Step 3: external-data binding. The computed digest is interpreted
	// little-endian, the proof's as big-endian; they are compared as Fr
	// elements, never byte-for-byte.
	computedFr := fieldcodec.FrFromLE(extData.Hash())
	proofExtHashFr := fieldcodec.FrFromBE(p.Proof.ExtDataHash)
	if !computedFr.Equal(&proofExtHashFr) {
		return ErrExtDataHashMismatch
	}

	// Step 4: public-amount consistency.
	expectedP, err := checkPublicAmount(p.ExtData.ExtAmount, p.ExtData.Fee)
	if err != nil {
		return ErrInvalidPublicAmountData
	}
	proofAmountFr := fieldcodec.FrFromBE(p.Proof.PublicAmount)
	if !expectedP.Equal(&proofAmountFr) {
		return ErrInvalidPublicAmountData
	}

	// Step 5: fee policy.
	if err := validateFee(p.ExtData.ExtAmount, p.ExtData.Fee, e.config.DepositFeeRate, e.config.WithdrawalFeeRate, e.config.FeeErrorMargin); err != nil {
		return err
	}

	// Step 6: zero-knowledge verification.
	publicInputs := [][32]byte{
		p.Proof.Root,
		p.Proof.PublicAmount,
		p.Proof.ExtDataHash,
		p.Proof.InputNullifiers[0],
		p.Proof.InputNullifiers[1],
		p.Proof.OutputCommitments[0],
		p.Proof.OutputCommitments[1],
	}
	proof := groth16.Proof{A: p.Proof.ProofA, B: p.Proof.ProofB, C: p.Proof.ProofC}
	if err := e.verifier.Verify(proof, publicInputs); err != nil {
		return ErrInvalidProof
	}

	// Step 7: nullifier uniqueness, delegated to the ledger's
	// create-if-absent primitive across all four dual-slot key variants.
	n0Key := ledger.NullifierKey0(p.Proof.InputNullifiers[0])
	n1Key := ledger.NullifierKey1(p.Proof.InputNullifiers[1])
	if err := e.ledger.CreateNullifiers(ctx, n0Key, n1Key); err != nil {
		return err
	}

	// Step 8: value movement.
	if err := e.moveValue(ctx, p); err != nil {
		return err
	}

	// Step 9: append outputs and persist commitment records.
	if _, err := e.tree.Append(p.Proof.OutputCommitments[0]); err != nil {
		return err
	}
	if _, err := e.tree.Append(p.Proof.OutputCommitments[1]); err != nil {
		return err
	}
	c0Key := ledger.CommitmentKey0(p.Proof.OutputCommitments[0])
	c1Key := ledger.CommitmentKey1(p.Proof.OutputCommitments[1])
	if err := e.ledger.RecordCommitments(ctx, c0Key, c1Key, p.EncryptedOutput1, p.EncryptedOutput2); err != nil {
		return err
	}

	if err := e.persistTreeState(ctx); err != nil {
		return err
	}

	e.log.Info("transaction committed", "ext_amount", p.ExtData.ExtAmount, "fee", p.ExtData.Fee)
	return nil
}

// moveValue implements spec.md §4.4 step 8. Per design-note open
// question 2, a deposit's fee is drawn from the pool's balance, not
// from the incoming deposit itself: the pool receives the full
// ext_amount and then pays the fee out separately, a net gain of
// ext_amount-fee.
func (e *Engine) moveValue(ctx context.Context, p TransactParams) error {
	extAmount := p.ExtData.ExtAmount
	fee := p.ExtData.Fee

	switch {
	case extAmount > 0:
		amount := uint64(extAmount)
		if amount > e.treeState.MaxDepositAmount {
			return ErrDepositLimitExceeded
		}
		if err := e.ledger.Transfer(ctx, p.Signer, e.poolAccount, amount); err != nil {
			return err
		}
	case extAmount < 0:
		withdrawAmount := uint64(-extAmount)
		required, ok := checkedAdd(withdrawAmount, fee)
		if !ok {
			return ErrArithmeticOverflow
		}
		required, ok = checkedAdd(required, e.rentReserve)
		if !ok {
			return ErrArithmeticOverflow
		}
		balance, err := e.ledger.Balance(ctx, e.poolAccount)
		if err != nil {
			return err
		}
		if balance < required {
			return ErrInsufficientFundsForWithdrawal
		}
		if err := e.ledger.Transfer(ctx, e.poolAccount, p.Recipient, withdrawAmount); err != nil {
			return ErrInsufficientFundsForWithdrawal
		}
	}

	if fee > 0 {
		required, ok := checkedAdd(fee, e.rentReserve)
		if !ok {
			return ErrArithmeticOverflow
		}
		balance, err := e.ledger.Balance(ctx, e.poolAccount)
		if err != nil {
			return err
		}
		if balance < required {
			return ErrInsufficientFundsForFee
		}
		if err := e.ledger.Transfer(ctx, e.poolAccount, p.FeeRecipient, fee); err != nil {
			return ErrInsufficientFundsForFee
		}
	}

	return nil
}

// persistedTreeState and persistedConfig are the JSON snapshots written
// into the ledger's "merkle_tree" and "global_config" singleton keys
// from spec.md §6, so those keys are materialized even though the
// authoritative copy an Engine operates on lives in memory.
type persistedTreeState struct {
	Authority        [32]byte
	Height           uint8
	HistorySize      uint16
	NextIndex        uint64
	Subtrees         [][32]byte
	Root             [32]byte
	RootHistory      [][32]byte
	RootIndex        uint64
	MaxDepositAmount uint64
}

func (e *Engine) persistTreeState(ctx context.Context) error {
	snapshot := persistedTreeState{
		Authority:        e.treeState.Authority,
		Height:           e.treeState.Height,
		HistorySize:      e.treeState.HistorySize,
		NextIndex:        e.treeState.NextIndex,
		Subtrees:         e.treeState.Subtrees,
		Root:             e.treeState.Root,
		RootHistory:      e.treeState.RootHistory,
		RootIndex:        e.treeState.RootIndex,
		MaxDepositAmount: e.treeState.MaxDepositAmount,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return e.ledger.PutBytes(ctx, ledger.MerkleTreeKey, data)
}

func (e *Engine) persistConfig(ctx context.Context) error {
	data, err := json.Marshal(e.config)
	if err != nil {
		return err
	}
	return e.ledger.PutBytes(ctx, ledger.GlobalConfigKey, data)
}
