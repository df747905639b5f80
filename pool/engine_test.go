// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/luxfi/log"

	"github.com/luxfi/shieldpool/groth16"
	"github.com/luxfi/shieldpool/ledger"
	"github.com/luxfi/shieldpool/merkletree"
)

// stubVerifier lets Transact's pipeline be exercised without a real
// Groth16 proof: constructing one would require an actual trusted-setup
// circuit, out of scope per SPEC_FULL.md's off-chain-prover boundary.
type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(proof groth16.Proof, publicInputs [][32]byte) error {
	return s.err
}

func testLogger() log.Logger {
	return log.NewTestLogger(log.InfoLevel)
}

// validProof builds internally-consistent Proof/TransactParams fields
// (ext_data_hash, public_amount) for the given ext_amount/fee against
// root and the supplied ext-data identifiers, so only the policy and
// bookkeeping steps of Transact are under test.
func validProof(t *testing.T, root [32]byte, extAmount int64, fee uint64, recipient, feeRecipient, mint ledger.AccountID, n0, n1, c0, c1 [32]byte) (Proof, ExtDataMinified) {
	t.Helper()

	extData := ExtData{
		Recipient:    [32]byte(recipient),
		ExtAmount:    extAmount,
		Fee:          fee,
		FeeRecipient: [32]byte(feeRecipient),
		MintAddress:  [32]byte(mint),
	}
	hash := extData.Hash()
	var extDataHashBE [32]byte
	copy(extDataHashBE[:], reverse32(hash))

	expectedP, err := checkPublicAmount(extAmount, fee)
	if err != nil {
		t.Fatalf("checkPublicAmount: %v", err)
	}
	publicAmountBE := expectedP.Bytes()

	proof := Proof{
		Root:              root,
		PublicAmount:      publicAmountBE,
		ExtDataHash:       extDataHashBE,
		InputNullifiers:   [2][32]byte{n0, n1},
		OutputCommitments: [2][32]byte{c0, c1},
	}
	return proof, ExtDataMinified{ExtAmount: extAmount, Fee: fee}
}

func reverse32(b [32]byte) []byte {
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

func TestInitializeAndUpdateDepositLimitRequiresAuthority(t *testing.T) {
	ctx := context.Background()
	state := merkletree.NewState()
	ledg := ledger.NewMemory(nil)
	engine := NewEngineWithVerifier(stubVerifier{}, state, ledg, ledger.AccountID{99}, 0, testLogger())

	authority := ledger.AccountID{1}
	if err := engine.Initialize(ctx, authority, GlobalConfig{Authority: authority}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := engine.UpdateDepositLimit(ctx, ledger.AccountID{2}, 100); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if err := engine.UpdateDepositLimit(ctx, authority, 100); err != nil {
		t.Fatalf("UpdateDepositLimit: %v", err)
	}
	if state.MaxDepositAmount != 100 {
		t.Fatalf("MaxDepositAmount = %d, want 100", state.MaxDepositAmount)
	}
}

func TestUpdateGlobalConfigRequiresAuthorityAndValidatesRates(t *testing.T) {
	ctx := context.Background()
	state := merkletree.NewState()
	ledg := ledger.NewMemory(nil)
	engine := NewEngineWithVerifier(stubVerifier{}, state, ledg, ledger.AccountID{99}, 0, testLogger())

	authority := ledger.AccountID{1}
	if err := engine.Initialize(ctx, authority, GlobalConfig{Authority: authority}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	tooHigh := uint16(10_001)
	if err := engine.UpdateGlobalConfig(ctx, authority, UpdateGlobalConfigParams{DepositFeeRate: &tooHigh}); err != ErrInvalidFeeRate {
		t.Fatalf("got %v, want ErrInvalidFeeRate", err)
	}

	ok := uint16(500)
	if err := engine.UpdateGlobalConfig(ctx, ledger.AccountID{2}, UpdateGlobalConfigParams{DepositFeeRate: &ok}); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if err := engine.UpdateGlobalConfig(ctx, authority, UpdateGlobalConfigParams{DepositFeeRate: &ok}); err != nil {
		t.Fatalf("UpdateGlobalConfig: %v", err)
	}
}

// newDepositReadyEngine returns an initialized Engine with a zero fee
// policy and a generous deposit limit, plus the state/accounts tests
// need to drive a deposit through Transact.
func newDepositReadyEngine(t *testing.T) (engine *Engine, ledg *ledger.Memory, state *merkletree.State, signer, feeRecipient, poolAccount ledger.AccountID) {
	t.Helper()
	ctx := context.Background()

	state = merkletree.NewState()
	ledg = ledger.NewMemory(nil)
	authority := ledger.AccountID{1}
	signer = ledger.AccountID{2}
	feeRecipient = ledger.AccountID{3}
	poolAccount = ledger.AccountID{4}

	engine = NewEngineWithVerifier(stubVerifier{}, state, ledg, poolAccount, 0, testLogger())
	if err := engine.Initialize(ctx, authority, GlobalConfig{Authority: authority}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.UpdateDepositLimit(ctx, authority, 1_000_000); err != nil {
		t.Fatalf("UpdateDepositLimit: %v", err)
	}

	return engine, ledg, state, signer, feeRecipient, poolAccount
}

func TestTransactRejectsUnauthorizedSigner(t *testing.T) {
	ctx := context.Background()
	_, _, state, signer, feeRecipient, _ := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})

	restricted := ledger.NewMemory([]ledger.AccountID{{123}})
	engine2 := NewEngineWithVerifier(stubVerifier{}, merkletree.NewState(), restricted, ledger.AccountID{4}, 0, testLogger())
	if err := engine2.Initialize(ctx, ledger.AccountID{1}, GlobalConfig{Authority: ledger.AccountID{1}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := engine2.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestTransactRejectsUnknownRoot(t *testing.T) {
	ctx := context.Background()
	engine, _, state, signer, feeRecipient, _ := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})
	proof.Root = [32]byte{0xFF} // not a known root

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrUnknownRoot {
		t.Fatalf("got %v, want ErrUnknownRoot", err)
	}
}

func TestTransactRejectsExtDataHashMismatch(t *testing.T) {
	ctx := context.Background()
	engine, _, state, signer, feeRecipient, _ := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})
	proof.ExtDataHash[0] ^= 0xFF // corrupt

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrExtDataHashMismatch {
		t.Fatalf("got %v, want ErrExtDataHashMismatch", err)
	}
}

func TestTransactRejectsInvalidPublicAmountData(t *testing.T) {
	ctx := context.Background()
	engine, _, state, signer, feeRecipient, _ := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})
	proof.PublicAmount[31] ^= 0x01 // corrupt the field element the proof carries

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrInvalidPublicAmountData {
		t.Fatalf("got %v, want ErrInvalidPublicAmountData", err)
	}
}

func TestTransactRejectsInvalidFeeAmount(t *testing.T) {
	ctx := context.Background()
	state := merkletree.NewState()
	ledg := ledger.NewMemory(nil)
	authority := ledger.AccountID{1}
	signer := ledger.AccountID{2}
	feeRecipient := ledger.AccountID{3}
	poolAccount := ledger.AccountID{4}
	mint := ledger.AccountID{6}

	engine := NewEngineWithVerifier(stubVerifier{}, state, ledg, poolAccount, 0, testLogger())
	config := GlobalConfig{Authority: authority, DepositFeeRate: 500} // 5%
	if err := engine.Initialize(ctx, authority, config); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.UpdateDepositLimit(ctx, authority, 1_000_000); err != nil {
		t.Fatalf("UpdateDepositLimit: %v", err)
	}

	// magnitude 1000, 5% -> expected fee 50; provide far less.
	proof, extMin := validProof(t, state.Root, 1000, 1, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrInvalidFeeAmount {
		t.Fatalf("got %v, want ErrInvalidFeeAmount", err)
	}
}

func TestTransactRejectsInvalidProof(t *testing.T) {
	ctx := context.Background()
	state := merkletree.NewState()
	ledg := ledger.NewMemory(nil)
	authority := ledger.AccountID{1}
	signer := ledger.AccountID{2}
	feeRecipient := ledger.AccountID{3}
	poolAccount := ledger.AccountID{4}
	mint := ledger.AccountID{6}

	engine := NewEngineWithVerifier(stubVerifier{err: errors.New("bad pairing")}, state, ledg, poolAccount, 0, testLogger())
	if err := engine.Initialize(ctx, authority, GlobalConfig{Authority: authority}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.UpdateDepositLimit(ctx, authority, 1_000_000); err != nil {
		t.Fatalf("UpdateDepositLimit: %v", err)
	}

	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrInvalidProof {
		t.Fatalf("got %v, want ErrInvalidProof", err)
	}
}

func TestTransactDepositMovesValueAndAppendsCommitments(t *testing.T) {
	ctx := context.Background()
	engine, ledg, state, signer, feeRecipient, poolAccount := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	ledg.SetBalance(signer, 1000)

	proof, extMin := validProof(t, state.Root, 1000, 10, signer, feeRecipient, mint, [32]byte{1}, [32]byte{2}, [32]byte{10}, [32]byte{11})

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	signerBalance, _ := ledg.Balance(ctx, signer)
	poolBalance, _ := ledg.Balance(ctx, poolAccount)
	feeBalance, _ := ledg.Balance(ctx, feeRecipient)
	if signerBalance != 0 {
		t.Fatalf("signer balance = %d, want 0", signerBalance)
	}
	if poolBalance != 990 {
		t.Fatalf("pool balance = %d, want 990", poolBalance)
	}
	if feeBalance != 10 {
		t.Fatalf("fee recipient balance = %d, want 10", feeBalance)
	}
	if state.NextIndex != 2 {
		t.Fatalf("NextIndex = %d, want 2 after two output commitments", state.NextIndex)
	}
}

func TestTransactRejectsNullifierReuse(t *testing.T) {
	ctx := context.Background()
	engine, ledg, state, signer, feeRecipient, _ := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	ledg.SetBalance(signer, 2000)

	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{7}, [32]byte{8}, [32]byte{20}, [32]byte{21})
	params := TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	}

	if err := engine.Transact(ctx, params); err != nil {
		t.Fatalf("first Transact: %v", err)
	}
	if err := engine.Transact(ctx, params); !errors.Is(err, ledger.ErrNullifierAlreadyUsed) {
		t.Fatalf("got %v, want ledger.ErrNullifierAlreadyUsed", err)
	}
}

func TestTransactRejectsDepositOverLimit(t *testing.T) {
	ctx := context.Background()
	state := merkletree.NewState()
	ledg := ledger.NewMemory(nil)
	authority := ledger.AccountID{1}
	signer := ledger.AccountID{2}
	feeRecipient := ledger.AccountID{3}
	poolAccount := ledger.AccountID{4}
	mint := ledger.AccountID{6}

	engine := NewEngineWithVerifier(stubVerifier{}, state, ledg, poolAccount, 0, testLogger())
	if err := engine.Initialize(ctx, authority, GlobalConfig{Authority: authority}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := engine.UpdateDepositLimit(ctx, authority, 100); err != nil {
		t.Fatalf("UpdateDepositLimit: %v", err)
	}
	ledg.SetBalance(signer, 1000)

	proof, extMin := validProof(t, state.Root, 1000, 0, signer, feeRecipient, mint, [32]byte{30}, [32]byte{31}, [32]byte{40}, [32]byte{41})

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrDepositLimitExceeded {
		t.Fatalf("got %v, want ErrDepositLimitExceeded", err)
	}
}

func TestTransactWithdrawalRejectsInsufficientPoolFunds(t *testing.T) {
	ctx := context.Background()
	engine, ledg, state, signer, feeRecipient, poolAccount := newDepositReadyEngine(t)
	mint := ledger.AccountID{6}
	ledg.SetBalance(poolAccount, 50) // less than the 1000 withdrawal requested

	proof, extMin := validProof(t, state.Root, -1000, 0, signer, feeRecipient, mint, [32]byte{50}, [32]byte{51}, [32]byte{60}, [32]byte{61})

	err := engine.Transact(ctx, TransactParams{
		Proof: proof, ExtData: extMin,
		Recipient: signer, FeeRecipient: feeRecipient, MintAddress: [32]byte(mint), Signer: signer,
	})
	if err != ErrInsufficientFundsForWithdrawal {
		t.Fatalf("got %v, want ErrInsufficientFundsForWithdrawal", err)
	}
}
