// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package groth16 verifies Groth16 zk-SNARK proofs over the BN254
// pairing-friendly curve.
//
// The caller-supplied proof_a is expected to arrive already negated
// (-A rather than A). This is the opposite convention from a textbook
// Groth16 verifier, which negates alpha/vk_x/C and leaves A untouched;
// here the single required negation has been pushed onto the prover
// instead, so the verifier negates nothing. Supplying a non-negated
// proof_a must fail verification, not succeed by accident.
package groth16

import (
	"errors"
	"math/big"

	"github.com/luxfi/crypto/bn256"

	"github.com/luxfi/shieldpool/fieldcodec"
)

var bigOne = big.NewInt(1)

var (
	// ErrPublicInputGreaterThanFieldSize is returned by Verify when a
	// public input is not strictly less than the BN254 scalar field
	// modulus. VerifyUnchecked skips this check.
	ErrPublicInputGreaterThanFieldSize = errors.New("groth16: public input exceeds BN254 field size")

	// ErrMalformedProof is returned when a proof or verifying-key point
	// fails to deserialize.
	ErrMalformedProof = errors.New("groth16: malformed proof or verifying key point")

	// ErrProofVerificationFailed is returned when the pairing check
	// itself does not hold.
	ErrProofVerificationFailed = errors.New("groth16: proof verification failed")
)

// VerifyingKey is the circuit-specific Groth16 verifying key. IC must
// have exactly len(public inputs)+1 entries.
type VerifyingKey struct {
	Alpha [64]byte
	Beta  [128]byte
	Gamma [128]byte
	Delta [128]byte
	IC    [][64]byte
}

// Proof holds the three Groth16 proof elements exactly as they arrive
// on the wire. A is expected pre-negated by the caller.
type Proof struct {
	A [64]byte
	B [128]byte
	C [64]byte
}

// Verifier binds one proof, its public inputs, and a verifying key for
// a single verification attempt.
type Verifier struct {
	proof        Proof
	publicInputs [][32]byte
	vk           VerifyingKey
}

// New validates that the public input count matches the verifying key's
// IC length and returns a Verifier ready for Verify/VerifyUnchecked.
func New(proof Proof, publicInputs [][32]byte, vk VerifyingKey) (*Verifier, error) {
	if len(vk.IC) != len(publicInputs)+1 {
		return nil, errors.New("groth16: public input count does not match verifying key")
	}
	return &Verifier{proof: proof, publicInputs: publicInputs, vk: vk}, nil
}

// Verify checks every public input is strictly less than the BN254
// field size, then runs the pairing check.
func (v *Verifier) Verify() error {
	for _, input := range v.publicInputs {
		if !fieldcodec.IsLessThanBN254FieldSizeBE(input[:]) {
			return ErrPublicInputGreaterThanFieldSize
		}
	}
	return v.VerifyUnchecked()
}

// VerifyUnchecked runs the pairing check without the field-size bound
// on public inputs. It never panics on malformed input, returning
// ErrMalformedProof or ErrProofVerificationFailed instead.
func (v *Verifier) VerifyUnchecked() error {
	negA, err := deserializeG1(v.proof.A[:])
	if err != nil {
		return err
	}
	b, err := deserializeG2(v.proof.B[:])
	if err != nil {
		return err
	}
	c, err := deserializeG1(v.proof.C[:])
	if err != nil {
		return err
	}
	alpha, err := deserializeG1(v.vk.Alpha[:])
	if err != nil {
		return err
	}
	beta, err := deserializeG2(v.vk.Beta[:])
	if err != nil {
		return err
	}
	gamma, err := deserializeG2(v.vk.Gamma[:])
	if err != nil {
		return err
	}
	delta, err := deserializeG2(v.vk.Delta[:])
	if err != nil {
		return err
	}

	ic := make([]*bn256.G1, len(v.vk.IC))
	for i, icBytes := range v.vk.IC {
		p, err := deserializeG1(icBytes[:])
		if err != nil {
			return err
		}
		ic[i] = p
	}

	vkX, err := computeVkX(ic, v.publicInputs)
	if err != nil {
		return err
	}

	// e(-A, B) * e(alpha, beta) * e(vk_x, gamma) * e(C, delta) = 1
	// holds iff e(A, B) = e(alpha, beta) * e(vk_x, gamma) * e(C, delta),
	// since -A is supplied by the caller and nothing else is negated.
	g1Points := []*bn256.G1{negA, alpha, vkX, c}
	g2Points := []*bn256.G2{b, beta, gamma, delta}

	if !bn256.PairingCheck(g1Points, g2Points) {
		return ErrProofVerificationFailed
	}
	return nil
}

// computeVkX computes IC[0] + sum(publicInputs[i] * IC[i+1]).
func computeVkX(ic []*bn256.G1, publicInputs [][32]byte) (*bn256.G1, error) {
	if len(ic) < 1 {
		return nil, ErrMalformedProof
	}
	vkX := new(bn256.G1)
	vkX.ScalarMult(ic[0], bigOne)

	for i, input := range publicInputs {
		if i+1 >= len(ic) {
			return nil, ErrMalformedProof
		}
		scalar := fieldcodec.FrFromBE(input)
		scalarInt := new(big.Int)
		scalar.BigInt(scalarInt)
		tmp := new(bn256.G1)
		tmp.ScalarMult(ic[i+1], scalarInt)
		vkX.Add(vkX, tmp)
	}
	return vkX, nil
}

func deserializeG1(b []byte) (*bn256.G1, error) {
	if len(b) != 64 {
		return nil, ErrMalformedProof
	}
	// Each 32-byte coordinate arrives little-endian; bn256.Unmarshal
	// expects big-endian.
	be := make([]byte, 64)
	copy(be[:32], fieldcodec.ChangeEndianness(b[:32]))
	copy(be[32:], fieldcodec.ChangeEndianness(b[32:]))

	p := new(bn256.G1)
	if _, err := p.Unmarshal(be); err != nil {
		return nil, ErrMalformedProof
	}
	return p, nil
}

func deserializeG2(b []byte) (*bn256.G2, error) {
	if len(b) != 128 {
		return nil, ErrMalformedProof
	}
	be := make([]byte, 128)
	for i := 0; i < 4; i++ {
		copy(be[i*32:(i+1)*32], fieldcodec.ChangeEndianness(b[i*32:(i+1)*32]))
	}

	p := new(bn256.G2)
	if _, err := p.Unmarshal(be); err != nil {
		return nil, ErrMalformedProof
	}
	return p, nil
}
