// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package poseidon provides the Poseidon-2 hash over the BN254 scalar
// field, used throughout this module as the 2-to-1 compressor for the
// incremental Merkle tree.
package poseidon

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"

	"github.com/luxfi/shieldpool/fieldcodec"
)

// hasherFactory is the underlying gnark-crypto hasher constructor.
var hasherFactory = poseidon2.NewMerkleDamgardHasher

// HashPair computes Poseidon2(left, right), interpreting each as the
// little-endian byte representation of an Fr element, and returns the
// little-endian byte representation of the result.
func HashPair(left, right [32]byte) [32]byte {
	var a, b fr.Element
	a.SetBytes(fieldcodec.ChangeEndianness(left[:]))
	b.SetBytes(fieldcodec.ChangeEndianness(right[:]))

	h := hasherFactory()
	aBytes := a.Bytes()
	bBytes := b.Bytes()
	h.Write(aBytes[:])
	h.Write(bBytes[:])
	sum := h.Sum(nil)

	var elem fr.Element
	elem.SetBytes(sum)
	out := elem.Bytes()
	var result [32]byte
	copy(result[:], fieldcodec.ChangeEndianness(out[:]))
	return result
}

// Hash computes Poseidon2 over an arbitrary (1..16) number of
// little-endian-encoded field elements concatenated in input.
func Hash(input []byte) [32]byte {
	h := hasherFactory()
	for off := 0; off+32 <= len(input); off += 32 {
		var e fr.Element
		e.SetBytes(fieldcodec.ChangeEndianness(input[off : off+32]))
		b := e.Bytes()
		h.Write(b[:])
	}
	sum := h.Sum(nil)
	var elem fr.Element
	elem.SetBytes(sum)
	out := elem.Bytes()
	var result [32]byte
	copy(result[:], fieldcodec.ChangeEndianness(out[:]))
	return result
}
