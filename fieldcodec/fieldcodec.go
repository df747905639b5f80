// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fieldcodec converts between raw bytes and BN254 scalar-field
// (Fr) elements, and bridges the big-endian wire form public inputs
// arrive in with the little-endian form the Merkle and commitment
// subsystem uses internally.
package fieldcodec

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// FrModulus is the order of the BN254 scalar field Fr.
var FrModulus = fr.Modulus()

// ChangeEndianness reverses each 32-byte chunk of b into a freshly
// allocated slice, leaving b untouched. A trailing chunk shorter than 32
// bytes is reversed as a single final chunk. ChangeEndianness is its own
// inverse: ChangeEndianness(ChangeEndianness(b)) == b for any b.
func ChangeEndianness(b []byte) []byte {
	out := make([]byte, len(b))
	for start := 0; start < len(b); start += 32 {
		end := start + 32
		if end > len(b) {
			end = len(b)
		}
		n := end - start
		for i := 0; i < n; i++ {
			out[start+i] = b[end-1-i]
		}
	}
	return out
}

// IsLessThanBN254FieldSizeBE reports whether the big-endian interpretation
// of b is strictly less than the BN254 scalar-field modulus.
func IsLessThanBN254FieldSizeBE(b []byte) bool {
	v := new(big.Int).SetBytes(b)
	return v.Cmp(FrModulus) < 0
}

// FrFromLE reduces the little-endian 32-byte value b modulo Fr. It never
// fails: gnark-crypto's SetBytes performs the reduction directly.
func FrFromLE(b [32]byte) fr.Element {
	reversed := ChangeEndianness(b[:])
	var out [32]byte
	copy(out[:], reversed)
	var elem fr.Element
	elem.SetBytes(out[:])
	return elem
}

// FrFromBE reduces the big-endian 32-byte value b modulo Fr.
func FrFromBE(b [32]byte) fr.Element {
	var elem fr.Element
	elem.SetBytes(b[:])
	return elem
}
