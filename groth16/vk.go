// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package groth16

// TestVerifyingKey is a placeholder verifying key with the correct
// shape (IC has N+1 = 8 entries for the N = 7 public inputs spec.md
// fixes) for exercising New/Verify's structural checks in tests. It is
// not the output of a real Groth16 trusted setup — a production
// verifying key is generated by the off-chain circuit's setup
// ceremony, out of scope per §1 (the prover is an external
// collaborator).
var TestVerifyingKey = VerifyingKey{
	IC: make([][64]byte, 8),
}
