// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"crypto/sha256"
	"encoding/binary"
)

// serialize renders e in the exact field order spec.md §4.4 step 3
// specifies: recipient, ext_amount:i64, encrypted_output1:bytes,
// encrypted_output2:bytes, fee:u64, fee_recipient, mint_address, with
// fixed-width fields verbatim and variable-length blobs as a
// little-endian u32 length prefix followed by their bytes (borsh's
// encoding for Vec<u8>). No borsh library ships in the example pack or
// its ecosystem in a form the teacher would reach for, so this is
// ported by hand from that field order.
func (e ExtData) serialize() []byte {
	size := 32 + 8 + 4 + len(e.EncryptedOutput1) + 4 + len(e.EncryptedOutput2) + 8 + 32 + 32
	buf := make([]byte, 0, size)
	buf = append(buf, e.Recipient[:]...)
	buf = appendInt64LE(buf, e.ExtAmount)
	buf = appendBytesLenPrefixed(buf, e.EncryptedOutput1)
	buf = appendBytesLenPrefixed(buf, e.EncryptedOutput2)
	buf = appendUint64LE(buf, e.Fee)
	buf = append(buf, e.FeeRecipient[:]...)
	buf = append(buf, e.MintAddress[:]...)
	return buf
}

// Hash computes SHA-256(borsh(e)). Its little-endian field-element
// interpretation is compared against proof.ExtDataHash's big-endian
// interpretation — never byte-for-byte.
func (e ExtData) Hash() [32]byte {
	return sha256.Sum256(e.serialize())
}

func appendInt64LE(buf []byte, v int64) []byte {
	return appendUint64LE(buf, uint64(v))
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBytesLenPrefixed(buf, data []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(data)))
	buf = append(buf, l[:]...)
	return append(buf, data...)
}
