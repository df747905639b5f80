// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
)

const stripeCount = 256

// Store is a durable Ledger backed by a KV database, a write-ahead log,
// and striped per-key locks. It is the option-b standalone-service
// design: every mutation is appended to the WAL before it lands in db,
// so a crash between the two leaves a recoverable record instead of a
// silently torn write.
type Store struct {
	db     database.Database
	wal    io.Writer
	walMu  sync.Mutex
	log    log.Logger
	stripe [stripeCount]sync.Mutex

	balancesKey func(AccountID) []byte
}

var _ Ledger = (*Store)(nil)

// NewStore wraps db for record storage and wal for the write-ahead log.
// wal may be nil to disable durability logging (e.g. in ephemeral test
// environments that already exercise Memory for logic tests).
func NewStore(db database.Database, wal io.Writer, logger log.Logger) *Store {
	return &Store{
		db:  db,
		wal: wal,
		log: logger,
		balancesKey: func(a AccountID) []byte {
			return Key{Prefix: "balance", ID: a}.Bytes()
		},
	}
}

func stripeFor(key []byte) int {
	var h uint32 = 2166136261
	for _, b := range key {
		h ^= uint32(b)
		h *= 16777619
	}
	return int(h % stripeCount)
}

func (s *Store) lockFor(key []byte) *sync.Mutex {
	return &s.stripe[stripeFor(key)]
}

// appendWAL writes one record: a one-byte operation tag followed by each
// key/value argument, each prefixed with its big-endian u32 length.
func (s *Store) appendWAL(op byte, parts ...[]byte) error {
	if s.wal == nil {
		return nil
	}
	s.walMu.Lock()
	defer s.walMu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte(op)
	for _, p := range parts {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p)))
		buf.Write(lenBuf[:])
		buf.Write(p)
	}
	_, err := s.wal.Write(buf.Bytes())
	return err
}

const (
	walOpTransfer    byte = 1
	walOpNullifiers  byte = 2
	walOpCommitments byte = 3
	walOpPutBytes    byte = 4
)

func (s *Store) Authorize(ctx context.Context, signer AccountID) error {
	ok, err := s.db.Has(Key{Prefix: "signer", ID: signer}.Bytes())
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (s *Store) Transfer(ctx context.Context, from, to AccountID, amount uint64) error {
	fromKey := s.balancesKey(from)
	toKey := s.balancesKey(to)

	// Lock in a fixed order (lexicographic on the key bytes) to avoid
	// deadlocking against a concurrent transfer in the opposite
	// direction between the same two accounts.
	first, second := fromKey, toKey
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}
	s.lockFor(first).Lock()
	defer s.lockFor(first).Unlock()
	if !bytes.Equal(first, second) {
		s.lockFor(second).Lock()
		defer s.lockFor(second).Unlock()
	}

	fromBal, err := s.getUint64(fromKey)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrInsufficientBalance
	}
	toBal, err := s.getUint64(toKey)
	if err != nil {
		return err
	}

	if err := s.appendWAL(walOpTransfer, fromKey, toKey, encodeUint64(amount)); err != nil {
		return err
	}
	if err := s.putUint64(fromKey, fromBal-amount); err != nil {
		return err
	}
	if err := s.putUint64(toKey, toBal+amount); err != nil {
		return err
	}
	s.log.Info("ledger transfer", "from", from, "to", to, "amount", amount)
	return nil
}

func (s *Store) Balance(ctx context.Context, account AccountID) (uint64, error) {
	return s.getUint64(s.balancesKey(account))
}

func (s *Store) NullifierExists(ctx context.Context, key Key) (bool, error) {
	return s.db.Has(key.Bytes())
}

func (s *Store) CreateNullifiers(ctx context.Context, key0, key1 Key) error {
	k0b, k1b := key0.Bytes(), key1.Bytes()

	variants := [4]Key{
		NullifierKey0(key0.ID),
		NullifierKey1(key0.ID),
		NullifierKey0(key1.ID),
		NullifierKey1(key1.ID),
	}
	// Hold the stripe of every variant checked below, in ascending stripe
	// order, so a concurrent call with the same values in swapped slots
	// cannot pass the existence check at the same time.
	var need [stripeCount]bool
	for _, v := range variants {
		need[stripeFor(v.Bytes())] = true
	}
	for i := range need {
		if need[i] {
			s.stripe[i].Lock()
			defer s.stripe[i].Unlock()
		}
	}

	for _, v := range variants {
		exists, err := s.db.Has(v.Bytes())
		if err != nil {
			return err
		}
		if exists {
			return ErrNullifierAlreadyUsed
		}
	}

	if err := s.appendWAL(walOpNullifiers, k0b, k1b); err != nil {
		return err
	}
	if err := s.db.Put(k0b, []byte{1}); err != nil {
		return err
	}
	if err := s.db.Put(k1b, []byte{1}); err != nil {
		return err
	}
	s.log.Info("ledger nullifiers created", "key0", key0.ID, "key1", key1.ID)
	return nil
}

func (s *Store) RecordCommitments(ctx context.Context, key0, key1 Key, data0, data1 []byte) error {
	k0b, k1b := key0.Bytes(), key1.Bytes()
	s.lockFor(k0b).Lock()
	defer s.lockFor(k0b).Unlock()
	if stripeFor(k1b) != stripeFor(k0b) {
		s.lockFor(k1b).Lock()
		defer s.lockFor(k1b).Unlock()
	}

	if err := s.appendWAL(walOpCommitments, k0b, data0, k1b, data1); err != nil {
		return err
	}
	if err := s.db.Put(k0b, data0); err != nil {
		return err
	}
	return s.db.Put(k1b, data1)
}

func (s *Store) GetBytes(ctx context.Context, key Key) ([]byte, bool, error) {
	ok, err := s.db.Has(key.Bytes())
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := s.db.Get(key.Bytes())
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) PutBytes(ctx context.Context, key Key, value []byte) error {
	kb := key.Bytes()
	s.lockFor(kb).Lock()
	defer s.lockFor(kb).Unlock()

	if err := s.appendWAL(walOpPutBytes, kb, value); err != nil {
		return err
	}
	return s.db.Put(kb, value)
}

func (s *Store) getUint64(key []byte) (uint64, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	v, err := s.db.Get(key)
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

func (s *Store) putUint64(key []byte, value uint64) error {
	return s.db.Put(key, encodeUint64(value))
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
