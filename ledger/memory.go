// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"context"
	"sync"
)

// Memory is an in-process, map-backed Ledger for tests and single-process
// embedding. It is not durable: a process restart loses all state.
type Memory struct {
	mu       sync.Mutex
	balances map[AccountID]uint64
	signers  map[AccountID]bool
	records  map[string][]byte
}

var _ Ledger = (*Memory)(nil)

// NewMemory returns an empty Memory ledger. authorized lists the
// accounts Authorize will accept; pass nil to authorize everyone.
func NewMemory(authorized []AccountID) *Memory {
	signers := make(map[AccountID]bool, len(authorized))
	for _, a := range authorized {
		signers[a] = true
	}
	return &Memory{
		balances: make(map[AccountID]uint64),
		signers:  signers,
		records:  make(map[string][]byte),
	}
}

// SetBalance seeds an account's balance directly, bypassing Transfer.
func (m *Memory) SetBalance(account AccountID, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = amount
}

// Balance returns an account's current balance.
func (m *Memory) Balance(ctx context.Context, account AccountID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *Memory) Authorize(ctx context.Context, signer AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.signers) == 0 {
		return nil
	}
	if !m.signers[signer] {
		return ErrUnauthorized
	}
	return nil
}

func (m *Memory) Transfer(ctx context.Context, from, to AccountID, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) NullifierExists(ctx context.Context, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[string(key.Bytes())]
	return ok, nil
}

func (m *Memory) CreateNullifiers(ctx context.Context, key0, key1 Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	variants := [4]Key{
		NullifierKey0(key0.ID),
		NullifierKey1(key0.ID),
		NullifierKey0(key1.ID),
		NullifierKey1(key1.ID),
	}
	for _, v := range variants {
		if _, ok := m.records[string(v.Bytes())]; ok {
			return ErrNullifierAlreadyUsed
		}
	}

	m.records[string(key0.Bytes())] = []byte{1}
	m.records[string(key1.Bytes())] = []byte{1}
	return nil
}

func (m *Memory) RecordCommitments(ctx context.Context, key0, key1 Key, data0, data1 []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[string(key0.Bytes())] = append([]byte(nil), data0...)
	m.records[string(key1.Bytes())] = append([]byte(nil), data1...)
	return nil
}

func (m *Memory) GetBytes(ctx context.Context, key Key) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[string(key.Bytes())]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) PutBytes(ctx context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[string(key.Bytes())] = append([]byte(nil), value...)
	return nil
}
