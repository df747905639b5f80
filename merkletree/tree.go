// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkletree implements the append-only incremental Poseidon
// Merkle tree with a bounded rolling root history that backs the
// shielded pool's commitment set.
package merkletree

import (
	"errors"

	"github.com/luxfi/shieldpool/poseidon"
)

// DefaultHeight and DefaultHistorySize are the production constants: a
// fixed tree depth of 26 levels (2^26 leaves) and a rolling window of the
// 100 most recently produced roots. Dynamic height/history size are
// explicitly out of scope; State carries them as fields (mirroring the
// account layout they were distilled from) purely so tests can exercise
// the ring-buffer algorithm at a smaller scale without duplicating it.
const (
	DefaultHeight      = 26
	DefaultHistorySize = 100
)

// ErrMerkleTreeFull is returned by Append once next_index has reached
// 2^height; it is terminal for the tree.
var ErrMerkleTreeFull = errors.New("merkle tree full")

// State is the sole mutable cryptographic state of the tree.
type State struct {
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

// NewState allocates a State sized for the production constants. Its
// fields are zero-valued until Initialize is called.
func NewState() *State {
	return newState(DefaultHeight, DefaultHistorySize)
}

func newState(height uint8, historySize uint16) *State {
	return &State{
		Height:      height,
		HistorySize: historySize,
		Subtrees:    make([][32]byte, height),
		RootHistory: make([][32]byte, historySize),
	}
}

// zeroHashes returns the Z[0..=height] ladder: Z[0] is the canonical
// empty-leaf value (the zero field element) and Z[k] = Poseidon(Z[k-1],
// Z[k-1]).
func zeroHashes(height uint8) [][32]byte {
	z := make([][32]byte, height+1)
	for k := 1; k <= int(height); k++ {
		z[k] = poseidon.HashPair(z[k-1], z[k-1])
	}
	return z
}

// Tree wraps a *State and implements the incremental append algorithm.
type Tree struct {
	state *State
	zeros [][32]byte
}

// New wraps state, precomputing its zero-hash ladder. state must already
// have Height/HistorySize set (see NewState).
func New(state *State) *Tree {
	return &Tree{state: state, zeros: zeroHashes(state.Height)}
}

// Initialize resets state to the empty tree: next_index at zero, every
// frontier slot cleared, and root set to Z[height]. The empty root is
// recorded in root_history[0] and root_index points at the slot after
// it, so the empty root stays known like any other appended root.
func (t *Tree) Initialize() {
	s := t.state
	s.NextIndex = 0
	for i := range s.Subtrees {
		s.Subtrees[i] = [32]byte{}
	}
	s.Root = t.zeros[s.Height]
	s.RootHistory[0] = s.Root
	s.RootIndex = 1 % uint64(s.HistorySize)
}

// Append inserts leaf at the next free position, updates the frontier and
// rolling root history, and returns the authentication path used or
// synthesized during the update (one sibling per level).
func (t *Tree) Append(leaf [32]byte) ([][32]byte, error) {
	s := t.state
	capacity := uint64(1) << s.Height
	if s.NextIndex >= capacity {
		return nil, ErrMerkleTreeFull
	}

	idx := s.NextIndex
	current := leaf
	path := make([][32]byte, s.Height)

	for k := 0; k < int(s.Height); k++ {
		var left, right [32]byte
		if idx%2 == 0 {
			// Left child: this subtree has no right sibling yet.
			left = current
			right = t.zeros[k]
			path[k] = right
			s.Subtrees[k] = current
		} else {
			// Right child: combine with the cached left sibling.
			left = s.Subtrees[k]
			right = current
			path[k] = left
		}
		current = poseidon.HashPair(left, right)
		idx /= 2
	}

	s.Root = current
	s.RootHistory[s.RootIndex] = current
	s.RootIndex = (s.RootIndex + 1) % uint64(s.HistorySize)
	s.NextIndex++

	return path, nil
}

// IsKnownRoot reports whether candidate equals any entry in the rolling
// root history. The all-zero value is never considered known, guarding
// against acceptance of an uninitialized slot.
func (t *Tree) IsKnownRoot(candidate [32]byte) bool {
	var zero [32]byte
	if candidate == zero {
		return false
	}

	s := t.state
	idx := s.RootIndex
	for i := uint16(0); i < s.HistorySize; i++ {
		if idx == 0 {
			idx = uint64(s.HistorySize)
		}
		idx--
		if s.RootHistory[idx] == candidate {
			return true
		}
	}
	return false
}
