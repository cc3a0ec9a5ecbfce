// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package chain defines the Chain contract the sync engine imports blocks
// into. Chain reorg logic and block persistence are out of scope (spec.md
// §1 Non-goals); this package only states the interface and ships a small
// in-memory implementation for tests.
package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ImportResult enumerates the outcomes of TryConnect.
type ImportResult int

const (
	ImportedBest ImportResult = iota
	ImportedNotBest
	NoParent
	Exists
	InvalidBlock
)

func (r ImportResult) String() string {
	switch r {
	case ImportedBest:
		return "IMPORTED_BEST"
	case ImportedNotBest:
		return "IMPORTED_NOT_BEST"
	case NoParent:
		return "NO_PARENT"
	case Exists:
		return "EXISTS"
	case InvalidBlock:
		return "INVALID_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Chain is the local canonical-chain collaborator. Implementations are
// expected to be safe for concurrent use by a single Importer goroutine and
// arbitrary readers of CurrentHead.
type Chain interface {
	// TryConnect attempts to import block into the local chain.
	TryConnect(block *types.Block) (ImportResult, error)

	// CurrentHead returns the header of the chain's current best block.
	CurrentHead() *types.Header
}

// Memory is a trivial in-memory Chain used by tests and by tools that want
// to exercise the sync engine without a full blockchain implementation.
type Memory struct {
	mu     sync.Mutex
	blocks map[common.Hash]*types.Block
	head   *types.Block
}

// NewMemory creates a Memory chain seeded with the given genesis/head block.
func NewMemory(genesis *types.Block) *Memory {
	m := &Memory{
		blocks: make(map[common.Hash]*types.Block),
		head:   genesis,
	}
	m.blocks[genesis.Hash()] = genesis
	return m
}

func (m *Memory) CurrentHead() *types.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head.Header()
}

func (m *Memory) TryConnect(block *types.Block) (ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[block.Hash()]; ok {
		return Exists, nil
	}
	if _, ok := m.blocks[block.ParentHash()]; !ok {
		return NoParent, nil
	}
	m.blocks[block.Hash()] = block
	if block.NumberU64() > m.head.NumberU64() {
		m.head = block
		return ImportedBest, nil
	}
	return ImportedNotBest, nil
}
