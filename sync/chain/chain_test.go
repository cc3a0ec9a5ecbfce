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

package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

func chainBlock(number int64, parent *types.Block) *types.Block {
	return types.NewBlockWithHeader(&types.Header{
		Number:     big.NewInt(number),
		ParentHash: parent.Hash(),
	})
}

func TestMemoryTryConnect(t *testing.T) {
	genesis := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(0)})
	m := NewMemory(genesis)

	b1 := chainBlock(1, genesis)
	result, err := m.TryConnect(b1)
	assert.NoError(t, err)
	assert.Equal(t, ImportedBest, result)
	assert.Equal(t, uint64(1), m.CurrentHead().Number.Uint64())

	result, err = m.TryConnect(b1)
	assert.NoError(t, err)
	assert.Equal(t, Exists, result)

	orphan := chainBlock(5, b1)
	orphan = chainBlock(5, orphan) // reparent to a block never inserted
	result, err = m.TryConnect(orphan)
	assert.NoError(t, err)
	assert.Equal(t, NoParent, result)
}

func TestImportResultString(t *testing.T) {
	assert.Equal(t, "IMPORTED_BEST", ImportedBest.String())
	assert.Equal(t, "NO_PARENT", NoParent.String())
}
