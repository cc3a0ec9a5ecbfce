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

package sync

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// testChain builds a deterministic linear header/block chain of the given
// length rooted at genesis, for use across this package's tests.
func testChain(n int) []*types.Block {
	blocks := make([]*types.Block, n+1)
	genesis := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(0), Extra: []byte("genesis")})
	blocks[0] = genesis

	parent := genesis
	for i := 1; i <= n; i++ {
		h := &types.Header{
			Number:     big.NewInt(int64(i)),
			ParentHash: parent.Hash(),
			Extra:      []byte{byte(i)},
		}
		blocks[i] = types.NewBlockWithHeader(h)
		parent = blocks[i]
	}
	return blocks
}

func headerWrapper(b *types.Block, peerID string) *HeaderWrapper {
	return &HeaderWrapper{Header: b.Header(), PeerID: peerID}
}

// acceptAllValidator is a HeaderValidator that never rejects.
type acceptAllValidator struct{}

func (acceptAllValidator) ValidateHeader(*types.Header) error { return nil }

// rejectHashValidator rejects a single configured header hash.
type rejectHashValidator struct {
	bad common.Hash
}

func (v rejectHashValidator) ValidateHeader(h *types.Header) error {
	if h.Hash() == v.bad {
		return errInvalidHeader
	}
	return nil
}
