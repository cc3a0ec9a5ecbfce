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
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

// HeaderWrapper pairs a header with the id of the peer it arrived from.
type HeaderWrapper struct {
	Header *types.Header
	PeerID string
}

// Number returns the wrapped header's block number, for convenient use as a
// SyncQueue map key.
func (h *HeaderWrapper) Number() uint64 { return h.Header.Number.Uint64() }

// BlockWrapper pairs a block with the id of the peer it arrived from and
// records whether it was announced as the peer's head (as opposed to
// downloaded as part of ordinary backfill).
type BlockWrapper struct {
	Block      *types.Block
	PeerID     string
	IsNewBlock bool
	ReceivedAt time.Time
}
