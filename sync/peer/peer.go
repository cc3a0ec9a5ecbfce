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

// Package peer defines the PeerPool/PeerHandler contracts the sync engine
// drives. Peer selection, wire-protocol framing and connection management
// are out of scope (spec.md §1): this package states the contracts and
// ships a small in-memory Pool for tests.
package peer

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// NewRequestID mints a correlation id for a GetHeaders/GetBodies request,
// mirroring the RequestId devp2p/eth-66+ carries on the wire so a Handler
// implementation can match late or out-of-order responses back to the call
// that issued them.
func NewRequestID() string {
	return uuid.NewString()
}

// Head describes a peer's most recently announced chain head.
type Head struct {
	Hash       common.Hash
	Number     uint64
	Difficulty *uint256.Int
}

// Handler sends requests to a specific peer. A concrete implementation
// wraps the devp2p eth wire protocol; the sync engine never frames or
// parses messages itself.
type Handler interface {
	// ID identifies the peer this handler talks to.
	ID() string

	// SendGetBlockHeaders requests count headers starting at start
	// (interpreted as a block number), optionally walking backwards.
	// requestID is a correlation id minted by NewRequestID.
	SendGetBlockHeaders(requestID string, start uint64, count int, reverse bool) error

	// SendGetBlockBodies requests bodies for the given headers.
	SendGetBlockBodies(requestID string, headers []*types.Header) error
}

// Pool yields an idle peer or nothing; it never blocks.
type Pool interface {
	// AnyIdle returns a handler for an arbitrary peer with no outstanding
	// request of the relevant kind, or nil if none is available.
	AnyIdle() Handler

	// Release marks a peer as idle again. The sync engine's fetchers call it
	// as soon as their send call returns, without waiting for the peer's
	// response, so AnyIdle can hand out a peer whose response is pending.
	Release(peerID string)
}

// MemoryPool is a minimal round-robin Pool backed by a fixed set of
// handlers, tracking in-flight state per peer. It exists for tests and
// small single-process deployments; production pools are expected to layer
// reputation/throughput scoring on top of the same interface.
type MemoryPool struct {
	mu    sync.Mutex
	order []string
	peers map[string]Handler
	busy  map[string]bool
	next  int
}

// NewMemoryPool creates an empty pool; add peers with AddPeer.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		peers: make(map[string]Handler),
		busy:  make(map[string]bool),
	}
}

// AddPeer registers a handler as a candidate for AnyIdle.
func (p *MemoryPool) AddPeer(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := h.ID()
	if _, ok := p.peers[id]; ok {
		return
	}
	p.peers[id] = h
	p.order = append(p.order, id)
}

// RemovePeer drops a peer from the pool, e.g. on disconnect.
func (p *MemoryPool) RemovePeer(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, id)
	delete(p.busy, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *MemoryPool) AnyIdle() Handler {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.order)
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		id := p.order[idx]
		if !p.busy[id] {
			p.busy[id] = true
			p.next = (idx + 1) % n
			return p.peers[id]
		}
	}
	return nil
}

func (p *MemoryPool) Release(peerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.busy, peerID)
}
