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
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdc-network/blocksync/sync/chain"
	"github.com/xdc-network/blocksync/sync/peer"
)

// stubHandler answers every header/body request with a fixed sub-range of a
// precomputed chain, emulating one well-behaved peer.
type stubHandler struct {
	id      string
	blocks  []*types.Block // index 0 is genesis
	ingress func() *Ingress
}

func (h *stubHandler) ID() string { return h.id }

func (h *stubHandler) SendGetBlockHeaders(requestID string, start uint64, count int, reverse bool) error {
	go func() {
		var headers []*types.Header
		for n := start; n < start+uint64(count) && int(n) < len(h.blocks); n++ {
			headers = append(headers, h.blocks[n].Header())
		}
		if len(headers) == 0 {
			return
		}
		h.ingress().ValidateAndAddHeaders(headers, h.id)
	}()
	return nil
}

func (h *stubHandler) SendGetBlockBodies(requestID string, headers []*types.Header) error {
	go func() {
		var blocks []*types.Block
		for _, hdr := range headers {
			n := hdr.Number.Uint64()
			if int(n) < len(h.blocks) {
				blocks = append(blocks, h.blocks[n])
			}
		}
		if len(blocks) == 0 {
			return
		}
		h.ingress().AddList(context.Background(), blocks, h.id)
	}()
	return nil
}

func TestEngineSyncsLinearChain(t *testing.T) {
	blocks := testChain(30)
	c := chain.NewMemory(blocks[0])
	pool := peer.NewMemoryPool()

	cfg := DefaultConfig()
	cfg.FetchWaitTimeout = 20 * time.Millisecond
	cfg.HeaderRequestWindow = 10

	e := NewEngine(cfg, c, pool, acceptAllValidator{}, types.NewEIP155Signer(nil), nil)

	handler := &stubHandler{id: "peerA", blocks: blocks, ingress: e.Ingress}
	pool.AddPeer(handler)

	ready := func(ctx context.Context) (*types.Header, error) { return blocks[0].Header(), nil }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.Start(ctx, ready))

	require.Eventually(t, func() bool {
		return c.CurrentHead().Number.Uint64() == 30
	}, 5*time.Second, 10*time.Millisecond)

	assert.NoError(t, e.Stop())
}

func TestEngineSyncDisabledNoopStart(t *testing.T) {
	blocks := testChain(1)
	c := chain.NewMemory(blocks[0])
	pool := peer.NewMemoryPool()

	cfg := DefaultConfig()
	cfg.SyncEnabled = false

	e := NewEngine(cfg, c, pool, acceptAllValidator{}, types.NewEIP155Signer(nil), nil)
	ready := func(ctx context.Context) (*types.Header, error) { return blocks[0].Header(), nil }

	require.NoError(t, e.Start(context.Background(), ready))
	assert.Nil(t, e.Ingress())
}
