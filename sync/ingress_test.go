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

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngress(cfg Config, chain []*types.Block, validator HeaderValidator) (*Ingress, *SyncQueue, *SenderPrefetch) {
	q := NewSyncQueue(cfg, chain[0].Header())
	p := NewSenderPrefetch(cfg, types.NewEIP155Signer(nil))
	in := NewIngress(q, p, validator, NopEvents{})
	return in, q, p
}

func TestIngressAddList(t *testing.T) {
	chain := testChain(3)
	in, q, p := newTestIngress(DefaultConfig(), chain, acceptAllValidator{})

	var wrappers []*HeaderWrapper
	for _, b := range chain[1:] {
		wrappers = append(wrappers, headerWrapper(b, "peerA"))
	}
	q.addHeaders(wrappers)

	in.AddList(context.Background(), chain[1:], "peerA")

	require.Len(t, p.in, 3)
}

func TestIngressValidateAndAddHeadersRejectsWholeBatch(t *testing.T) {
	chain := testChain(3)
	bad := rejectHashValidator{bad: chain[2].Hash()}
	in, q, _ := newTestIngress(DefaultConfig(), chain, bad)

	ok := in.ValidateAndAddHeaders([]*types.Header{chain[1].Header(), chain[2].Header(), chain[3].Header()}, "peerA")
	assert.False(t, ok)
	assert.Equal(t, 0, q.getHeadersCount())
}

func TestIngressValidateAndAddHeadersAcceptsBatch(t *testing.T) {
	chain := testChain(3)
	in, q, _ := newTestIngress(DefaultConfig(), chain, acceptAllValidator{})

	ok := in.ValidateAndAddHeaders([]*types.Header{chain[1].Header(), chain[2].Header(), chain[3].Header()}, "peerA")
	assert.True(t, ok)
	assert.Equal(t, 3, q.getHeadersCount())
}

func TestIngressValidateAndAddNewBlockRejected(t *testing.T) {
	chain := testChain(1)
	bad := rejectHashValidator{bad: chain[1].Hash()}
	in, q, _ := newTestIngress(DefaultConfig(), chain, bad)

	ok := in.ValidateAndAddNewBlock(context.Background(), chain[1], "peerA")
	assert.False(t, ok)
	assert.Equal(t, 0, q.getHeadersCount())
}

func TestIngressValidateAndAddNewBlockMarksIsNewBlock(t *testing.T) {
	chain := testChain(1)
	in, _, p := newTestIngress(DefaultConfig(), chain, acceptAllValidator{})

	ok := in.ValidateAndAddNewBlock(context.Background(), chain[1], "peerA")
	require.True(t, ok)

	job := <-p.in
	assert.True(t, job.wrapper.IsNewBlock)
	assert.Equal(t, chain[1].Hash(), job.wrapper.Block.Hash())
}
