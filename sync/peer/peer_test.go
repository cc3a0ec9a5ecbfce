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

package peer

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct{ id string }

func (s stubHandler) ID() string { return s.id }
func (stubHandler) SendGetBlockHeaders(string, uint64, int, bool) error { return nil }
func (stubHandler) SendGetBlockBodies(string, []*types.Header) error    { return nil }

func TestMemoryPoolRoundRobinAndRelease(t *testing.T) {
	p := NewMemoryPool()
	p.AddPeer(stubHandler{"a"})
	p.AddPeer(stubHandler{"b"})

	first := p.AnyIdle()
	require.NotNil(t, first)
	second := p.AnyIdle()
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID(), second.ID())

	assert.Nil(t, p.AnyIdle())

	p.Release(first.ID())
	third := p.AnyIdle()
	require.NotNil(t, third)
	assert.Equal(t, first.ID(), third.ID())
}

func TestMemoryPoolRemovePeer(t *testing.T) {
	p := NewMemoryPool()
	p.AddPeer(stubHandler{"a"})
	p.RemovePeer("a")
	assert.Nil(t, p.AnyIdle())
}

func TestNewRequestIDUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	assert.NotEqual(t, a, b)
}
