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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdc-network/blocksync/sync/chain"
)

type countingEvents struct {
	syncDone atomic.Int32
}

func (e *countingEvents) OnSyncDone()                   { e.syncDone.Add(1) }
func (e *countingEvents) OnHeadersReceived(string, int)  {}
func (e *countingEvents) OnBodiesReceived(string, int)   {}

func TestImporterFiresSyncDoneOnceForAnnouncedBlock(t *testing.T) {
	blocks := testChain(5)
	c := chain.NewMemory(blocks[0])
	q := NewSyncQueue(DefaultConfig(), blocks[0].Header())
	events := &countingEvents{}
	imp := NewImporter(c, q, events)

	in := make(chan *BlockWrapper, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go imp.Run(ctx, in)

	for i, b := range blocks[1:] {
		in <- &BlockWrapper{Block: b, IsNewBlock: i == len(blocks)-2}
	}

	require.Eventually(t, func() bool {
		return c.CurrentHead().Number.Uint64() == 5
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return events.syncDone.Load() == 1
	}, time.Second, time.Millisecond)

	// Re-importing the same announced block must not fire a second time.
	in <- &BlockWrapper{Block: blocks[5], IsNewBlock: true}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), events.syncDone.Load())
}

func TestImporterNoParentIsNonFatal(t *testing.T) {
	blocks := testChain(2)
	c := chain.NewMemory(blocks[0])
	q := NewSyncQueue(DefaultConfig(), blocks[0].Header())
	imp := NewImporter(c, q, nil)

	in := make(chan *BlockWrapper, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- imp.Run(ctx, in) }()

	// block 2 has no known parent yet (block 1 missing).
	in <- &BlockWrapper{Block: blocks[2]}
	time.Sleep(10 * time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
