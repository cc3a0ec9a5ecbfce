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

// Contains the single-threaded block import loop.

package sync

import (
	"context"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/log"

	"github.com/xdc-network/blocksync/sync/chain"
)

// Importer is the single consumer of the fully-assembled, sender-recovered
// block stream (spec.md §4.5). It is deliberately single-threaded: Chain
// implementations are free to assume sequential, non-overlapping calls to
// TryConnect.
type Importer struct {
	chain  chain.Chain
	queue  *SyncQueue
	events SyncEvents

	syncDone atomic.Bool
}

// NewImporter wires an Importer to the chain it imports into, the queue it
// reports completed heights back to, and the listener it notifies.
func NewImporter(c chain.Chain, queue *SyncQueue, events SyncEvents) *Importer {
	if events == nil {
		events = NopEvents{}
	}
	return &Importer{chain: c, queue: queue, events: events}
}

// Run consumes wrapped blocks from in until ctx is canceled or the channel
// closes.
func (imp *Importer) Run(ctx context.Context, in <-chan *BlockWrapper) error {
	for {
		select {
		case wrapper, ok := <-in:
			if !ok {
				return nil
			}
			imp.importOne(wrapper)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (imp *Importer) importOne(wrapper *BlockWrapper) {
	block := wrapper.Block
	result, err := imp.chain.TryConnect(block)
	if err != nil {
		log.Error("Block import errored", "number", block.NumberU64(), "hash", block.Hash(), "err", err)
		log.Debug("Failed block dump", "dump", spew.Sdump(block.Header()))
		importErrorMeter.Mark(1)
		return
	}

	switch result {
	case chain.ImportedBest:
		importedMeter.Mark(1)
		imp.queue.SetChainHead(block.Header())
		log.Debug("Imported block", "number", block.NumberU64(), "hash", block.Hash())
		if wrapper.IsNewBlock && imp.syncDone.CompareAndSwap(false, true) {
			syncDoneMeter.Mark(1)
			go imp.events.OnSyncDone()
		}

	case chain.ImportedNotBest:
		importedMeter.Mark(1)
		log.Debug("Imported non-canonical block", "number", block.NumberU64(), "hash", block.Hash())

	case chain.Exists:
		// Already known; not an error, just a no-op (spec.md §4.5 edge case).

	case chain.NoParent:
		// Treated as transient, not an error: the queue only ever hands
		// Importer blocks whose parent it believes is already canonical, so
		// this means the chain's notion of canonical diverged from the
		// queue's (e.g. a concurrent reorg). Logged at Warn, not Error; the
		// queue is reset to the chain's current head, so it re-requests the
		// missing ancestor once its pending header ranges expire.
		log.Warn("Import reported missing parent", "number", block.NumberU64(), "hash", block.Hash(), "parent", block.ParentHash(), "err", errNoParent)
		log.Debug("Orphaned block dump", "dump", spew.Sdump(block.Header()))
		imp.queue.SetChainHead(imp.chain.CurrentHead())

	case chain.InvalidBlock:
		importErrorMeter.Mark(1)
		log.Error("Invalid block rejected by chain", "number", block.NumberU64(), "hash", block.Hash())
		log.Debug("Invalid block dump", "dump", spew.Sdump(block.Header()))

	default:
		importErrorMeter.Mark(1)
		log.Error("Unexpected block import result", "number", block.NumberU64(), "hash", block.Hash(), "result", result)
		log.Debug("Unexpected result block dump", "dump", spew.Sdump(block.Header()))
	}
}
