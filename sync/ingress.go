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

// Contains the entry points wire handlers call when peer responses arrive.

package sync

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// wrapReady turns freshly-assembled blocks into BlockWrappers, stamping the
// one matching announcedHash (if any) as the new-block arrival Importer
// treats as a sync-done candidate.
func wrapReady(blocks []*types.Block, peerID string, announcedHash *common.Hash) []*BlockWrapper {
	wrappers := make([]*BlockWrapper, len(blocks))
	now := time.Now()
	for i, b := range blocks {
		w := &BlockWrapper{Block: b, PeerID: peerID}
		if announcedHash != nil && b.Hash() == *announcedHash {
			w.IsNewBlock = true
			w.ReceivedAt = now
		}
		wrappers[i] = w
	}
	return wrappers
}

// HeaderValidator is the external, pure cryptographic/consensus check over a
// single header. The engine never inspects why a header failed; it only
// logs the validator's own message and drops it.
type HeaderValidator interface {
	ValidateHeader(header *types.Header) error
}

// Ingress is the set of entry points wire protocol handlers call on their
// own goroutines as responses and announcements arrive (spec.md §4.5). It
// owns no state of its own beyond references to the collaborators it feeds.
type Ingress struct {
	queue     *SyncQueue
	prefetch  *SenderPrefetch
	validator HeaderValidator

	onHeadersArrived func()
	onBodiesArrived  func()
	events           SyncEvents
}

// NewIngress wires an Ingress to the queue and prefetch stage it feeds, the
// validator it consults, and the arrival-signal callbacks HeaderFetcher and
// BodyFetcher install (see Engine).
func NewIngress(queue *SyncQueue, prefetch *SenderPrefetch, validator HeaderValidator, events SyncEvents) *Ingress {
	if events == nil {
		events = NopEvents{}
	}
	return &Ingress{queue: queue, prefetch: prefetch, validator: validator, events: events}
}

// setArrivalHooks is called once by Engine during wiring.
func (in *Ingress) setArrivalHooks(onHeaders, onBodies func()) {
	in.onHeadersArrived = onHeaders
	in.onBodiesArrived = onBodies
}

// AddList handles a GetBodies response: attaches bodies to their headers and
// forwards every newly-ready block to SenderPrefetch, ordered ascending.
func (in *Ingress) AddList(ctx context.Context, blocks []*types.Block, peerID string) {
	if len(blocks) == 0 {
		return
	}
	ready := in.queue.addBlocks(blocks)
	in.events.OnBodiesReceived(peerID, len(blocks))
	for _, w := range wrapReady(ready, peerID, nil) {
		if err := in.prefetch.Submit(ctx, w); err != nil {
			log.Debug("Prefetch submit aborted", "block", w.Block.NumberU64(), "err", err)
			return
		}
	}
	if in.onBodiesArrived != nil {
		in.onBodiesArrived()
	}
}

// ValidateAndAddNewBlock handles a spontaneous single-block announcement. It
// validates the header, inserts header and body, and marks whichever
// resulting ready block matches the announced hash as new so Importer can
// recognize it for sync-done purposes.
func (in *Ingress) ValidateAndAddNewBlock(ctx context.Context, block *types.Block, peerID string) bool {
	header := block.Header()
	if err := in.validator.ValidateHeader(header); err != nil {
		log.Warn("Rejected announced block header", "number", header.Number, "hash", header.Hash(), "peer", peerID, "err", err)
		headerDropMeter.Mark(1)
		return false
	}

	in.queue.addHeaders([]*HeaderWrapper{{Header: header, PeerID: peerID}})
	if in.onHeadersArrived != nil {
		in.onHeadersArrived()
	}

	ready := in.queue.addBlocks([]*types.Block{block})
	in.events.OnBodiesReceived(peerID, 1)
	announced := block.Hash()
	for _, w := range wrapReady(ready, peerID, &announced) {
		if err := in.prefetch.Submit(ctx, w); err != nil {
			log.Debug("Prefetch submit aborted", "block", w.Block.NumberU64(), "err", err)
			return true
		}
	}
	if in.onBodiesArrived != nil {
		in.onBodiesArrived()
	}
	return true
}

// ValidateAndAddHeaders handles a GetHeaders response: validates every
// header, rejecting the whole batch on the first failure, then inserts all
// and signals arrival.
func (in *Ingress) ValidateAndAddHeaders(headers []*types.Header, peerID string) bool {
	if len(headers) == 0 {
		return true
	}
	wrappers := make([]*HeaderWrapper, 0, len(headers))
	for _, h := range headers {
		if err := in.validator.ValidateHeader(h); err != nil {
			log.Warn("Rejected header batch", "number", h.Number, "hash", h.Hash(), "peer", peerID, "err", err)
			headerDropMeter.Mark(1)
			return false
		}
		wrappers = append(wrappers, &HeaderWrapper{Header: h, PeerID: peerID})
	}
	in.queue.addHeaders(wrappers)
	in.events.OnHeadersReceived(peerID, len(headers))
	if in.onHeadersArrived != nil {
		in.onHeadersArrived()
	}
	return true
}
