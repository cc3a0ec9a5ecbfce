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

// Contains the body demand loop.

package sync

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/xdc-network/blocksync/sync/peer"
)

// BodyFetcher drives the body half of the pipeline (spec.md §4.3): while the
// import queue has room, it pulls the next batch of header references
// missing a body, splits them into BodyRequestChunk-sized sub-requests, and
// fans them out across every idle peer it can find in one pass.
type BodyFetcher struct {
	cfg       Config
	queue     *SyncQueue
	pool      peer.Pool
	queueSize func() int // reports current import-queue depth, set by Engine

	arrived chan struct{}
}

// NewBodyFetcher wires a BodyFetcher to its queue, peer pool, and a
// queueSize probe (typically the length of SenderPrefetch's Out channel, the
// import queue).
func NewBodyFetcher(cfg Config, queue *SyncQueue, pool peer.Pool, queueSize func() int) *BodyFetcher {
	return &BodyFetcher{
		cfg:       cfg,
		queue:     queue,
		pool:      pool,
		queueSize: queueSize,
		arrived:   make(chan struct{}, 1),
	}
}

func (f *BodyFetcher) notifyArrival() {
	select {
	case f.arrived <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled, issuing body requests as capacity
// allows.
func (f *BodyFetcher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if f.queueSize() >= f.cfg.ImportQueueCap {
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		req := f.queue.requestBlocks(f.cfg.BodyRequestBatch)
		if len(req.Headers) == 0 {
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		dispatched := 0
		for _, sub := range req.Split(f.cfg.BodyRequestChunk) {
			h := f.pool.AnyIdle()
			if h == nil {
				break
			}
			reqID := peer.NewRequestID()
			log.Debug("Requesting block bodies", "peer", h.ID(), "count", len(sub.Headers), "reqid", reqID)
			if err := h.SendGetBlockBodies(reqID, sub.Headers); err != nil {
				log.Warn("Body request failed", "peer", h.ID(), "err", errors.Wrap(err, "failed to send body request to peer"))
				bodyDropMeter.Mark(1)
			} else {
				dispatched++
			}
			f.pool.Release(h.ID())
		}
		if dispatched == 0 {
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		if !f.wait(ctx) {
			return ctx.Err()
		}
	}
}

func (f *BodyFetcher) wait(ctx context.Context) bool {
	timeout := f.cfg.FetchWaitTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.arrived:
		return true
	case <-timer.C:
		bodyTimeoutMeter.Mark(1)
		return true
	case <-ctx.Done():
		return false
	}
}
