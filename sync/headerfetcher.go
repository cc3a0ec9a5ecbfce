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

// Contains the header demand loop.

package sync

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/xdc-network/blocksync/sync/peer"
)

// HeaderFetcher drives the header half of the pipeline (spec.md §4.2): while
// the queue's header backlog is under HeaderBacklogCap, it grabs an idle
// peer and asks for the next unrequested header range, then waits for
// either an arrival signal or FetchWaitTimeout before probing again.
type HeaderFetcher struct {
	cfg   Config
	queue *SyncQueue
	pool  peer.Pool

	arrived chan struct{} // signaled once per delivered batch, see notifyArrival
}

// NewHeaderFetcher wires a HeaderFetcher to its queue and peer pool.
func NewHeaderFetcher(cfg Config, queue *SyncQueue, pool peer.Pool) *HeaderFetcher {
	return &HeaderFetcher{
		cfg:     cfg,
		queue:   queue,
		pool:    pool,
		arrived: make(chan struct{}, 1),
	}
}

// notifyArrival wakes a blocked Run loop; it is called by Ingress whenever a
// header batch lands. Non-blocking: a pending signal is enough, a burst of
// several is collapsed to one wakeup.
func (f *HeaderFetcher) notifyArrival() {
	select {
	case f.arrived <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled, issuing header requests as capacity
// allows.
func (f *HeaderFetcher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if f.queue.getHeadersCount() >= f.cfg.HeaderBacklogCap {
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		h := f.pool.AnyIdle()
		if h == nil {
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		req := f.queue.requestHeaders()
		reqID := peer.NewRequestID()
		log.Debug("Requesting header batch", "peer", h.ID(), "start", req.Start, "count", req.Count, "reqid", reqID)

		if err := h.SendGetBlockHeaders(reqID, req.Start, req.Count, req.Reverse); err != nil {
			err = errors.Wrap(err, "failed to send header request to peer")
			log.Warn("Header request failed", "peer", h.ID(), "err", err)
			f.pool.Release(h.ID())
			headerDropMeter.Mark(1)
			continue
		}
		f.pool.Release(h.ID())

		if !f.wait(ctx) {
			return ctx.Err()
		}
	}
}

// wait blocks until an arrival is signaled, FetchWaitTimeout elapses, or ctx
// is canceled. It returns false only when ctx is done.
func (f *HeaderFetcher) wait(ctx context.Context) bool {
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
		headerTimeoutMeter.Mark(1)
		return true
	case <-ctx.Done():
		return false
	}
}
