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

// Contains the parallel transaction-sender recovery pipeline.

package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// senderJob is one block working its way through the prefetch pipeline,
// tagged with its arrival order so results can be re-serialized.
type senderJob struct {
	seq     uint64
	wrapper *BlockWrapper
}

// SenderPrefetch forces ECDSA sender recovery for every transaction in a
// block on a bounded worker pool before the block reaches Importer (spec.md
// §4.4): recovery is expensive and cached on the transaction itself, so
// doing it off the single-threaded import path is a straight latency win
// that changes no semantics. A single reorder stage hands blocks to
// Importer in the same order they arrived, recovery cost paid in parallel.
// Out() is the bounded MPSC import queue itself (spec.md §6), sized by
// ImportQueueCap; the recovery workers' own input channel is a separate,
// smaller buffer sized by PrefetchBuffer.
type SenderPrefetch struct {
	cfg    Config
	signer types.Signer

	in  chan senderJob
	out chan *BlockWrapper

	nextSeq uint64
}

// NewSenderPrefetch creates a prefetch stage for the given signer (chain-id
// bound, matching the rules active at the heights this engine processes).
// The recovery stage's own input buffer is sized by PrefetchBuffer; Out()
// is the import queue proper (spec.md §6) and is sized by ImportQueueCap,
// a distinct and much larger bound — conflating the two would make
// ImportQueueCap unreachable dead configuration.
func NewSenderPrefetch(cfg Config, signer types.Signer) *SenderPrefetch {
	buf := cfg.PrefetchBuffer
	if buf <= 0 {
		buf = 1000
	}
	queueCap := cfg.ImportQueueCap
	if queueCap <= 0 {
		queueCap = 20000
	}
	return &SenderPrefetch{
		cfg:    cfg,
		signer: signer,
		in:     make(chan senderJob, buf),
		out:    make(chan *BlockWrapper, queueCap),
	}
}

// Submit enqueues a wrapped block for sender prefetch, blocking if the input
// buffer is full. Submit is called by Ingress from the addBlocks-ready path,
// in ascending order; since distinct wire-handler goroutines may call it for
// unrelated peers concurrently (spec.md §5), the sequence counter itself is
// atomic, but callers must still issue the Submit calls for a single
// addBlocks/addList batch in order on one goroutine.
func (p *SenderPrefetch) Submit(ctx context.Context, wrapper *BlockWrapper) error {
	seq := atomic.AddUint64(&p.nextSeq, 1) - 1
	select {
	case p.in <- senderJob{seq: seq, wrapper: wrapper}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Out is the ordered channel Importer reads fully-recovered blocks from.
func (p *SenderPrefetch) Out() <-chan *BlockWrapper { return p.out }

// Run spans PrefetchWorkers goroutines recovering senders, plus one
// reordering goroutine that restores arrival order before forwarding to Out.
// It blocks until ctx is canceled.
func (p *SenderPrefetch) Run(ctx context.Context) error {
	workers := p.cfg.PrefetchWorkers
	if workers <= 0 {
		workers = 4
	}

	results := make(chan senderJob, cap(p.in))
	done := make(chan struct{})

	for i := 0; i < workers; i++ {
		go p.worker(ctx, results)
	}
	go p.reorder(ctx, results, done)

	<-ctx.Done()
	<-done
	return ctx.Err()
}

func (p *SenderPrefetch) worker(ctx context.Context, results chan<- senderJob) {
	for {
		select {
		case job, ok := <-p.in:
			if !ok {
				return
			}
			start := time.Now()
			p.recover(job.wrapper.Block)
			senderRecoverTimer.UpdateSince(start)

			select {
			case results <- job:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// recover forces and caches the sender of every transaction in the block.
// Failures are logged and the transaction is left unrecovered: Importer's
// downstream Chain is expected to reject the block on its own validation
// pass, exactly as it would for a block arriving without prefetch.
func (p *SenderPrefetch) recover(block *types.Block) {
	for _, tx := range block.Transactions() {
		if _, err := types.Sender(p.signer, tx); err != nil {
			log.Debug("Sender recovery failed", "block", block.NumberU64(), "tx", tx.Hash(), "err", err)
			senderDropMeter.Mark(1)
		}
	}
}

// reorder buffers out-of-order worker results and releases them to Out in
// strict sequence order, so the import path sees the same ascending order
// Submit was called with.
func (p *SenderPrefetch) reorder(ctx context.Context, results <-chan senderJob, done chan<- struct{}) {
	defer close(done)

	pending := make(map[uint64]*BlockWrapper)
	var next uint64

	for {
		select {
		case job, ok := <-results:
			if !ok {
				return
			}
			pending[job.seq] = job.wrapper
			for {
				wrapper, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				select {
				case p.out <- wrapper:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
