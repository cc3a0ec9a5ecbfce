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

// Contains the block/header reassembly queue driving the sync engine.

package sync

import (
	"sort"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	mapset "github.com/deckarep/golang-set/v2"
)

// headerCandidate is one of possibly several competing headers known for a
// given height.
type headerCandidate struct {
	hash common.Hash
	peer string
}

// headerSlot tracks every header known for one height, until exactly one is
// resolved and assembled into a block.
type headerSlot struct {
	candidates mapset.Set[headerCandidate]
	headers    map[common.Hash]*HeaderWrapper
	firstSeen  time.Time
}

func newHeaderSlot() *headerSlot {
	return &headerSlot{
		candidates: mapset.NewSet[headerCandidate](),
		headers:    make(map[common.Hash]*HeaderWrapper),
		firstSeen:  time.Now(),
	}
}

// HeadersRequest is what requestHeaders() computes: the next header range to
// fetch.
type HeadersRequest struct {
	Start   uint64
	Count   int
	Reverse bool
}

// BlocksRequest is what requestBlocks() computes: header references whose
// bodies are still missing.
type BlocksRequest struct {
	Headers []*types.Header
}

// Split partitions a BlocksRequest into sub-requests of at most chunkSize
// headers each, for fan-out across several idle peers.
func (r *BlocksRequest) Split(chunkSize int) []*BlocksRequest {
	if chunkSize <= 0 || len(r.Headers) == 0 {
		return nil
	}
	var out []*BlocksRequest
	for i := 0; i < len(r.Headers); i += chunkSize {
		end := i + chunkSize
		if end > len(r.Headers) {
			end = len(r.Headers)
		}
		out = append(out, &BlocksRequest{Headers: r.Headers[i:end]})
	}
	return out
}

// headerRange is one dispatched requestHeaders() span: a lost response (peer
// accepted the send but never answered, or disconnected after accepting it)
// must not permanently hide the gap it covers, so each range carries a
// deadline. A range stays pending until that deadline whether or not its
// headers arrived; after it, any height of the span still missing becomes
// eligible for request again.
type headerRange struct {
	start    uint64
	count    uint64
	deadline time.Time
}

// SyncQueue is the in-memory reassembly structure described in spec.md §3
// and §4.1: it tracks known headers by height, the gaps that still need
// fetching, the bodies waiting to be attached, and emits contiguous runs of
// importable blocks as soon as they can be assembled. All operations are
// serialized behind a single mutex (spec.md §5: "serialize via a single
// lock or equivalent").
type SyncQueue struct {
	mu sync.Mutex

	cfg Config

	headers map[uint64]*headerSlot      // height -> competing header candidates
	bodies  map[common.Hash]*types.Block // header hash -> body awaiting attachment

	// chainHead is the block the queue assembles on top of: set by
	// SetChainHead, and moved by addBlocks to the last block of every ready
	// run it returns, before that block is imported. It can therefore be
	// ahead of the local chain's imported head.
	chainHead *types.Header

	pendingHeaderRanges []headerRange // outstanding requestHeaders() spans, see headerRange
	highestKnown        uint64        // highest header height ever inserted

	seen *fastcache.Cache // hashes of headers addHeaders has inserted; addBlocks does not use it
}

// NewSyncQueue creates a queue anchored at the given chain head.
func NewSyncQueue(cfg Config, chainHead *types.Header) *SyncQueue {
	q := &SyncQueue{
		cfg:          cfg,
		headers:      make(map[uint64]*headerSlot),
		bodies:       make(map[common.Hash]*types.Block),
		chainHead:    chainHead,
		highestKnown: chainHead.Number.Uint64(),
		seen:         fastcache.New(128 * 1024),
	}
	return q
}

// SetChainHead replaces the queue's chain head, e.g. after Importer connects
// a block or reports a missing parent. The head is replaced unconditionally,
// so it can move backwards. Heights at or below the new head are pruned from
// the pending header/body maps.
func (q *SyncQueue) SetChainHead(head *types.Header) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.chainHead = head
	n := head.Number.Uint64()
	for height, slot := range q.headers {
		if height > n {
			continue
		}
		for hash := range slot.headers {
			delete(q.bodies, hash)
		}
		delete(q.headers, height)
	}
}

func (q *SyncQueue) seenKey(prefix byte, b []byte) []byte {
	key := make([]byte, 0, len(b)+1)
	key = append(key, prefix)
	key = append(key, b...)
	return key
}

// addHeaders inserts wrappers; headers at or below chainHead, or already
// present, are ignored (spec.md §4.1).
func (q *SyncQueue) addHeaders(wrappers []*HeaderWrapper) {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.chainHead.Number.Uint64()
	for _, w := range wrappers {
		num := w.Number()
		if num <= head {
			continue
		}
		hash := w.Header.Hash()

		key := q.seenKey('h', hash.Bytes())
		if q.seen.Has(key) {
			if slot, ok := q.headers[num]; ok {
				if _, exists := slot.headers[hash]; exists {
					continue // genuinely a duplicate: idempotent no-op
				}
			}
		}

		slot, ok := q.headers[num]
		if !ok {
			slot = newHeaderSlot()
			q.headers[num] = slot
		}
		cand := headerCandidate{hash: hash, peer: w.PeerID}
		if slot.candidates.Contains(cand) {
			continue
		}
		slot.candidates.Add(cand)
		slot.headers[hash] = w
		q.seen.Set(key, nil)

		if num > q.highestKnown {
			q.highestKnown = num
		}
		headerInMeter.Mark(1)
	}
	q.resolveCompeting()
	headerBacklogGauge.Update(int64(q.headerCountLocked()))
}

// resolveCompeting settles heights holding more than one candidate. Once any
// candidate's parent is known (chainHead, or a header held at the previous
// height), one such candidate is kept and every other candidate at that
// height is dropped. A height with two or more candidates, none of them
// resolvable, is dropped outright once it is older than CompetingHeaderTTL
// to bound memory (the bounded variant of spec.md §4.1's "keep all until
// disambiguation"). Heights with a single candidate are never dropped here.
func (q *SyncQueue) resolveCompeting() {
	now := time.Now()
	for height, slot := range q.headers {
		if len(slot.headers) <= 1 {
			continue
		}
		var resolvable []common.Hash
		for hash, w := range slot.headers {
			if q.hasKnownParent(height, w.Header.ParentHash) {
				resolvable = append(resolvable, hash)
			}
		}
		if len(resolvable) > 0 {
			keep := resolvable[0]
			for hash := range slot.headers {
				if hash != keep {
					delete(slot.headers, hash)
					delete(q.bodies, hash)
				}
			}
			slot.candidates = mapset.NewSet(headerCandidate{hash: keep, peer: slot.headers[keep].PeerID})
			continue
		}
		if now.Sub(slot.firstSeen) > q.cfg.CompetingHeaderTTL {
			delete(q.headers, height)
		}
	}
}

func (q *SyncQueue) hasKnownParent(height uint64, parent common.Hash) bool {
	if height == q.chainHead.Number.Uint64()+1 {
		return parent == q.chainHead.Hash()
	}
	if prev, ok := q.headers[height-1]; ok {
		_, ok := prev.headers[parent]
		return ok
	}
	return false
}

// addBlocks attaches bodies to their headers and walks the chain forward
// from chainHead, returning the newly-ready prefix in ascending order
// (spec.md §4.1).
func (q *SyncQueue) addBlocks(blocks []*types.Block) []*types.Block {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, b := range blocks {
		hash := b.Hash()
		if _, ok := q.findHeaderSlot(b.NumberU64(), hash); !ok {
			// Body for a header no longer in `headers` (already assembled,
			// or never requested): discard per spec.md §4.1 edge cases.
			bodyDropMeter.Mark(1)
			continue
		}
		q.bodies[hash] = b
		bodyInMeter.Mark(1)
	}

	var ready []*types.Block
	cur := q.chainHead
	for {
		next := cur.Number.Uint64() + 1
		slot, ok := q.headers[next]
		if !ok || len(slot.headers) != 1 {
			break
		}
		var wrapper *HeaderWrapper
		var hash common.Hash
		for h, w := range slot.headers {
			hash, wrapper = h, w
		}
		if wrapper.Header.ParentHash != cur.Hash() {
			break
		}
		block, ok := q.bodies[hash]
		if !ok {
			break
		}
		ready = append(ready, block)
		delete(q.headers, next)
		delete(q.bodies, hash)
		cur = block.Header()
	}
	if len(ready) > 0 {
		q.chainHead = cur
	}
	headerBacklogGauge.Update(int64(q.headerCountLocked()))
	return ready
}

func (q *SyncQueue) findHeaderSlot(number uint64, hash common.Hash) (*HeaderWrapper, bool) {
	slot, ok := q.headers[number]
	if !ok {
		return nil, false
	}
	w, ok := slot.headers[hash]
	return w, ok
}

// requestHeaders computes the next header range to fetch: the lowest gap
// above chainHead not yet covered by a header already known or by an
// outstanding, still-live request, bounded by HeaderRequestWindow (spec.md
// §4.1). A dispatched range whose response never arrives is not tracked by
// the caller's send error (the peer may have accepted the request then
// dropped it), so this is the self-healing half of the contract: once a
// range's deadline passes it is dropped from the pending set (and counted by
// headerRequestLostMeter, whether or not its headers arrived), and any height
// of its span that is still unknown becomes requestable again, matching
// spec.md §4.1's "never skip" edge case and the §8 liveness property.
func (q *SyncQueue) requestHeaders() HeadersRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	live := q.pendingHeaderRanges[:0]
	for _, r := range q.pendingHeaderRanges {
		if now.Before(r.deadline) {
			live = append(live, r)
		} else {
			headerRequestLostMeter.Mark(1)
		}
	}
	q.pendingHeaderRanges = live

	window := q.cfg.HeaderRequestWindow
	if window == 0 {
		window = 192
	}

	start := q.chainHead.Number.Uint64() + 1
	for {
		if _, ok := q.headers[start]; ok {
			start++
			continue
		}
		if end, covered := q.coveredByPendingLocked(start); covered {
			start = end
			continue
		}
		break
	}

	timeout := q.cfg.HeaderRequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	q.pendingHeaderRanges = append(q.pendingHeaderRanges, headerRange{start: start, count: window, deadline: now.Add(timeout)})

	return HeadersRequest{Start: start, Count: int(window), Reverse: false}
}

// coveredByPendingLocked reports whether height falls inside a still-live
// pending range, returning the height just past that range so the caller
// can skip over it in one step. Must be called with q.mu held.
func (q *SyncQueue) coveredByPendingLocked(height uint64) (uint64, bool) {
	for _, r := range q.pendingHeaderRanges {
		if height >= r.start && height < r.start+r.count {
			return r.start + r.count, true
		}
	}
	return 0, false
}

// requestBlocks returns up to maxCount header references, ordered by
// ascending number, whose bodies are not yet present (spec.md §4.1).
func (q *SyncQueue) requestBlocks(maxCount int) *BlocksRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	heights := make([]uint64, 0, len(q.headers))
	for h := range q.headers {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	var headers []*types.Header
	for _, h := range heights {
		if len(headers) >= maxCount {
			break
		}
		slot := q.headers[h]
		for hash, w := range slot.headers {
			if _, ok := q.bodies[hash]; ok {
				continue
			}
			headers = append(headers, w.Header)
			if len(headers) >= maxCount {
				break
			}
		}
	}
	if len(headers) == 0 {
		return &BlocksRequest{}
	}
	return &BlocksRequest{Headers: headers}
}

// getHeadersCount returns the current header backlog: headers known but not
// yet assembled into a ready block.
func (q *SyncQueue) getHeadersCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.headerCountLocked()
}

func (q *SyncQueue) headerCountLocked() int {
	n := 0
	for _, slot := range q.headers {
		n += len(slot.headers)
	}
	return n
}

// ChainHead returns the queue's current notion of the local chain head.
func (q *SyncQueue) ChainHead() *types.Header {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.chainHead
}
