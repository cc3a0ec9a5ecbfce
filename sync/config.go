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

import "time"

// Config bundles every tunable named in the spec. Zero-value Config is
// invalid; use DefaultConfig and override individual fields.
type Config struct {
	// SyncEnabled, when false, makes Engine.Start a no-op.
	SyncEnabled bool

	// HeaderBacklogCap bounds SyncQueue's count of known but not yet
	// assembled headers before HeaderFetcher stops requesting more.
	HeaderBacklogCap int

	// ImportQueueCap bounds the channel between SenderPrefetch and Importer.
	ImportQueueCap int

	// BodyRequestBatch is how many headers requestBlocks returns per call.
	BodyRequestBatch int
	// BodyRequestChunk is the fan-out chunk size passed to each idle peer.
	BodyRequestChunk int

	// PrefetchWorkers is the SenderPrefetch worker count.
	PrefetchWorkers int
	// PrefetchBuffer bounds the SenderPrefetch input channel.
	PrefetchBuffer int

	// FetchWaitTimeout bounds how long HeaderFetcher/BodyFetcher wait on
	// their arrival signal before re-probing.
	FetchWaitTimeout time.Duration
	// LogInterval is the periodic status-log cadence.
	LogInterval time.Duration

	// HeaderRequestWindow bounds a single requestHeaders() span.
	HeaderRequestWindow uint64

	// HeaderRequestTimeout bounds how long a dispatched requestHeaders()
	// span waits for its response before SyncQueue treats it as lost and
	// makes its span requestable again. Not named in spec.md §6's
	// enumerated keys; added so a send that the peer accepts and then
	// never answers (no transport error, just silence or disconnect)
	// cannot permanently hide a header gap.
	HeaderRequestTimeout time.Duration

	// CompetingHeaderTTL bounds how long unresolved same-height header
	// candidates are retained before being dropped as orphans.
	CompetingHeaderTTL time.Duration
}

// DefaultConfig mirrors the defaults spec.md §6 enumerates.
func DefaultConfig() Config {
	return Config{
		SyncEnabled:          true,
		HeaderBacklogCap:     20000,
		ImportQueueCap:       20000,
		BodyRequestBatch:     1000,
		BodyRequestChunk:     100,
		PrefetchWorkers:      4,
		PrefetchBuffer:       1000,
		FetchWaitTimeout:     2 * time.Second,
		LogInterval:          30 * time.Second,
		HeaderRequestWindow:  192,
		HeaderRequestTimeout: 10 * time.Second,
		CompetingHeaderTTL:   30 * time.Second,
	}
}
