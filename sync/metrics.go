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

// Contains the metrics collected by the sync engine.

package sync

import "github.com/ethereum/go-ethereum/metrics"

var (
	headerInMeter          = metrics.NewRegisteredMeter("blocksync/headers/in", nil)
	headerDropMeter        = metrics.NewRegisteredMeter("blocksync/headers/drop", nil)
	headerTimeoutMeter     = metrics.NewRegisteredMeter("blocksync/headers/timeout", nil)
	headerBacklogGauge     = metrics.NewRegisteredGauge("blocksync/headers/backlog", nil)
	headerRequestLostMeter = metrics.NewRegisteredMeter("blocksync/headers/request_lost", nil)

	bodyInMeter      = metrics.NewRegisteredMeter("blocksync/bodies/in", nil)
	bodyDropMeter    = metrics.NewRegisteredMeter("blocksync/bodies/drop", nil)
	bodyTimeoutMeter = metrics.NewRegisteredMeter("blocksync/bodies/timeout", nil)

	importQueueGauge = metrics.NewRegisteredGauge("blocksync/import/queue", nil)
	importedMeter    = metrics.NewRegisteredMeter("blocksync/import/imported", nil)
	importErrorMeter = metrics.NewRegisteredMeter("blocksync/import/errors", nil)

	senderRecoverTimer = metrics.NewRegisteredTimer("blocksync/senders/recover", nil)
	senderDropMeter    = metrics.NewRegisteredMeter("blocksync/senders/drop", nil)

	syncDoneMeter = metrics.NewRegisteredMeter("blocksync/syncdone", nil)
)
