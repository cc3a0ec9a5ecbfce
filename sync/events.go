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

// SyncEvents is the explicit listener contract replacing the source's
// implicit composite event bus (spec.md §9 Design Notes). The engine holds
// exactly one implementation and decides, per method, whether to dispatch
// synchronously or on a separate goroutine.
type SyncEvents interface {
	// OnSyncDone fires exactly once per process lifetime, on its own
	// goroutine, the first time an announced ("new") block reports
	// IMPORTED_BEST.
	OnSyncDone()

	// OnHeadersReceived and OnBodiesReceived are optional diagnostics hooks
	// dispatched synchronously from Ingress; they must never block it.
	OnHeadersReceived(peerID string, count int)
	OnBodiesReceived(peerID string, count int)
}

// NopEvents is a SyncEvents that does nothing, useful when a caller only
// cares about a subset of the hooks.
type NopEvents struct{}

func (NopEvents) OnSyncDone()                               {}
func (NopEvents) OnHeadersReceived(peerID string, count int) {}
func (NopEvents) OnBodiesReceived(peerID string, count int)  {}

var _ SyncEvents = NopEvents{}
