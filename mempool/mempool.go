// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool declares the Mempool external collaborator contract
// peermgr drives (spec.md §4.5): transaction admission ahead of
// confirmation.
package mempool

import (
	"sync"

	"github.com/epi-one/epiond/hash"
)

// Mempool accepts transactions relayed by peers.
type Mempool interface {
	// ReceiveTx admits a raw transaction, returning true iff it was both
	// valid and novel (not already held).
	ReceiveTx(raw []byte) bool
}

// Memory is a minimal, non-validating Mempool: it dedups incoming
// transactions by hash and nothing more. Script/signature verification
// and fee policy belong to the transaction-processing engine this core
// does not implement (spec.md §1's Non-goals); Memory exists only so
// peermgr has something concrete to hand TX messages to.
type Memory struct {
	mutex sync.Mutex
	seen  map[hash.ID]struct{}
}

// NewMemory returns an empty Memory mempool.
func NewMemory() *Memory {
	return &Memory{seen: make(map[hash.ID]struct{})}
}

func (m *Memory) ReceiveTx(raw []byte) bool {
	id := hash.Sum(raw)
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.seen[id]; ok {
		return false
	}
	m.seen[id] = struct{}{}
	return true
}
