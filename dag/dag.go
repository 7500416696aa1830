// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dag declares the DAG external collaborator contract peermgr
// drives (spec.md §1/§4.4). Block admission, milestone selection and
// chainwork comparison live outside this core's scope; this package
// exists so peermgr can depend on a narrow interface instead of a
// concrete implementation.
package dag

import (
	"sync"
	"time"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/hash"
)

// Milestone is the currently best confirmed milestone block.
type Milestone struct {
	Block *block.Block
	Time  time.Time
}

// Peer is the minimal view of a connected peer the DAG needs in order to
// report provenance or request retries; peermgr's concrete *peer.Peer
// satisfies this.
type Peer interface {
	Identity() string
}

// DAG is the contract peermgr drives for block admission and initial
// sync progress (spec.md §1).
type DAG interface {
	// AddNewBlock admits a block received from peer p. peermgr calls it
	// only once every parent is known; blocks with missing parents are
	// held in peermgr's OBC first.
	AddNewBlock(b *block.Block, p Peer) error

	// GetBestMilestoneHeight returns the height of the current best
	// confirmed milestone.
	GetBestMilestoneHeight() uint64

	// GetMilestoneHead returns the current best confirmed milestone.
	GetMilestoneHead() Milestone

	// IsDownloadingEmpty reports whether there is no outstanding block
	// download request (InitialSync uses this to decide when to ask the
	// sync peer for the next batch).
	IsDownloadingEmpty() bool

	// Contains reports whether hash has been admitted through AddNewBlock;
	// blocks still held in the OBC are not reported.
	Contains(h hash.ID) bool

	// GetBlock returns a previously admitted block by hash, answering a
	// peer's GETDATA request.
	GetBlock(h hash.ID) (*block.Block, bool)
}

// Memory is a minimal, non-validating DAG admitting every block it is
// handed and tracking nothing but the set of known hashes and the most
// recently admitted block. Milestone selection, chainwork comparison and
// ordering guarantees are the real DAG engine's job (spec.md §1's
// Non-goals) and are not attempted here; Memory exists only so peermgr
// has something concrete to drive while that engine is out of scope.
type Memory struct {
	mutex  sync.RWMutex
	blocks map[hash.ID]*block.Block
	head   *block.Block
}

// NewMemory returns an empty Memory DAG.
func NewMemory() *Memory {
	return &Memory{blocks: make(map[hash.ID]*block.Block)}
}

func (d *Memory) AddNewBlock(b *block.Block, _ Peer) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.blocks[b.Hash()] = b
	d.head = b
	return nil
}

func (d *Memory) GetBestMilestoneHeight() uint64 {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return uint64(len(d.blocks))
}

func (d *Memory) GetMilestoneHead() Milestone {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.head == nil {
		return Milestone{}
	}
	return Milestone{Block: d.head, Time: d.head.Timestamp()}
}

// IsDownloadingEmpty always reports true: Memory issues no downloads of
// its own, so InitialSync never finds one outstanding.
func (d *Memory) IsDownloadingEmpty() bool { return true }

func (d *Memory) Contains(h hash.ID) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	_, ok := d.blocks[h]
	return ok
}

func (d *Memory) GetBlock(h hash.ID) (*block.Block, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	b, ok := d.blocks[h]
	return b, ok
}
