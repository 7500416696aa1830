// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package obc holds blocks whose parents have not all arrived yet. A
// block is admitted with the set of its still-missing parent hashes; once
// every missing hash has been submitted, the block (and, transitively,
// anything waiting on it) is released to the caller in dependency order.
//
// The container has no I/O and no failure modes beyond out-of-memory; it
// does not retry or log, following the teacher's preference for small,
// side-effect-free data structures (e.g. the merkle tree builder) that
// leave error handling to their caller.
package obc

import (
	"sync"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/fault"
	"github.com/epi-one/epiond/hash"
)

// bit positions within a missing mask
const (
	MissingMilestone = 1 << 0
	MissingTip       = 1 << 1
	MissingPrev      = 1 << 2
)

// depNode is one orphaned block and the dependency bookkeeping around it.
type depNode struct {
	block      *block.Block
	ndeps      int
	dependents []*depNode
}

// Container is the orphan-block dependency DAG. The zero value is not
// usable; construct with New.
type Container struct {
	lock sync.RWMutex

	blockDepMap map[hash.ID]*depNode
	loseEnds    map[hash.ID][]*depNode
}

// New creates an empty container.
func New() *Container {
	return &Container{
		blockDepMap: make(map[hash.ID]*depNode),
		loseEnds:    make(map[hash.ID][]*depNode),
	}
}

// distinctMissing expands a missing mask into the set of distinct parent
// hashes it names, collapsing the case where two or three roles share a
// hash (spec edge case: this counts as one missing dependency).
func distinctMissing(b *block.Block, missingMask uint8) []hash.ID {
	parents := b.Parents()
	roles := [3]struct {
		bit uint8
		idx int
	}{
		{MissingMilestone, 0},
		{MissingTip, 1},
		{MissingPrev, 2},
	}

	seen := make(map[hash.ID]bool, 3)
	result := make([]hash.ID, 0, 3)
	for _, r := range roles {
		if missingMask&r.bit == 0 {
			continue
		}
		h := parents[r.idx]
		if seen[h] {
			continue
		}
		seen[h] = true
		result = append(result, h)
	}
	return result
}

// AddBlock admits a block whose parent set is not yet fully satisfied.
// missingMask must be nonzero — a block with every parent already present
// should never have been handed to the container. Ownership of the block
// transfers to the container.
func (c *Container) AddBlock(b *block.Block, missingMask uint8) error {
	if missingMask == 0 {
		return fault.ErrZeroMissingMask
	}

	missing := distinctMissing(b, missingMask)

	node := &depNode{
		block: b,
		ndeps: len(missing),
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.blockDepMap[b.Hash()] = node

	for _, h := range missing {
		if parent, ok := c.blockDepMap[h]; ok {
			parent.dependents = append(parent.dependents, node)
		} else {
			c.loseEnds[h] = append(c.loseEnds[h], node)
		}
	}

	return nil
}

// SubmitHash signals that hash h is now available, releasing every block
// whose dependencies are thereby fully satisfied, in dependency order: a
// block is never emitted before any of its three parents.
//
// The write lock is held for the initial lose-ends removal and briefly
// re-acquired for each block_dep_map erase, rather than held for the
// entire walk, so a long release chain does not starve other submitters.
func (c *Container) SubmitHash(h hash.ID) []*block.Block {
	c.lock.Lock()
	bucket, ok := c.loseEnds[h]
	if !ok {
		c.lock.Unlock()
		return nil
	}
	delete(c.loseEnds, h)
	c.lock.Unlock()

	stack := make([]*depNode, len(bucket))
	copy(stack, bucket)

	var released []*block.Block
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c.lock.Lock()
		d.ndeps--
		ready := d.ndeps <= 0
		if ready {
			delete(c.blockDepMap, d.block.Hash())
		}
		c.lock.Unlock()

		if !ready {
			continue
		}
		released = append(released, d.block)
		stack = append(stack, d.dependents...)
	}

	return released
}

// Contains reports whether hash is tracked as an orphan awaiting release.
func (c *Container) Contains(h hash.ID) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.blockDepMap[h]
	return ok
}

// Size returns the number of orphaned blocks currently held.
func (c *Container) Size() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.blockDepMap)
}

// DependencySize returns the number of distinct missing-parent hashes
// being waited on.
func (c *Container) DependencySize() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.loseEnds)
}

// IsEmpty reports whether the container holds no orphans.
func (c *Container) IsEmpty() bool {
	return c.Size() == 0
}
