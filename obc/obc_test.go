// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package obc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/hash"
	"github.com/epi-one/epiond/obc"
)

func blockWithParents(seed string, milestone, tip, prev hash.ID) *block.Block {
	b := &block.Block{
		MilestoneHash: milestone,
		TipHash:       tip,
		PrevHash:      prev,
		MerkleRoot:    hash.Sum([]byte(seed)),
	}
	b.Finalize()
	return b
}

// scenario 1: three distinct missing parents, released only once the
// last one is submitted.
func TestThreeParentRelease(t *testing.T) {
	ma := hash.Sum([]byte("MA"))
	ta := hash.Sum([]byte("TA"))
	pa := hash.Sum([]byte("PA"))
	x := blockWithParents("X", ma, ta, pa)

	c := obc.New()
	require.NoError(t, c.AddBlock(x, obc.MissingMilestone|obc.MissingTip|obc.MissingPrev))

	assert.Equal(t, 1, c.Size())
	assert.Equal(t, 3, c.DependencySize())

	assert.Empty(t, c.SubmitHash(ma))
	assert.Empty(t, c.SubmitHash(ta))

	released := c.SubmitHash(pa)
	require.Len(t, released, 1)
	assert.Equal(t, x.Hash(), released[0].Hash())

	assert.Equal(t, 0, c.Size())
	assert.Equal(t, 0, c.DependencySize())
}

// scenario 2: a two-block chain hanging off a single missing parent,
// released together in dependency order when that parent arrives.
func TestSharedParentCascade(t *testing.T) {
	h1 := hash.Sum([]byte("H1"))
	y := blockWithParents("Y", hash.ID{}, hash.ID{}, h1)

	c := obc.New()
	require.NoError(t, c.AddBlock(y, obc.MissingPrev))

	z := blockWithParents("Z", hash.ID{}, hash.ID{}, y.Hash())
	require.NoError(t, c.AddBlock(z, obc.MissingPrev))

	released := c.SubmitHash(h1)
	require.Len(t, released, 2)
	assert.Equal(t, y.Hash(), released[0].Hash())
	assert.Equal(t, z.Hash(), released[1].Hash())
}

// scenario 3: a block whose three parent roles all name the same hash
// has a single logical dependency.
func TestDuplicateParentCollapse(t *testing.T) {
	h2 := hash.Sum([]byte("H2"))
	w := blockWithParents("W", h2, h2, h2)

	c := obc.New()
	require.NoError(t, c.AddBlock(w, obc.MissingMilestone|obc.MissingTip|obc.MissingPrev))
	assert.Equal(t, 1, c.DependencySize())

	released := c.SubmitHash(h2)
	require.Len(t, released, 1)
	assert.Equal(t, w.Hash(), released[0].Hash())
}

// P4: re-adding the same block hash does not grow the container's size.
func TestReAddSameHashIsIdempotentOnSize(t *testing.T) {
	h := hash.Sum([]byte("parent"))
	b := blockWithParents("B", hash.ID{}, hash.ID{}, h)

	c := obc.New()
	require.NoError(t, c.AddBlock(b, obc.MissingPrev))
	require.NoError(t, c.AddBlock(b, obc.MissingPrev))

	assert.Equal(t, 1, c.Size())
}

// P5: submitting a hash with no waiting bucket is a no-op.
func TestSubmitUnknownHashIsNoop(t *testing.T) {
	c := obc.New()
	released := c.SubmitHash(hash.Sum([]byte("nobody waits on this")))
	assert.Empty(t, released)
	assert.True(t, c.IsEmpty())
}

func TestZeroMissingMaskIsRejected(t *testing.T) {
	c := obc.New()
	b := blockWithParents("C", hash.ID{}, hash.ID{}, hash.ID{})
	err := c.AddBlock(b, 0)
	assert.Error(t, err)
	assert.True(t, c.IsEmpty())
}

func TestContains(t *testing.T) {
	h := hash.Sum([]byte("parent"))
	b := blockWithParents("D", hash.ID{}, hash.ID{}, h)

	c := obc.New()
	assert.False(t, c.Contains(b.Hash()))
	require.NoError(t, c.AddBlock(b, obc.MissingPrev))
	assert.True(t, c.Contains(b.Hash()))
}
