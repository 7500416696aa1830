// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/hash"
)

func sampleBlock() *block.Block {
	return &block.Block{
		Version:          1,
		MilestoneHash:    hash.Sum([]byte("milestone")),
		TipHash:          hash.Sum([]byte("tip")),
		PrevHash:         hash.Sum([]byte("prev")),
		MerkleRoot:       hash.Sum([]byte("merkle")),
		Time:             1700000000,
		DifficultyTarget: 0x1d00ffff,
		Nonce:            42,
		Transactions:     [][]byte{[]byte("coinbase")},
	}
}

// R1: serialize-then-deserialize equals the original.
func TestPackUnpackRoundTrip(t *testing.T) {
	b := sampleBlock()
	b.Finalize()

	packed := b.Pack()
	unpacked, err := block.Unpack(packed)
	require.NoError(t, err)

	assert.Equal(t, b.Version, unpacked.Version)
	assert.Equal(t, b.MilestoneHash, unpacked.MilestoneHash)
	assert.Equal(t, b.TipHash, unpacked.TipHash)
	assert.Equal(t, b.PrevHash, unpacked.PrevHash)
	assert.Equal(t, b.MerkleRoot, unpacked.MerkleRoot)
	assert.Equal(t, b.Time, unpacked.Time)
	assert.Equal(t, b.DifficultyTarget, unpacked.DifficultyTarget)
	assert.Equal(t, b.Nonce, unpacked.Nonce)
	assert.Equal(t, b.Transactions, unpacked.Transactions)

	unpacked.Finalize()
	assert.Equal(t, b.Hash(), unpacked.Hash())
}

func TestFinalizeIsComputedOnce(t *testing.T) {
	b := sampleBlock()
	first := b.Finalize()

	// mutate a field that would change the digest if recomputed
	b.Nonce = 9999

	second := b.Finalize()
	assert.Equal(t, first, second, "Finalize must not recompute the hash")
}

func TestDistinctParentsCollapsesDuplicates(t *testing.T) {
	shared := hash.Sum([]byte("shared"))
	b := &block.Block{
		MilestoneHash: shared,
		TipHash:       shared,
		PrevHash:      shared,
	}
	assert.Len(t, b.DistinctParents(), 1)

	b2 := sampleBlock()
	assert.Len(t, b2.DistinctParents(), 3)
}

func TestUnpackRejectsShortBuffer(t *testing.T) {
	_, err := block.Unpack([]byte{0x01, 0x02})
	assert.Error(t, err)
}
