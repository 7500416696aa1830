// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package genesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-one/epiond/chain"
	"github.com/epi-one/epiond/genesis"
	"github.com/epi-one/epiond/params"
)

// P8/R2: two Create calls on the same preset return the identical
// *Milestone, and decode to the same bytes.
func TestCreateIsIdempotent(t *testing.T) {
	p, err := params.ByName(chain.UnitTest)
	require.NoError(t, err)

	first, err := genesis.Create(p)
	require.NoError(t, err)

	second, err := genesis.Create(p)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestCreateAcrossPresets(t *testing.T) {
	names := []string{chain.MainNet, chain.TestNetSpade, chain.TestNetDiamond, chain.UnitTest}

	hashes := make(map[string]bool)
	for _, name := range names {
		p, err := params.ByName(name)
		require.NoError(t, err)

		m, err := genesis.Create(p)
		require.NoError(t, err)

		assert.NotZero(t, m.Hash)
		assert.NotNil(t, m.Chainwork)
		assert.False(t, hashes[m.Hash.String()], "genesis hashes must be distinct across presets")
		hashes[m.Hash.String()] = true
	}
}

func TestCreateRejectsBadHex(t *testing.T) {
	bad := &params.Params{Name: "bad", GenesisHex: "not-hex"}
	_, err := genesis.Create(bad)
	assert.Error(t, err)
}
