// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-one/epiond/chain"
	"github.com/epi-one/epiond/mode"
)

func TestInitialiseRejectsUnknownChain(t *testing.T) {
	err := mode.Initialise("not-a-real-chain")
	assert.Error(t, err)
}

func TestInitialiseThenFinalise(t *testing.T) {
	require.NoError(t, mode.Initialise(chain.UnitTest))
	defer mode.Finalise()

	assert.Error(t, mode.Initialise(chain.UnitTest), "a second Initialise without Finalise must fail")

	require.NoError(t, mode.Finalise())
	assert.Error(t, mode.Finalise(), "Finalise after already finalised must fail")

	require.NoError(t, mode.Initialise(chain.UnitTest))
	require.NoError(t, mode.Finalise())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "Stopped", mode.Stopped.String())
	assert.Equal(t, "Resynchronise", mode.Resynchronise.String())
	assert.Equal(t, "Normal", mode.Normal.String())
}
