// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/chain"
	"github.com/epi-one/epiond/fault"
)

// Params is one consensus parameter preset, selected once at startup and
// shared read-only for the lifetime of the process.
type Params struct {
	Name string

	Version uint16

	TargetTimespan       time.Duration
	TimeInterval         time.Duration // must be >= 3s
	Interval             int           // TargetTimespan / TimeInterval
	TargetTPS            float64
	PunctualityThreshold time.Duration

	MaxTarget uint32 // compact-encoded 256 bit ceiling

	MaxMoney             uint64
	BaseReward           uint64
	RewardAdjustInterval uint64
	MSRewardCoefficient  float64

	CycleLen             int
	SortitionCoefficient float64
	SortitionThreshold   float64
	DeleteForkThreshold  uint64
	BlockCapacity        int

	Magic       [4]byte
	KeyPrefixes [2]byte

	GenesisHex string
}

var globalData struct {
	sync.RWMutex
	log         *logger.L
	current     *Params
	initialised bool
}

// table of all presets, keyed by the chain name
var presets = map[string]*Params{
	chain.MainNet:        &mainNet,
	chain.TestNetSpade:   &testNetSpade,
	chain.TestNetDiamond: &testNetDiamond,
	chain.UnitTest:       &unitTest,
}

// Initialise selects the preset for chainName and makes it the process-
// wide current parameter set. Following the teacher's singleton idiom
// (mode.Initialise), a second call without Finalise fails.
func Initialise(chainName string) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("params")

	p, ok := presets[chainName]
	if !ok {
		globalData.log.Criticalf("unknown chain: '%s'", chainName)
		return fault.ErrInvalidParams
	}

	globalData.current = p
	globalData.initialised = true
	globalData.log.Infof("selected preset: %s", p.Name)
	return nil
}

// Finalise releases the selected preset, allowing a later Initialise call
// to run again (used between test cases).
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}
	globalData.current = nil
	globalData.initialised = false
	return nil
}

// Current returns the process-wide selected preset.
func Current() *Params {
	globalData.RLock()
	defer globalData.RUnlock()
	if !globalData.initialised {
		fault.Panic("params.Current: not initialised")
	}
	return globalData.current
}

// ByName returns a preset without making it the process-wide current
// selection; used by tooling that needs to inspect more than one preset
// at once (e.g. genesis construction tests).
func ByName(chainName string) (*Params, error) {
	p, ok := presets[chainName]
	if !ok {
		return nil, fault.ErrInvalidParams
	}
	return p, nil
}
