// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import "time"

// genesis hex blobs: 2-byte little-endian version, three 32-byte parent
// hashes, a 32-byte merkle field, 4-byte time, 4-byte compact difficulty,
// 4-byte nonce, then a single coinbase transaction.
//
// All three parent slots carry SHA-256 of the empty string rather than
// an all-zero hash — the sentinel the original consensus parameters use
// for "no real parent" — and the coinbase transaction carries the same
// message text the original genesis blocks embed, reused verbatim across
// every network.
const (
	parentSentinelHex = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	merkleHex         = "ccbfe3726b481f36d4979b802d09e3babd01274500d9b7c5db79330a1824d1bc"
	coinbaseMessage   = "4974206973206e6f772074656e20706173742074656e20696e20746865206576656e696e6720616e6420776520617265207374696c6c20776f726b696e6721"

	mainNetGenesisHex = "0100" + parentSentinelHex + parentSentinelHex + parentSentinelHex + merkleHex +
		"00e10b5e" + "ffff001d" + "00000000" + "01000000" + "3f000000" + coinbaseMessage

	testNetSpadeGenesisHex = "0100" + parentSentinelHex + parentSentinelHex + parentSentinelHex + merkleHex +
		"00fb5a5e" + "ffff7f20" + "00000000" + "01000000" + "3f000000" + coinbaseMessage

	testNetDiamondGenesisHex = "0100" + parentSentinelHex + parentSentinelHex + parentSentinelHex + merkleHex +
		"80d9835e" + "ffff7f20" + "00000000" + "01000000" + "3f000000" + coinbaseMessage

	unitTestGenesisHex = "0100" + parentSentinelHex + parentSentinelHex + parentSentinelHex + merkleHex +
		"00000000" + "ffff7f20" + "00000000" + "01000000" + "3f000000" + coinbaseMessage
)

var mainNet = Params{
	Name: "mainnet",

	Version: 1,

	TargetTimespan:       14 * 24 * time.Hour,
	TimeInterval:         10 * time.Second,
	Interval:             int((14 * 24 * time.Hour) / (10 * time.Second)),
	TargetTPS:            50.0,
	PunctualityThreshold: 30 * time.Second,

	MaxTarget: 0x1d00ffff,

	MaxMoney:             21_000_000 * 100_000_000,
	BaseReward:           50 * 100_000_000,
	RewardAdjustInterval: 210_000,
	MSRewardCoefficient:  0.5,

	CycleLen:             12,
	SortitionCoefficient: 0.6,
	SortitionThreshold:   0.667,
	DeleteForkThreshold:  6,
	BlockCapacity:        8192,

	Magic:       [4]byte{0x44, 0x53, 0x5a, 0x5a},
	KeyPrefixes: [2]byte{0, 128},

	GenesisHex: mainNetGenesisHex,
}

var testNetSpade = Params{
	Name: "testnet-spade",

	Version: 1,

	TargetTimespan:       1 * time.Hour,
	TimeInterval:         5 * time.Second,
	Interval:             int((1 * time.Hour) / (5 * time.Second)),
	TargetTPS:            50.0,
	PunctualityThreshold: 30 * time.Second,

	MaxTarget: 0x207fffff,

	MaxMoney:             21_000_000 * 100_000_000,
	BaseReward:           50 * 100_000_000,
	RewardAdjustInterval: 2_000,
	MSRewardCoefficient:  0.5,

	CycleLen:             12,
	SortitionCoefficient: 0.6,
	SortitionThreshold:   0.667,
	DeleteForkThreshold:  3,
	BlockCapacity:        8192,

	Magic:       [4]byte{0x52, 0x4f, 0x43, 0x4b},
	KeyPrefixes: [2]byte{0, 128},

	GenesisHex: testNetSpadeGenesisHex,
}

var testNetDiamond = Params{
	Name: "testnet-diamond",

	Version: 1,

	TargetTimespan:       1 * time.Hour,
	TimeInterval:         3 * time.Second,
	Interval:             int((1 * time.Hour) / (3 * time.Second)),
	TargetTPS:            100.0,
	PunctualityThreshold: 15 * time.Second,

	MaxTarget: 0x207fffff,

	MaxMoney:             21_000_000 * 100_000_000,
	BaseReward:           50 * 100_000_000,
	RewardAdjustInterval: 2_000,
	MSRewardCoefficient:  0.5,

	CycleLen:             24,
	SortitionCoefficient: 0.6,
	SortitionThreshold:   0.667,
	DeleteForkThreshold:  3,
	BlockCapacity:        16384,

	Magic:       [4]byte{0x52, 0x4f, 0x4c, 0x4c},
	KeyPrefixes: [2]byte{0, 128},

	GenesisHex: testNetDiamondGenesisHex,
}

var unitTest = Params{
	Name: "unittest",

	Version: 1,

	TargetTimespan:       10 * time.Minute,
	TimeInterval:         3 * time.Second,
	Interval:             int((10 * time.Minute) / (3 * time.Second)),
	TargetTPS:            10.0,
	PunctualityThreshold: 5 * time.Second,

	MaxTarget: 0x207fffff,

	MaxMoney:             21_000_000 * 100_000_000,
	BaseReward:           50 * 100_000_000,
	RewardAdjustInterval: 10,
	MSRewardCoefficient:  0.5,

	CycleLen:             4,
	SortitionCoefficient: 0.6,
	SortitionThreshold:   0.667,
	DeleteForkThreshold:  2,
	BlockCapacity:        1024,

	Magic:       [4]byte{0x54, 0x45, 0x53, 0x54},
	KeyPrefixes: [2]byte{0, 128},

	GenesisHex: unitTestGenesisHex,
}
