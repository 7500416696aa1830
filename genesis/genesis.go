// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package genesis builds the first milestone block for a consensus
// parameter preset, following the same decode-and-finalize idiom the
// teacher uses for its embedded live/test genesis blocks, generalized to
// run over any preset rather than two hardcoded chains.
package genesis

import (
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/fault"
	"github.com/epi-one/epiond/hash"
	"github.com/epi-one/epiond/params"
)

// Milestone is the first confirmed milestone of a chain: the genesis
// block plus the chainwork/hash-rate figures derived from it.
type Milestone struct {
	Block     *block.Block
	Hash      hash.ID
	Chainwork *big.Int
	HashRate  float64
}

var (
	cacheLock sync.Mutex
	cache     = map[string]*Milestone{}
)

// Create decodes p.GenesisHex, finalizes its hash and derives the
// chainwork and hash-rate figures (spec.md §4.1). A second call for the
// same preset returns the identical *Milestone pointer (P8/R2: genesis
// construction is deterministic and idempotent).
func Create(p *params.Params) (*Milestone, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if m, ok := cache[p.Name]; ok {
		return m, nil
	}

	raw, err := hex.DecodeString(p.GenesisHex)
	if err != nil {
		return nil, fault.ErrInvalidGenesisHex
	}

	b, err := block.Unpack(raw)
	if err != nil {
		return nil, fault.ErrInvalidGenesisHex
	}
	b.Source = block.SourceGenesis
	genesisHash := b.Finalize()

	maxTarget := params.TargetFromCompact(p.MaxTarget)
	blockTarget := params.TargetFromCompact(b.DifficultyTarget)

	chainwork := new(big.Int)
	if blockTarget.Sign() > 0 {
		chainwork.Div(maxTarget, blockTarget)
	}

	hashRate := 0.0
	denominator := new(big.Int).Add(blockTarget, big.NewInt(1))
	if denominator.Sign() > 0 {
		ratio := new(big.Float).Quo(new(big.Float).SetInt(maxTarget), new(big.Float).SetInt(denominator))
		seconds := p.TimeInterval.Seconds()
		if seconds > 0 {
			perSecond := new(big.Float).Quo(ratio, big.NewFloat(seconds))
			hashRate, _ = perSecond.Float64()
		}
	}

	m := &Milestone{
		Block:     b,
		Hash:      genesisHash,
		Chainwork: chainwork,
		HashRate:  hashRate,
	}
	cache[p.Name] = m
	return m, nil
}
