// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package params selects and holds the consensus parameter preset a node
// runs under: difficulty-target conversion, the reward curve and the
// genesis hex each preset embeds (package genesis decodes it into the
// first milestone). The compact-target arithmetic is carried over from
// the teacher's proof-of-work difficulty package, stripped of the
// auto-adjust (Adjust/Backoff) machinery that belongs to a different
// consensus model.
package params

import (
	"math/big"
)

// TargetFromCompact expands a 32 bit compact ("bits") encoding into its
// full 256 bit big-endian value, following the same mantissa/exponent
// layout as Bitcoin-style difficulty bits:
//
//	value = mantissa << (8 * (exponent - 3))
func TargetFromCompact(compact uint32) *big.Int {
	exponent := uint(compact>>24) & 0xff
	mantissa := int64(compact & 0x007fffff)

	// the sign bit of the mantissa; consensus targets are never negative
	if compact&0x00800000 != 0 {
		mantissa = 0
	}

	target := big.NewInt(mantissa)
	if exponent <= 3 {
		target.Rsh(target, 8*(3-exponent))
	} else {
		target.Lsh(target, 8*(exponent-3))
	}
	return target
}

// CompactFromTarget packs a 256 bit target into the 32 bit compact form,
// the inverse of TargetFromCompact for every value TargetFromCompact can
// produce (R2: round-trip through both functions is identity).
func CompactFromTarget(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}

	buffer := target.Bytes()
	exponent := uint32(len(buffer))

	var mantissa uint32
	switch {
	case exponent <= 3:
		mantissa = uint32(new(big.Int).Lsh(target, 8*(3-uint(exponent))).Uint64())
	default:
		shifted := new(big.Int).Rsh(target, 8*(uint(exponent)-3))
		mantissa = uint32(shifted.Uint64())
	}

	// the mantissa's top bit is reserved as a sign flag; if it would be
	// set, shift the whole value down by a byte and bump the exponent.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return exponent<<24 | mantissa
}
