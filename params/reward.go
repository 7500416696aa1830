// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

// Reward computes the block reward at height: 0 at the genesis height,
// otherwise round(BaseReward / (epoch+1)) where
// epoch = (height-1) / RewardAdjustInterval (P7). The rounding is done
// in integer arithmetic, (n + d/2) / d, so the result never drifts with
// floating point representation error.
func (p *Params) Reward(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	epoch := (height - 1) / p.RewardAdjustInterval
	divisor := epoch + 1
	return (p.BaseReward + divisor/2) / divisor
}
