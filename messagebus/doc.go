// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus is a small typed pub/sub used to hand block,
// transaction and address messages between packages that would
// otherwise need to import each other directly.
package messagebus
