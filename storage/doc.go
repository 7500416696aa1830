// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage maintains the on-disk data store: a single LevelDB
// database split into pools of key/value records, each pool identified
// by a single-byte key prefix (to spread keys and allow prefix-bounded
// iteration).
//
// Notes:
// 1. each pool has a single byte prefix
// 2. ++  = concatenation of byte data
// 3. peer identity = base58 text of the peer's raw IP bytes
//
// Peers:
//
//   P ++ identity               - address book entry written by addrmgr
//                                  (never read back)
//                                  data: 2-byte port ++ 8-byte last-seen Unix time (big endian)
//
// Orphan journal:
//
//   J ++ key                    - pool reserved for orphan-block records;
//                                  nothing in this core writes or reads it,
//                                  so orphan state is not kept across restarts
package storage
