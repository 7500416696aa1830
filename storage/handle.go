// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/logger"
)

// PoolHandle is a single key/value namespace within a Store's database,
// identified by a one-byte key prefix. Grounded on the teacher's
// storage.PoolHandle, trimmed of the dual-database transaction machinery
// this core does not need.
type PoolHandle struct {
	prefix   byte
	limit    []byte
	database *leveldb.DB
}

// Element is a single key/value pair, with the pool prefix already
// stripped from the key.
type Element struct {
	Key   []byte
	Value []byte
}

func (p *PoolHandle) prefixKey(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = p.prefix
	return append(prefixedKey, key...)
}

// Put stores a key/value pair.
func (p *PoolHandle) Put(key []byte, value []byte) error {
	return p.database.Put(p.prefixKey(key), value, nil)
}

// Delete removes a key.
func (p *PoolHandle) Delete(key []byte) error {
	return p.database.Delete(p.prefixKey(key), nil)
}

// Get reads a value for a key; returns nil if absent. The returned slice
// must be copied by the caller before it is retained.
func (p *PoolHandle) Get(key []byte) []byte {
	value, err := p.database.Get(p.prefixKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil
	}
	logger.PanicIfError("storage.PoolHandle.Get", err)
	return value
}

// Has reports whether a key exists.
func (p *PoolHandle) Has(key []byte) bool {
	value, err := p.database.Has(p.prefixKey(key), nil)
	logger.PanicIfError("storage.PoolHandle.Has", err)
	return value
}

// Iterate walks every element of the pool in key order, stopping early if
// fn returns false.
func (p *PoolHandle) Iterate(fn func(Element) bool) error {
	r := ldb_util.Range{
		Start: []byte{p.prefix},
		Limit: p.limit,
	}
	iter := p.database.NewIterator(&r, nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		value := iter.Value()

		dataKey := make([]byte, len(key)-1)
		copy(dataKey, key[1:])
		dataValue := make([]byte, len(value))
		copy(dataValue, value)

		if !fn(Element{Key: dataKey, Value: dataValue}) {
			break
		}
	}
	return iter.Error()
}
