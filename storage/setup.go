// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/epi-one/epiond/fault"
)

// pool prefixes
const (
	prefixPeers      = 'P'
	prefixOBCJournal = 'J'
)

// Store owns the on-disk database and exposes the named pools this core
// reads and writes.
type Store struct {
	mutex sync.RWMutex
	db    *leveldb.DB

	Peers      *PoolHandle
	OBCJournal *PoolHandle
}

// Open creates or opens the LevelDB database at path. Following
// goleveldb's own semantics, the file is created automatically on first
// open; there is no separate create_if_missing flag to set.
func Open(path string, readOnly bool) (*Store, error) {
	opt := &ldb_opt.Options{
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(path, opt)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	s.Peers = newPool(db, prefixPeers)
	s.OBCJournal = newPool(db, prefixOBCJournal)
	return s, nil
}

func newPool(db *leveldb.DB, prefix byte) *PoolHandle {
	limit := []byte(nil)
	if prefix < 255 {
		limit = []byte{prefix + 1}
	}
	return &PoolHandle{prefix: prefix, limit: limit, database: db}
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.db == nil {
		return fault.ErrNotInitialised
	}
	err := s.db.Close()
	s.db = nil
	return err
}
