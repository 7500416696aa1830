// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block defines the three-parent block record used by the
// admission path: every block names a milestone, a tip and a prev parent
// (spec.md §3), packed the same way the teacher packs its single-parent
// header (blockrecord.Header) but with the previous-block slot widened
// into three fixed slots.
package block

import (
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/epi-one/epiond/blockdigest"
	"github.com/epi-one/epiond/fault"
	"github.com/epi-one/epiond/hash"
)

// Source records who handed the block to the admitter.
type Source int

// the possible block sources
const (
	SourceNetwork Source = iota
	SourceMiner
	SourceLocal
	SourceGenesis
)

func (s Source) String() string {
	switch s {
	case SourceNetwork:
		return "network"
	case SourceMiner:
		return "miner"
	case SourceLocal:
		return "local"
	case SourceGenesis:
		return "genesis"
	default:
		return "*unknown*"
	}
}

// byte sizes of the packed header fields
const (
	versionSize          = 2
	parentSize           = hash.Length
	merkleSize           = hash.Length
	timeSize             = 4
	difficultyTargetSize = 4
	nonceSize            = 4

	versionOffset    = 0
	milestoneOffset  = versionOffset + versionSize
	tipOffset        = milestoneOffset + parentSize
	prevOffset       = tipOffset + parentSize
	merkleOffset     = prevOffset + parentSize
	timeOffset       = merkleOffset + merkleSize
	difficultyOffset = timeOffset + timeSize
	nonceOffset      = difficultyOffset + difficultyTargetSize

	// HeaderSize is the total number of bytes in the fixed portion of a
	// packed block, excluding the variable-length transaction payload.
	HeaderSize = nonceOffset + nonceSize
)

// Block is an immutable admitted-or-orphaned block. Once Finalize has run,
// Hash never changes; it is a pure function of the packed header fields
// (Transactions and Source are not hashed).
type Block struct {
	once sync.Once
	hash hash.ID

	Version          uint16
	MilestoneHash    hash.ID
	TipHash          hash.ID
	PrevHash         hash.ID
	MerkleRoot       hash.ID
	Time             uint32
	DifficultyTarget uint32 // compact form
	Nonce            uint32
	Transactions     [][]byte

	Source Source
}

// Parents returns the three parent references in (milestone, tip, prev)
// order, without deduplication — callers that need the distinct set use
// DistinctParents.
func (b *Block) Parents() [3]hash.ID {
	return [3]hash.ID{b.MilestoneHash, b.TipHash, b.PrevHash}
}

// DistinctParents returns the set of distinct parent hashes, collapsing
// the case where two or three parent roles share the same hash (spec.md
// §4.2 edge case: "all three parents are the same hash counts as one
// missing dependency").
func (b *Block) DistinctParents() []hash.ID {
	parents := b.Parents()
	seen := make(map[hash.ID]bool, 3)
	result := make([]hash.ID, 0, 3)
	for _, p := range parents {
		if seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	return result
}

// pack writes the fixed header into a caller-provided buffer of at least
// HeaderSize bytes.
func (b *Block) pack(buffer []byte) {
	binary.LittleEndian.PutUint16(buffer[versionOffset:], b.Version)
	copy(buffer[milestoneOffset:], b.MilestoneHash[:])
	copy(buffer[tipOffset:], b.TipHash[:])
	copy(buffer[prevOffset:], b.PrevHash[:])
	copy(buffer[merkleOffset:], b.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buffer[timeOffset:], b.Time)
	binary.LittleEndian.PutUint32(buffer[difficultyOffset:], b.DifficultyTarget)
	binary.LittleEndian.PutUint32(buffer[nonceOffset:], b.Nonce)
}

// Pack serializes the block (fixed header followed by the length-prefixed
// transaction payload) for wire transmission or storage.
func (b *Block) Pack() []byte {
	size := HeaderSize + 4
	for _, tx := range b.Transactions {
		size += 4 + len(tx)
	}
	buffer := make([]byte, size)
	b.pack(buffer[:HeaderSize])

	offset := HeaderSize
	binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(b.Transactions)))
	offset += 4
	for _, tx := range b.Transactions {
		binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(tx)))
		offset += 4
		copy(buffer[offset:], tx)
		offset += len(tx)
	}
	return buffer
}

// Unpack parses a packed block produced by Pack.
func Unpack(buffer []byte) (*Block, error) {
	if len(buffer) < HeaderSize+4 {
		return nil, fault.ErrFrameTooShort
	}

	b := &Block{}
	b.Version = binary.LittleEndian.Uint16(buffer[versionOffset:])
	copy(b.MilestoneHash[:], buffer[milestoneOffset:tipOffset])
	copy(b.TipHash[:], buffer[tipOffset:prevOffset])
	copy(b.PrevHash[:], buffer[prevOffset:merkleOffset])
	copy(b.MerkleRoot[:], buffer[merkleOffset:timeOffset])
	b.Time = binary.LittleEndian.Uint32(buffer[timeOffset:])
	b.DifficultyTarget = binary.LittleEndian.Uint32(buffer[difficultyOffset:])
	b.Nonce = binary.LittleEndian.Uint32(buffer[nonceOffset:])

	offset := HeaderSize
	count := binary.LittleEndian.Uint32(buffer[offset:])
	offset += 4
	txs := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(buffer) {
			return nil, fault.ErrFrameTooShort
		}
		txLen := int(binary.LittleEndian.Uint32(buffer[offset:]))
		offset += 4
		if offset+txLen > len(buffer) {
			return nil, fault.ErrFrameTooShort
		}
		tx := make([]byte, txLen)
		copy(tx, buffer[offset:offset+txLen])
		offset += txLen
		txs = append(txs, tx)
	}
	b.Transactions = txs
	return b, nil
}

// Finalize computes and caches the block's hash. It is idempotent and
// safe for concurrent callers; the digest is computed exactly once
// (spec.md §3 invariant).
func (b *Block) Finalize() hash.ID {
	b.once.Do(func() {
		buffer := make([]byte, HeaderSize)
		b.pack(buffer)
		b.hash = hash.Sum(buffer)
	})
	return b.hash
}

// ProofOfWork computes the heavier Argon2d digest of the fixed header,
// recomputed on every call since unlike Hash it is not needed on the
// Finalize hot path — only on admission.
func (b *Block) ProofOfWork() blockdigest.Digest {
	buffer := make([]byte, HeaderSize)
	b.pack(buffer)
	return blockdigest.NewDigest(buffer)
}

// MeetsDifficulty reports whether this block's proof-of-work digest
// satisfies target. Genesis blocks are exempt: their self-referential
// parent hashes (SHA-256 of the empty string) never underwent real
// mining.
func (b *Block) MeetsDifficulty(target *big.Int) bool {
	if b.Source == SourceGenesis {
		return true
	}
	return b.ProofOfWork().MeetsTarget(target)
}

// Hash returns the cached hash, which is the zero ID until Finalize has
// run at least once.
func (b *Block) Hash() hash.ID {
	return b.hash
}

// Timestamp returns Time as a time.Time for convenience in sync-progress
// comparisons (spec.md §4.4 InitialSync).
func (b *Block) Timestamp() time.Time {
	return time.Unix(int64(b.Time), 0).UTC()
}
