// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2018 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdigest computes the proof-of-work digest of a packed block
// header. It is deliberately a separate, heavier Argon2d hash from the
// lightweight sha3 content identifier in package hash: the two digests
// serve different purposes — hash.ID names a block for dependency
// tracking, blockdigest.Digest is compared against a difficulty target.
package blockdigest

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/bitmark-inc/go-argon2"
	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/fault"
)

// Length is the number of bytes in a digest.
const Length = 32

// internal hashing parameters
const (
	digestMode        = argon2.ModeArgon2d
	digestMemory      = 1 << 17 // 128 MiB
	digestParallelism = 1
	digestIterations  = 4
	digestVersion     = argon2.Version13
)

// Digest is a proof-of-work digest.
//
// stored as little endian byte array
// represented as big endian hex value for print
// represented as little endian hex text for JSON encoding
type Digest [Length]byte

// NewDigest computes the Argon2d digest of a packed block header.
func NewDigest(record []byte) Digest {

	context := &argon2.Context{
		Iterations:  digestIterations,
		Memory:      digestMemory,
		Parallelism: digestParallelism,
		HashLen:     Length,
		Mode:        digestMode,
		Version:     digestVersion,
	}

	digestBytes, err := argon2.Hash(context, record, record)
	logger.PanicIfError("blockdigest.NewDigest", err)

	var digest Digest
	copy(digest[:], digestBytes)
	return digest
}

// Cmp compares the digest (as a big-endian integer) against a target.
func (digest Digest) Cmp(target *big.Int) int {
	bigEndian := reversed(digest)
	result := new(big.Int)
	return result.SetBytes(bigEndian).Cmp(target)
}

// MeetsTarget reports whether this digest satisfies proof-of-work against
// the given target: digest <= target.
func (digest Digest) MeetsTarget(target *big.Int) bool {
	return digest.Cmp(target) <= 0
}

// internal function to return a reversed byte order copy of a digest
func reversed(d Digest) []byte {
	result := make([]byte, Length)
	for i := 0; i < Length; i++ {
		result[i] = d[Length-1-i]
	}
	return result
}

// String renders the big-endian hex form (for %s).
func (digest Digest) String() string {
	return hex.EncodeToString(reversed(digest))
}

// GoString renders the %#v form.
func (digest Digest) GoString() string {
	return "<Argon2d:" + hex.EncodeToString(reversed(digest)) + ">"
}

// Scan parses a big-endian hex representation for the fmt scan routines.
func (digest *Digest) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		switch {
		case c >= '0' && c <= '9':
			return true
		case c >= 'A' && c <= 'F':
			return true
		case c >= 'a' && c <= 'f':
			return true
		default:
			return false
		}
	})
	if err != nil {
		return err
	}
	buffer := make([]byte, hex.DecodedLen(len(token)))
	byteCount, err := hex.Decode(buffer, token)
	if err != nil {
		return err
	}

	for i, v := range buffer[:byteCount] {
		digest[Length-1-i] = v
	}
	return nil
}

// MarshalText renders the little-endian hex text form.
func (digest Digest) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(digest))
	buffer := make([]byte, size)
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText parses the little-endian hex text form.
func (digest *Digest) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if err != nil {
		return err
	}
	for i, v := range buffer[:byteCount] {
		digest[i] = v
	}
	return nil
}

// DigestFromBytes validates and copies a little-endian byte slice into a
// Digest.
func DigestFromBytes(digest *Digest, buffer []byte) error {
	if Length != len(buffer) {
		return fault.ErrInvalidHashLength
	}
	for i := 0; i < Length; i++ {
		digest[i] = buffer[i]
	}
	return nil
}
