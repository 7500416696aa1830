// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hash provides the 256-bit content identifier used throughout the
// admission path: block identity, OBC dependency keys and wire references
// all share this single type.
package hash

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/epi-one/epiond/fault"
)

// Length is the number of bytes in an ID.
const Length = 32

// ID is an opaque 256-bit identifier.
//
// Stored as little endian byte array, printed as big endian hex (matching
// the teacher's digest convention so log output reads the same way as the
// rest of the stack).
type ID [Length]byte

// Sum computes the ID of a byte slice.
func Sum(record []byte) ID {
	var id ID
	digest := sha3.Sum256(record)
	copy(id[:], digest[:])
	return id
}

// IsEmpty reports whether the ID is the all-zero value (peermgr treats an
// all-zero parent as already satisfied).
func (id ID) IsEmpty() bool {
	return id == ID{}
}

// Equal reports byte-for-byte equality.
func (id ID) Equal(other ID) bool {
	return id == other
}

func reversed(id ID) []byte {
	result := make([]byte, Length)
	for i := 0; i < Length; i++ {
		result[i] = id[Length-1-i]
	}
	return result
}

// String renders the big-endian hex form for display.
func (id ID) String() string {
	return hex.EncodeToString(reversed(id))
}

// GoString renders the %#v form.
func (id ID) GoString() string {
	return "<ID:" + hex.EncodeToString(reversed(id)) + ">"
}

// MarshalText renders the little-endian hex form (wire/JSON convention).
func (id ID) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(Length))
	hex.Encode(buffer, id[:])
	return buffer, nil
}

// UnmarshalText parses the little-endian hex form.
func (id *ID) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	n, err := hex.Decode(buffer, s)
	if err != nil {
		return err
	}
	if n != Length {
		return fault.ErrInvalidHashLength
	}
	copy(id[:], buffer[:n])
	return nil
}

// FromBytes validates and copies a little-endian byte slice into an ID.
func FromBytes(buffer []byte) (ID, error) {
	var id ID
	if len(buffer) != Length {
		return id, fault.ErrInvalidHashLength
	}
	copy(id[:], buffer)
	return id, nil
}

// FromHexString parses a big-endian hex string (the human-display form)
// into an ID.
func FromHexString(s string) (ID, error) {
	var id ID
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(decoded) != Length {
		return id, fault.ErrInvalidHashLength
	}
	for i, v := range decoded {
		id[Length-1-i] = v
	}
	return id, nil
}

// Scan supports fmt.Sscanf("%s", &id) style parsing from big-endian hex.
func (id *ID) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		switch {
		case c >= '0' && c <= '9':
			return true
		case c >= 'a' && c <= 'f':
			return true
		case c >= 'A' && c <= 'F':
			return true
		default:
			return false
		}
	})
	if err != nil {
		return err
	}
	parsed, err := FromHexString(string(token))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
