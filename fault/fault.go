// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault provides single-instance, classifiable error values for
// the admission path, following the taxonomy in spec.md §7: configuration
// errors are fatal at startup, transport errors are local to a connection,
// protocol errors drop the offending message, and invariant violations are
// programming errors that abort the process.
package fault

// GenericError is the base representation for all error classes here.
type GenericError string

// ConfigError - unknown preset, bad genesis hex, bind/listen failure.
// Fatal at startup.
type ConfigError GenericError

// TransportError - socket closed, frame parse failure. Local to a
// connection; triggers Disconnect and never propagates above the peer
// manager.
type TransportError GenericError

// ProtocolError - oversized ADDR, bad signature, malformed message. The
// offending message is dropped; the connection is not terminated unless
// noted otherwise.
type ProtocolError GenericError

// InvariantError - an OBC/peer-map invariant violation unreachable from
// well-formed input, i.e. a programming error. These values are returned
// as ordinary errors (obc.Container.AddBlock returns ErrZeroMissingMask);
// fault.Panic is the separate abort path.
type InvariantError GenericError

// common errors - keep in alphabetic order within each class
var (
	ErrAlreadyInitialised = ConfigError("already initialised")
	ErrInvalidGenesisHex  = ConfigError("genesis hex could not be decoded")
	ErrInvalidParams      = ConfigError("unknown consensus parameter preset")
	ErrNotInitialised     = ConfigError("not initialised")

	ErrConnectionClosed  = TransportError("connection closed")
	ErrFrameTooShort     = TransportError("frame too short")
	ErrInvalidMagic      = TransportError("invalid network magic")
	ErrQueueShutdown     = TransportError("receive queue shut down")

	ErrAddressNotRoutable  = ProtocolError("address not routable")
	ErrInvalidCharacter    = ProtocolError("invalid character")
	ErrInvalidHashLength   = ProtocolError("invalid hash length")
	ErrInvalidSignature    = ProtocolError("invalid signature")
	ErrMessageTooLarge     = ProtocolError("message too large")
	ErrOversizedAddressMsg = ProtocolError("address message exceeds maximum size")
	ErrUnknownMessageKind  = ProtocolError("unknown message kind")

	ErrDuplicateDepNode    = InvariantError("dependency node already present for hash")
	ErrOrphanAlreadyQueued = InvariantError("block already queued in orphan container")
	ErrZeroMissingMask     = InvariantError("add_block called with zero missing mask")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods for each class
func (e ConfigError) Error() string    { return string(e) }
func (e TransportError) Error() string { return string(e) }
func (e ProtocolError) Error() string  { return string(e) }
func (e InvariantError) Error() string { return string(e) }

// IsConfig classifies a startup configuration error.
func IsConfig(e error) bool { _, ok := e.(ConfigError); return ok }

// IsTransport classifies a connection-local transport error.
func IsTransport(e error) bool { _, ok := e.(TransportError); return ok }

// IsProtocol classifies a protocol error (drop message, maybe penalize).
func IsProtocol(e error) bool { _, ok := e.(ProtocolError); return ok }

// IsInvariant classifies a programming-error invariant violation.
func IsInvariant(e error) bool { _, ok := e.(InvariantError); return ok }
