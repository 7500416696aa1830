// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire defines the message kinds exchanged between peers, kept
// as a separate package so connmgr, peer and peermgr can all depend on
// the wire format without depending on each other.
package wire

import (
	"net"
	"time"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/hash"
)

// Kind tags the body of a Message.
type Kind uint8

// the wire message kinds (spec.md §6)
const (
	VERSION Kind = iota
	VERACK
	PING
	PONG
	ADDR
	GETADDR
	BLOCK
	TX
	GETDATA
	INV
	NOTFOUND
	BUNDLE
)

func (k Kind) String() string {
	switch k {
	case VERSION:
		return "VERSION"
	case VERACK:
		return "VERACK"
	case PING:
		return "PING"
	case PONG:
		return "PONG"
	case ADDR:
		return "ADDR"
	case GETADDR:
		return "GETADDR"
	case BLOCK:
		return "BLOCK"
	case TX:
		return "TX"
	case GETDATA:
		return "GETDATA"
	case INV:
		return "INV"
	case NOTFOUND:
		return "NOTFOUND"
	case BUNDLE:
		return "BUNDLE"
	default:
		return "*unknown*"
	}
}

// MaxAddressSize is the largest number of entries a single ADDR message
// may carry; an overflowing message is dropped whole (spec.md §4.4).
const MaxAddressSize = 1000

// NetAddress is one address-book entry as carried on an ADDR message.
type NetAddress struct {
	IP       net.IP
	Port     uint16
	LastSeen time.Time
}

// Message is one parsed frame. The connection layer carries no
// network-magic prefix, so a Message is not checked against the
// network it arrived on.
type Message struct {
	Kind Kind
	Body interface{}
}

// VersionBody is the VERSION payload.
type VersionBody struct {
	ProtocolVersion uint16
	BestHeight      uint64
	UserAgent       string
}

// AddrBody is the ADDR payload.
type AddrBody struct {
	Addresses []NetAddress
}

// BlockBody wraps a single block.
type BlockBody struct {
	Block *block.Block
}

// TxBody wraps a single transaction record.
type TxBody struct {
	Raw []byte
}

// GetDataBody/InvBody/NotFoundBody request or advertise a set of hashes.
type GetDataBody struct{ Hashes []hash.ID }
type InvBody struct{ Hashes []hash.ID }
type NotFoundBody struct{ Hashes []hash.ID }

// BundleBody is an initial-sync batch of blocks.
type BundleBody struct {
	Blocks []*block.Block
}
