// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr is the transport boundary peermgr talks to: bind,
// listen, dial, and a single inbound message queue shared by every
// connection. The teacher's peer package reaches this same layer through
// a ZeroMQ-based bilateralrpc server (peer/initialisation.go); this core
// instead uses libp2p, following the direction the teacher's own later
// p2p package moved in.
package connmgr

import "github.com/epi-one/epiond/wire"

// Connection is one live peer-to-peer link.
type Connection interface {
	IsInbound() bool
	GetRemote() string
	SendMessage(msg wire.Message) error
	Close() error
}

// Envelope pairs a received message with the connection it arrived on.
type Envelope struct {
	Connection Connection
	Message    wire.Message
}

// NewConnectionFunc/DeleteConnectionFunc are the callbacks fired on
// connection lifecycle events.
type NewConnectionFunc func(Connection)
type DeleteConnectionFunc func(Connection)

// Manager is the external collaborator contract peermgr drives (spec.md
// §4.5). ReceiveMessage blocks until a message arrives or QuitQueue is
// called.
type Manager interface {
	Bind(ip string) error
	Listen(port int) error
	Connect(ip string, port int) (Connection, error)

	RegisterNewConnectionCallback(NewConnectionFunc)
	RegisterDeleteConnectionCallback(DeleteConnectionFunc)

	ReceiveMessage(out *Envelope) bool
	QuitQueue()

	GetOutboundNum() int
	Stop()
}
