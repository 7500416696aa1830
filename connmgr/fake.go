// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"sync"

	"github.com/epi-one/epiond/wire"
)

// FakeConnection is an in-memory Connection used by tests that drive
// peermgr without a real transport.
type FakeConnection struct {
	Remote  string
	Inbound bool
	Sent    []wire.Message

	mutex  sync.Mutex
	closed bool
}

func (c *FakeConnection) IsInbound() bool  { return c.Inbound }
func (c *FakeConnection) GetRemote() string { return c.Remote }

func (c *FakeConnection) SendMessage(msg wire.Message) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.Sent = append(c.Sent, msg)
	return nil
}

func (c *FakeConnection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
	return nil
}

// FakeManager is a channel-based Manager for unit tests, following the
// teacher's preference for small hand-written test doubles over a
// generated-mock library (see DESIGN.md).
type FakeManager struct {
	mutex    sync.Mutex
	onNew    NewConnectionFunc
	onDelete DeleteConnectionFunc
	outbound int

	queue chan Envelope
	quit  chan struct{}
}

// NewFakeManager constructs an idle fake manager.
func NewFakeManager() *FakeManager {
	return &FakeManager{
		queue: make(chan Envelope, 64),
		quit:  make(chan struct{}),
	}
}

func (m *FakeManager) Bind(ip string) error     { return nil }
func (m *FakeManager) Listen(port int) error    { return nil }

// Connect simulates dialing out: it creates a FakeConnection and fires
// the new-connection callback, as a real Manager would after a
// successful handshake.
func (m *FakeManager) Connect(ip string, port int) (Connection, error) {
	conn := &FakeConnection{Remote: ip, Inbound: false}
	m.mutex.Lock()
	m.outbound++
	cb := m.onNew
	m.mutex.Unlock()
	if cb != nil {
		cb(conn)
	}
	return conn, nil
}

func (m *FakeManager) RegisterNewConnectionCallback(f NewConnectionFunc) { m.onNew = f }
func (m *FakeManager) RegisterDeleteConnectionCallback(f DeleteConnectionFunc) { m.onDelete = f }

// Deliver injects a message as though it had arrived from conn, for
// tests exercising HandleMessage.
func (m *FakeManager) Deliver(conn Connection, msg wire.Message) {
	select {
	case m.queue <- Envelope{Connection: conn, Message: msg}:
	case <-m.quit:
	}
}

func (m *FakeManager) ReceiveMessage(out *Envelope) bool {
	select {
	case e := <-m.queue:
		*out = e
		return true
	case <-m.quit:
		return false
	}
}

func (m *FakeManager) QuitQueue() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

func (m *FakeManager) GetOutboundNum() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.outbound
}

func (m *FakeManager) Stop() {
	m.QuitQueue()
}
