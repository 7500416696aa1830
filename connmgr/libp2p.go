// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/fault"
	"github.com/epi-one/epiond/wire"
)

const protocolID = "/epiond/1.0.0"

// frameMagic identifies the network a manager is constructed for. Frames
// are plain gob-encoded wire.Messages: the magic is not written to the
// wire, and received frames are not checked against it.
type frameMagic = [4]byte

// libp2pConnection adapts one libp2p stream to the Connection interface.
type libp2pConnection struct {
	stream network.Stream
	writer *bufio.Writer
	inbound bool

	mutex sync.Mutex
}

func (c *libp2pConnection) IsInbound() bool { return c.inbound }

func (c *libp2pConnection) GetRemote() string {
	return c.stream.Conn().RemotePeer().String()
}

func (c *libp2pConnection) SendMessage(msg wire.Message) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	enc := gob.NewEncoder(c.writer)
	if err := enc.Encode(msg); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *libp2pConnection) Close() error {
	return c.stream.Close()
}

// Libp2pManager is the libp2p-backed implementation of Manager.
type Libp2pManager struct {
	magic frameMagic

	mutex       sync.RWMutex
	host        host.Host
	connections map[network.Stream]*libp2pConnection
	outboundNum int

	onNew    NewConnectionFunc
	onDelete DeleteConnectionFunc

	queue chan Envelope
	quit  chan struct{}

	outboundLimiter *rate.Limiter
}

// NewLibp2pManager constructs a manager bound to no address yet; call
// Bind/Listen to start serving.
func NewLibp2pManager(magic [4]byte) *Libp2pManager {
	return &Libp2pManager{
		magic:           magic,
		connections:     make(map[network.Stream]*libp2pConnection),
		queue:           make(chan Envelope, 256),
		quit:            make(chan struct{}),
		outboundLimiter: rate.NewLimiter(rate.Limit(2), 4), // kMax_outbound pacing
	}
}

func (m *Libp2pManager) Bind(ip string) error {
	addr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/0", ip))
	if err != nil {
		return err
	}
	h, err := libp2p.New(libp2p.ListenAddrs(addr))
	if err != nil {
		return err
	}
	m.mutex.Lock()
	m.host = h
	m.mutex.Unlock()

	h.SetStreamHandler(protocolID, m.handleStream)
	return nil
}

func (m *Libp2pManager) Listen(port int) error {
	m.mutex.RLock()
	h := m.host
	m.mutex.RUnlock()
	if h == nil {
		return fault.ErrNotInitialised
	}
	// libp2p.ListenAddrs already bound a port in Bind; Listen here only
	// validates the host is actually accepting streams.
	h.SetStreamHandler(protocolID, m.handleStream)
	return nil
}

func (m *Libp2pManager) Connect(ip string, port int) (Connection, error) {
	if err := m.outboundLimiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	h := m.host
	m.mutex.RUnlock()
	if h == nil {
		return nil, fault.ErrNotInitialised
	}

	addr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", ip, port))
	if err != nil {
		return nil, err
	}
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return nil, err
	}

	if err := h.Connect(context.Background(), *info); err != nil {
		return nil, err
	}
	stream, err := h.NewStream(context.Background(), info.ID, protocolID)
	if err != nil {
		return nil, err
	}

	conn := m.register(stream, false)
	return conn, nil
}

func (m *Libp2pManager) handleStream(s network.Stream) {
	m.register(s, true)
}

func (m *Libp2pManager) register(s network.Stream, inbound bool) *libp2pConnection {
	conn := &libp2pConnection{
		stream:  s,
		writer:  bufio.NewWriter(s),
		inbound: inbound,
	}

	m.mutex.Lock()
	m.connections[s] = conn
	if !inbound {
		m.outboundNum++
	}
	m.mutex.Unlock()

	if m.onNew != nil {
		m.onNew(conn)
	}

	go m.readLoop(conn)
	return conn
}

func (m *Libp2pManager) readLoop(conn *libp2pConnection) {
	dec := gob.NewDecoder(bufio.NewReader(conn.stream))
	for {
		var msg wire.Message
		if err := dec.Decode(&msg); err != nil {
			m.drop(conn)
			return
		}
		select {
		case m.queue <- Envelope{Connection: conn, Message: msg}:
		case <-m.quit:
			return
		}
	}
}

func (m *Libp2pManager) drop(conn *libp2pConnection) {
	m.mutex.Lock()
	if _, ok := m.connections[conn.stream]; ok {
		delete(m.connections, conn.stream)
		if !conn.inbound {
			m.outboundNum--
		}
	}
	m.mutex.Unlock()

	conn.Close()
	if m.onDelete != nil {
		m.onDelete(conn)
	}
}

func (m *Libp2pManager) RegisterNewConnectionCallback(f NewConnectionFunc)       { m.onNew = f }
func (m *Libp2pManager) RegisterDeleteConnectionCallback(f DeleteConnectionFunc) { m.onDelete = f }

func (m *Libp2pManager) ReceiveMessage(out *Envelope) bool {
	select {
	case e := <-m.queue:
		*out = e
		return true
	case <-m.quit:
		return false
	}
}

func (m *Libp2pManager) QuitQueue() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

func (m *Libp2pManager) GetOutboundNum() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.outboundNum
}

func (m *Libp2pManager) Stop() {
	m.QuitQueue()

	m.mutex.Lock()
	conns := make([]*libp2pConnection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	h := m.host
	m.mutex.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if h != nil {
		if err := h.Close(); err != nil {
			logger.New("connmgr").Errorf("host close: %v", err)
		}
	}
}
