// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peermgr_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-one/epiond/addrmgr"
	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/connmgr"
	"github.com/epi-one/epiond/dag"
	"github.com/epi-one/epiond/hash"
	"github.com/epi-one/epiond/peermgr"
	"github.com/epi-one/epiond/wire"
)

type fakeDAG struct {
	mutex  sync.Mutex
	blocks map[hash.ID]*block.Block
}

func newFakeDAG() *fakeDAG { return &fakeDAG{blocks: make(map[hash.ID]*block.Block)} }

func (d *fakeDAG) AddNewBlock(b *block.Block, p dag.Peer) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.blocks[b.Hash()] = b
	return nil
}
func (d *fakeDAG) GetBestMilestoneHeight() uint64    { return 0 }
func (d *fakeDAG) GetMilestoneHead() dag.Milestone    { return dag.Milestone{} }
func (d *fakeDAG) IsDownloadingEmpty() bool           { return true }
func (d *fakeDAG) Contains(h hash.ID) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	_, ok := d.blocks[h]
	return ok
}
func (d *fakeDAG) GetBlock(h hash.ID) (*block.Block, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	b, ok := d.blocks[h]
	return b, ok
}

type fakeMempool struct{}

func (fakeMempool) ReceiveTx(raw []byte) bool { return true }

func newHarness(t *testing.T) (*peermgr.PeerMgr, *connmgr.FakeManager, *addrmgr.Manager) {
	cm := connmgr.NewFakeManager()
	am, err := addrmgr.New(nil)
	require.NoError(t, err)
	m := peermgr.New(cm, am, newFakeDAG(), fakeMempool{}, nil, 8, 9443)
	m.Start()
	t.Cleanup(m.Stop)
	return m, cm, am
}

func TestOutboundPeerSendsVersionImmediately(t *testing.T) {
	_, cm, _ := newHarness(t)

	conn, err := cm.Connect("203.0.113.9", 9443)
	require.NoError(t, err)

	fc := conn.(*connmgr.FakeConnection)
	require.Eventually(t, func() bool { return len(fc.Sent) > 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, wire.VERSION, fc.Sent[0].Kind)
}

func TestHandshakeOverFakeConnection(t *testing.T) {
	m, cm, _ := newHarness(t)

	conn, err := cm.Connect("203.0.113.9", 9443)
	require.NoError(t, err)

	cm.Deliver(conn, wire.Message{Kind: wire.VERSION, Body: wire.VersionBody{ProtocolVersion: 1}})

	assert.Eventually(t, func() bool { return m.PeerCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestGetAddrAnsweredFromAddrMgr(t *testing.T) {
	_, cm, am := newHarness(t)

	am.AddNewAddress(wire.NetAddress{IP: []byte{203, 0, 113, 5}, Port: 9443})

	conn, err := cm.Connect("203.0.113.9", 9443)
	require.NoError(t, err)

	cm.Deliver(conn, wire.Message{Kind: wire.GETADDR})

	fc := conn.(*connmgr.FakeConnection)
	require.Eventually(t, func() bool { return len(fc.Sent) >= 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, wire.ADDR, fc.Sent[len(fc.Sent)-1].Kind)
}
