// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/epi-one/epiond/connmgr"
	"github.com/epi-one/epiond/peer"
)

func newPending(inbound bool) *peer.Peer {
	conn := &connmgr.FakeConnection{Remote: "203.0.113.1:9443", Inbound: inbound}
	return peer.New(conn, false)
}

func TestHandshakeCompletesOnBothDirections(t *testing.T) {
	p := newPending(true)
	assert.Equal(t, peer.Pending, p.State())

	p.NoteVersionReceived()
	assert.Equal(t, peer.Pending, p.State(), "one direction is not enough")

	p.NoteVersionSent()
	assert.Equal(t, peer.FullyConnected, p.State())
}

func TestPendingTimeoutAt181Seconds(t *testing.T) {
	p := newPending(true)
	// evaluate the sweep 181 s after the peer connected
	checkAt := time.Now().Add(181 * time.Second)

	assert.True(t, p.CheckPendingTimeout(checkAt))
	assert.Equal(t, peer.Closing, p.State())
	assert.False(t, p.IsValid())
}

func TestPendingTimeoutNotYetDue(t *testing.T) {
	p := newPending(true)
	assert.False(t, p.CheckPendingTimeout(time.Now()))
	assert.Equal(t, peer.Pending, p.State())
}

func TestHealthTripsOnStalePing(t *testing.T) {
	p := newPending(true)
	p.NoteVersionSent()
	p.NoteVersionReceived()
	require := assert.New(t)
	require.Equal(peer.FullyConnected, p.State())

	past := time.Now().Add(-1 * time.Hour)
	p.NotePingSent(past)

	require.True(p.CheckHealth(time.Now(), false))
	require.Equal(peer.Closing, p.State())
}

func TestHealthTripsOnPingFailures(t *testing.T) {
	p := newPending(true)
	p.NoteVersionSent()
	p.NoteVersionReceived()

	for i := 0; i < peer.MaxPingFailures+1; i++ {
		p.NotePingFailed()
	}
	assert.True(t, p.CheckHealth(time.Now(), false))
	assert.Equal(t, peer.Closing, p.State())
}

func TestHealthTripsOnSyncTimeout(t *testing.T) {
	p := newPending(true)
	p.NoteVersionSent()
	p.NoteVersionReceived()

	assert.True(t, p.CheckHealth(time.Now(), true))
}

func TestHealthyPeerIsUntouched(t *testing.T) {
	p := newPending(true)
	p.NoteVersionSent()
	p.NoteVersionReceived()
	p.NotePingSent(time.Now())

	assert.False(t, p.CheckHealth(time.Now(), false))
	assert.Equal(t, peer.FullyConnected, p.State())
}

func TestPongResetsFailureCount(t *testing.T) {
	p := newPending(true)
	p.NoteVersionSent()
	p.NoteVersionReceived()

	p.NotePingFailed()
	p.NotePingFailed()
	p.NotePongReceived()

	assert.False(t, p.CheckHealth(time.Now(), false))
}

func TestDisconnectForcesClosing(t *testing.T) {
	p := newPending(true)
	p.Disconnect()
	assert.Equal(t, peer.Closing, p.State())
	assert.False(t, p.IsValid())
}

func TestKillMarksDead(t *testing.T) {
	conn := &connmgr.FakeConnection{Remote: "203.0.113.1:9443", Inbound: true}
	p := peer.New(conn, false)
	p.Kill()
	assert.Equal(t, peer.Dead, p.State())
}

func TestSyncAvailableRequiresFullyConnected(t *testing.T) {
	p := newPending(true)
	p.SetSyncAvailable(true)
	assert.False(t, p.SyncAvailable(), "still Pending")

	p.NoteVersionSent()
	p.NoteVersionReceived()
	assert.True(t, p.SyncAvailable())
}

func TestBundleProgressOnlyAdvances(t *testing.T) {
	p := newPending(true)
	later := time.Now()
	earlier := later.Add(-time.Minute)

	p.NoteBundleProgress(later)
	p.NoteBundleProgress(earlier)
	assert.WithinDuration(t, later, p.LastBundleMsTime(), time.Millisecond)
}
