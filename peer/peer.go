// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer holds the per-connection state machine peermgr drives:
// handshake progress, ping health, and sync-progress tracking. Grounded
// on the teacher's peer.Peer fields (peer/peers.go) — connection handle,
// validity flag, timestamps — generalized from the teacher's RPC-call
// bookkeeping to the version/ping/sync bookkeeping this core's protocol
// needs.
package peer

import (
	"sync"
	"time"

	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/connmgr"
	"github.com/epi-one/epiond/hash"
	"github.com/epi-one/epiond/wire"
)

// State is a position in the peer lifecycle (spec.md §4.3).
type State int

const (
	Pending State = iota
	FullyConnected
	Closing
	Dead
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case FullyConnected:
		return "FullyConnected"
	case Closing:
		return "Closing"
	case Dead:
		return "Dead"
	default:
		return "*unknown*"
	}
}

// timing constants (spec.md §6)
const (
	ConnectionSetupTimeout = 180 * time.Second
	PingWaitTimeout        = 180 * time.Second
	MaxPingFailures        = 3
)

// Peer is one connection's lifecycle state. All timestamp/counter access
// goes through the mutex since HandleMessage, ScheduleTask and
// InitialSync all touch the same peer concurrently.
type Peer struct {
	mutex sync.Mutex

	connection connmgr.Connection
	identity   string

	state       State
	inbound     bool
	isValid     bool
	isSeed      bool
	connectedAt time.Time

	versionSent     bool
	versionReceived bool

	lastPingSent     time.Time
	nPingFailed      int
	syncAvailable    bool
	lastBundleMsTime time.Time
}

// New wraps a freshly accepted or dialed connection in Pending state. If
// the connection is outbound, the caller is expected to send its own
// version message immediately (spec.md §4.3 outbound-only invariant);
// New itself has no transport side effects.
func New(conn connmgr.Connection, isSeed bool) *Peer {
	return &Peer{
		connection:  conn,
		identity:    conn.GetRemote(),
		state:       Pending,
		inbound:     conn.IsInbound(),
		isValid:     true,
		isSeed:      isSeed,
		connectedAt: time.Now(),
	}
}

// Identity is a stable string naming this peer (satisfies dag.Peer).
func (p *Peer) Identity() string { return p.identity }

func (p *Peer) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

func (p *Peer) IsValid() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.isValid
}

func (p *Peer) IsInbound() bool { return p.inbound }
func (p *Peer) IsSeed() bool    { return p.isSeed }

func (p *Peer) Connection() connmgr.Connection { return p.connection }

// NoteVersionSent/NoteVersionReceived record one direction of the
// handshake; once both have happened the peer transitions to
// FullyConnected.
func (p *Peer) NoteVersionSent() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.versionSent = true
	p.tryCompleteHandshakeLocked()
}

func (p *Peer) NoteVersionReceived() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.versionReceived = true
	p.tryCompleteHandshakeLocked()
}

func (p *Peer) tryCompleteHandshakeLocked() {
	if p.state == Pending && p.versionSent && p.versionReceived {
		p.state = FullyConnected
	}
}

// CheckPendingTimeout transitions Pending -> Closing once the connection
// setup timeout has elapsed, returning true if a transition happened.
func (p *Peer) CheckPendingTimeout(now time.Time) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.state == Pending && now.Sub(p.connectedAt) > ConnectionSetupTimeout {
		p.state = Closing
		p.isValid = false
		return true
	}
	return false
}

// CheckHealth transitions FullyConnected -> Closing if the ping watchdog
// has tripped or a sync stall was detected, returning true if a
// transition happened.
func (p *Peer) CheckHealth(now time.Time, syncTimedOut bool) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.state != FullyConnected {
		return false
	}

	pingStale := !p.lastPingSent.IsZero() && p.lastPingSent.Add(PingWaitTimeout).Before(now)
	if pingStale || p.nPingFailed > MaxPingFailures || syncTimedOut {
		p.state = Closing
		p.isValid = false
		return true
	}
	return false
}

// Disconnect forces a transition to Closing regardless of timers.
func (p *Peer) Disconnect() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.state = Closing
	p.isValid = false
}

// Kill marks the peer Dead once its entry has been erased from the
// peer map; after this call the Peer must not be touched again.
func (p *Peer) Kill() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.state = Dead
	p.connection.Close()
}

// NotePingSent/NotePongReceived/NotePingFailed track ping health.
func (p *Peer) NotePingSent(now time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.lastPingSent = now
}

func (p *Peer) NotePongReceived() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.nPingFailed = 0
}

func (p *Peer) NotePingFailed() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.nPingFailed++
}

// SyncAvailable reports whether this peer may be selected as the
// initial-sync source.
func (p *Peer) SyncAvailable() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state == FullyConnected && p.syncAvailable
}

func (p *Peer) SetSyncAvailable(v bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.syncAvailable = v
}

// HandleGetData answers a GETDATA request with one BLOCK message per hash
// lookup finds, and a single NOTFOUND listing whatever it didn't.
func (p *Peer) HandleGetData(hashes []hash.ID, lookup func(hash.ID) (*block.Block, bool)) error {
	var missing []hash.ID
	for _, h := range hashes {
		b, ok := lookup(h)
		if !ok {
			missing = append(missing, h)
			continue
		}
		if err := p.connection.SendMessage(wire.Message{Kind: wire.BLOCK, Body: wire.BlockBody{Block: b}}); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return p.connection.SendMessage(wire.Message{Kind: wire.NOTFOUND, Body: wire.NotFoundBody{Hashes: missing}})
	}
	return nil
}

// HandleInv returns the subset of an advertised hash list this side does
// not already hold, for the caller to follow up with a GETDATA.
func (p *Peer) HandleInv(hashes []hash.ID, contains func(hash.ID) bool) []hash.ID {
	var want []hash.ID
	for _, h := range hashes {
		if !contains(h) {
			want = append(want, h)
		}
	}
	return want
}

// HandleNotFound records that the peer could not satisfy a prior GETDATA.
// There is no retry policy here — a sync stall is caught by the ping/sync
// health watchdog instead (CheckHealth).
func (p *Peer) HandleNotFound(hashes []hash.ID) {}

// LastBundleMsTime/NoteBundleProgress track the initial-sync progress
// watchdog: a sync peer that stops advancing its milestone time across a
// check interval is considered stalled.
func (p *Peer) LastBundleMsTime() time.Time {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastBundleMsTime
}

func (p *Peer) NoteBundleProgress(t time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if t.After(p.lastBundleMsTime) {
		p.lastBundleMsTime = t
	}
}
