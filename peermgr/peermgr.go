// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peermgr is the peer lifecycle fabric: it owns the connected-peer
// set, demultiplexes inbound messages, drives outbound dialing, sweeps
// timeouts, and runs initial sync. Structured as four long-running
// goroutines over background.T/background.Processes, the same shape the
// teacher uses for its own always-on worker set (peer/initialisation.go),
// generalized from a single RPC-dispatch loop to the four responsibilities
// spec.md §4.4 calls out: HandleMessage, OpenConnection, ScheduleTask and
// InitialSync.
package peermgr

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/addrmgr"
	"github.com/epi-one/epiond/background"
	"github.com/epi-one/epiond/block"
	"github.com/epi-one/epiond/connmgr"
	"github.com/epi-one/epiond/dag"
	"github.com/epi-one/epiond/hash"
	"github.com/epi-one/epiond/mempool"
	"github.com/epi-one/epiond/messagebus"
	"github.com/epi-one/epiond/metrics"
	"github.com/epi-one/epiond/obc"
	"github.com/epi-one/epiond/params"
	"github.com/epi-one/epiond/peer"
	"github.com/epi-one/epiond/version"
	"github.com/epi-one/epiond/wire"
)

// tunables (spec.md §6)
const (
	kMaxPeersToRelay    = 8
	openConnectionEvery = 15 * time.Second
	scheduleTaskEvery   = 30 * time.Second
	pingEvery           = 60 * time.Second
	syncStallTimeout    = 120 * time.Second

	// kSyncTimeThreshold is how close the milestone head's block time must
	// be to wall-clock now for InitialSync to consider the node caught up
	// (spec.md §4.4: "Terminate when DAG.GetMilestoneHead().block.time >=
	// now - kSyncTimeThreshold"). The concrete value is a configuration
	// input the spec leaves to the implementation; half an hour matches
	// the other timer constants' order of magnitude.
	kSyncTimeThreshold = 30 * time.Minute

	// maxPoolDialAttempts and dialRetryWindow are the OpenConnection
	// contract's pool-walk bound and anti-hammer window: up to this many
	// candidates are examined per tick, skipping any address re-tried
	// inside the window, stopping at the first eligible dial.
	maxPoolDialAttempts = 100
	dialRetryWindow     = 120 * time.Second

	relayDedupTTL     = 2 * time.Minute
	relayDedupCleanup = 1 * time.Minute
)

// PeerMgr is the peer lifecycle fabric (spec.md §4.4).
type PeerMgr struct {
	mutex sync.RWMutex
	log   *logger.L

	connMgr connmgr.Manager
	addrMgr *addrmgr.Manager
	dag     dag.DAG
	pool    mempool.Mempool
	obc     *obc.Container
	metrics *metrics.Metrics

	// relayed dedups BLOCK relays by hash for a short window, so a block
	// arriving from several peers in quick succession is not echoed back
	// out once per arrival.
	relayed *gocache.Cache

	maxOutbound int
	defaultPort uint16
	peers       map[string]*peer.Peer // keyed by Connection.GetRemote()
	byConn      map[connmgr.Connection]*peer.Peer

	syncPeer *peer.Peer

	// initialSync is 1 while the node trusts only its sync peer's BUNDLE
	// stream for new blocks; inbound BLOCK gossip is dropped during this
	// phase (spec.md §4.4). It starts true and flips false once the sync
	// peer signals it has nothing further to send.
	initialSync int32

	bg *background.T
}

// New constructs an idle peer manager; call Start to begin its four
// background threads. defaultPort is used when dialing a seed address,
// which the address manager tracks only as a bare IP.
func New(cm connmgr.Manager, am *addrmgr.Manager, d dag.DAG, mp mempool.Mempool, mtr *metrics.Metrics, maxOutbound int, defaultPort uint16) *PeerMgr {
	m := &PeerMgr{
		log:         logger.New("peermgr"),
		connMgr:     cm,
		addrMgr:     am,
		dag:         d,
		pool:        mp,
		obc:         obc.New(),
		metrics:     mtr,
		relayed:     gocache.New(relayDedupTTL, relayDedupCleanup),
		maxOutbound: maxOutbound,
		defaultPort: defaultPort,
		peers:       make(map[string]*peer.Peer),
		byConn:      make(map[connmgr.Connection]*peer.Peer),
	}
	m.setInitialSync(true)
	return m
}

// InInitialSync reports whether the node is still relying on its sync
// peer's BUNDLE stream rather than live BLOCK gossip.
func (m *PeerMgr) InInitialSync() bool {
	return atomic.LoadInt32(&m.initialSync) == 1
}

func (m *PeerMgr) setInitialSync(syncing bool) {
	var v int32
	if syncing {
		v = 1
	}
	atomic.StoreInt32(&m.initialSync, v)
	if m.metrics != nil {
		m.metrics.InitialSyncState.Set(float64(v))
	}
}

// noteGauges reports the current peer count into the connected-peers
// gauge, if metrics are attached.
func (m *PeerMgr) noteGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.PeersConnected.Set(float64(m.PeerCount()))
	m.metrics.OrphansPending.Set(float64(m.obc.Size()))
}

// Start registers connection lifecycle callbacks and launches the four
// long-running threads.
func (m *PeerMgr) Start() {
	m.connMgr.RegisterNewConnectionCallback(m.onNewConnection)
	m.connMgr.RegisterDeleteConnectionCallback(m.onDeleteConnection)

	m.bg = background.Start(background.Processes{
		{Name: "handleMessage", Process: m.handleMessage},
		{Name: "openConnection", Process: m.openConnection},
		{Name: "scheduleTask", Process: m.scheduleTask},
		{Name: "initialSync", Process: m.initialSync},
	}, m)
}

// Stop shuts down the receive queue and waits for every thread to exit;
// messages still queued are not processed.
func (m *PeerMgr) Stop() {
	m.connMgr.QuitQueue()
	if m.bg != nil {
		background.Stop(m.bg)
	}
}

// onNewConnection admits a freshly accepted or dialed connection into
// Pending state. An outbound connection sends its own VERSION immediately
// (spec.md §4.3); an inbound connection waits for the remote's VERSION.
func (m *PeerMgr) onNewConnection(conn connmgr.Connection) {
	var isSeed bool
	if m.addrMgr != nil && !conn.IsInbound() {
		if host, _, err := net.SplitHostPort(conn.GetRemote()); err == nil {
			isSeed = m.addrMgr.IsSeedAddress(net.ParseIP(host))
		}
	}
	p := peer.New(conn, isSeed)

	m.mutex.Lock()
	m.peers[conn.GetRemote()] = p
	m.byConn[conn] = p
	m.mutex.Unlock()
	m.noteGauges()

	if !conn.IsInbound() {
		if err := conn.SendMessage(wire.Message{Kind: wire.VERSION, Body: m.localVersion()}); err == nil {
			p.NoteVersionSent()
		}
	}
}

// localVersion is the VERSION payload this node advertises, stamping the
// software version and current chain height the way the teacher's
// handshake stamps version.Version into its own VERSION-equivalent
// message (peer/listener.go).
func (m *PeerMgr) localVersion() wire.VersionBody {
	return wire.VersionBody{
		ProtocolVersion: 1,
		BestHeight:      m.dag.GetBestMilestoneHeight(),
		UserAgent:       "epiond/" + version.Version,
	}
}

// onDeleteConnection removes a torn-down connection from the peer set.
func (m *PeerMgr) onDeleteConnection(conn connmgr.Connection) {
	m.mutex.Lock()
	p, ok := m.byConn[conn]
	if ok {
		delete(m.byConn, conn)
		delete(m.peers, conn.GetRemote())
	}
	if m.syncPeer == p {
		m.syncPeer = nil
	}
	m.mutex.Unlock()
	m.noteGauges()

	if ok {
		p.Kill()
	}
}

// handleMessage is the HandleMessage thread: it drains the connection
// manager's single inbound queue and dispatches each envelope. Exits once
// ReceiveMessage reports the queue has been shut down.
func (m *PeerMgr) handleMessage(argsIface interface{}, shutdownCh <-chan bool, done chan<- bool) {
	defer close(done)
	for {
		var env connmgr.Envelope
		if !m.connMgr.ReceiveMessage(&env) {
			return
		}
		m.dispatch(env)
	}
}

func (m *PeerMgr) dispatch(env connmgr.Envelope) {
	m.mutex.RLock()
	p, ok := m.byConn[env.Connection]
	m.mutex.RUnlock()
	if !ok {
		return
	}

	switch env.Message.Kind {
	case wire.VERSION:
		p.NoteVersionReceived()
		if !env.Connection.IsInbound() {
			return
		}
		if err := env.Connection.SendMessage(wire.Message{Kind: wire.VERSION, Body: m.localVersion()}); err == nil {
			p.NoteVersionSent()
		}

	case wire.VERACK:
		// handshake already completes on VERSION exchange; VERACK is
		// accepted for protocol compatibility but carries no state change

	case wire.PING:
		_ = env.Connection.SendMessage(wire.Message{Kind: wire.PONG})

	case wire.PONG:
		p.NotePongReceived()

	case wire.GETADDR:
		m.sendAddrSample(p)

	case wire.ADDR:
		body, ok := env.Message.Body.(wire.AddrBody)
		if !ok {
			return
		}
		if len(body.Addresses) > wire.MaxAddressSize {
			m.log.Warnf("dropping ADDR from %s: %d addresses exceeds maximum %d", p.Identity(), len(body.Addresses), wire.MaxAddressSize)
			if m.metrics != nil {
				m.metrics.AddrDroppedTotal.Inc()
			}
			return
		}
		for _, a := range body.Addresses {
			m.addrMgr.AddNewAddress(a)
		}
		messagebus.Send(messagebus.Addr, p.Identity(), body.Addresses)
		if p.IsSeed() {
			// a seed's only job is to hand out addresses once
			p.Disconnect()
		} else {
			m.relay(env.Message, p)
		}

	case wire.BLOCK:
		if m.InInitialSync() {
			// still catching up on the sync peer's BUNDLE stream; live
			// gossip is dropped rather than admitted out of order
			// (spec.md §4.4)
			return
		}
		body, ok := env.Message.Body.(wire.BlockBody)
		if !ok || body.Block == nil {
			return
		}
		m.admitBlock(body.Block, p)
		if m.syncPeerIs(p) {
			p.NoteBundleProgress(body.Block.Timestamp())
		}

	case wire.TX:
		body, ok := env.Message.Body.(wire.TxBody)
		if ok && m.pool.ReceiveTx(body.Raw) {
			messagebus.Send(messagebus.Tx, p.Identity(), body.Raw)
			m.relay(env.Message, p)
		}

	case wire.BUNDLE:
		body, ok := env.Message.Body.(wire.BundleBody)
		if !ok {
			return
		}
		if len(body.Blocks) == 0 && m.syncPeerIs(p) {
			// the sync peer has nothing further to hand over; live BLOCK
			// gossip can be trusted from here on
			m.setInitialSync(false)
			return
		}
		for _, b := range body.Blocks {
			m.admitBlock(b, p)
			p.NoteBundleProgress(b.Timestamp())
		}

	case wire.GETDATA:
		body, ok := env.Message.Body.(wire.GetDataBody)
		if !ok {
			return
		}
		_ = p.HandleGetData(body.Hashes, m.dag.GetBlock)

	case wire.INV:
		body, ok := env.Message.Body.(wire.InvBody)
		if !ok {
			return
		}
		want := p.HandleInv(body.Hashes, m.dag.Contains)
		if len(want) > 0 {
			_ = env.Connection.SendMessage(wire.Message{Kind: wire.GETDATA, Body: wire.GetDataBody{Hashes: want}})
		}

	case wire.NOTFOUND:
		body, ok := env.Message.Body.(wire.NotFoundBody)
		if ok {
			p.HandleNotFound(body.Hashes)
		}
	}
}

func (m *PeerMgr) syncPeerIs(p *peer.Peer) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.syncPeer == p
}

// missingMask reports which of b's three parents the DAG does not yet
// hold. An all-zero parent hash counts as satisfied; the SHA-256 sentinel
// carried by the preset genesis blocks is an ordinary hash here.
func (m *PeerMgr) missingMask(b *block.Block) uint8 {
	parents := b.Parents()
	var mask uint8
	if !parents[0].IsEmpty() && !m.dag.Contains(parents[0]) {
		mask |= obc.MissingMilestone
	}
	if !parents[1].IsEmpty() && !m.dag.Contains(parents[1]) {
		mask |= obc.MissingTip
	}
	if !parents[2].IsEmpty() && !m.dag.Contains(parents[2]) {
		mask |= obc.MissingPrev
	}
	return mask
}

// admitBlock routes a newly received block to the OBC if any of its
// parents are not yet known to the DAG, or straight to the DAG otherwise;
// admission into the DAG in turn submits the block's own hash back to the
// OBC, releasing anything that depended on it (spec.md §4.2/§2 data flow:
// Peer Manager → (OBC | ...) → DAG).
func (m *PeerMgr) admitBlock(b *block.Block, from *peer.Peer) {
	if !b.MeetsDifficulty(params.TargetFromCompact(b.DifficultyTarget)) {
		m.log.Warnf("dropping block %s: proof-of-work below its own claimed target", b.Hash())
		return
	}
	if mask := m.missingMask(b); mask != 0 {
		_ = m.obc.AddBlock(b, mask)
		m.noteGauges()
		return
	}
	m.admitAndRelease(b, from)
}

func (m *PeerMgr) admitAndRelease(b *block.Block, from *peer.Peer) {
	if err := m.dag.AddNewBlock(b, from); err != nil {
		return
	}
	messagebus.Send(messagebus.Block, from.Identity(), b)

	key := b.Hash().String()
	if _, alreadyRelayed := m.relayed.Get(key); !alreadyRelayed {
		m.relayed.SetDefault(key, struct{}{})
		m.relay(wire.Message{Kind: wire.BLOCK, Body: wire.BlockBody{Block: b}}, from)
	}

	for _, released := range m.Submit(b.Hash(), from) {
		m.admitAndRelease(released, from)
	}
}

// relay forwards msg to up to kMaxPeersToRelay other fully connected
// peers, following the teacher's broadcast-to-a-sample policy rather than
// flooding every connection.
func (m *PeerMgr) relay(msg wire.Message, from *peer.Peer) {
	m.mutex.RLock()
	candidates := make([]*peer.Peer, 0, len(m.peers))
	for _, p := range m.peers {
		if p != from && p.State() == peer.FullyConnected {
			candidates = append(candidates, p)
		}
	}
	m.mutex.RUnlock()

	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > kMaxPeersToRelay {
		candidates = candidates[:kMaxPeersToRelay]
	}
	for _, p := range candidates {
		_ = p.Connection().SendMessage(msg)
	}
}

func (m *PeerMgr) sendAddrSample(p *peer.Peer) {
	addrs := make([]wire.NetAddress, 0, kMaxPeersToRelay)
	for i := 0; i < kMaxPeersToRelay; i++ {
		a, ok := m.addrMgr.GetOneAddress(false)
		if !ok {
			break
		}
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return
	}
	_ = p.Connection().SendMessage(wire.Message{Kind: wire.ADDR, Body: wire.AddrBody{Addresses: addrs}})
}

// openConnection is the OpenConnection thread: it periodically tops up the
// outbound connection count, trying a seed first and then known pool
// addresses (see maybeDialOut).
func (m *PeerMgr) openConnection(argsIface interface{}, shutdownCh <-chan bool, done chan<- bool) {
	defer close(done)
	ticker := time.NewTicker(openConnectionEvery)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCh:
			return
		case <-ticker.C:
			m.maybeDialOut()
		}
	}
}

// maybeDialOut tries one seed and then up to maxPoolDialAttempts pool
// candidates per tick, dialing the first pool address that is not
// already connected and has not been tried inside dialRetryWindow. The
// seed dial is unconditional (seeds are meant to be hit repeatedly to
// hand out addresses); the pool walk stops at its first eligible hit.
func (m *PeerMgr) maybeDialOut() {
	if m.connMgr.GetOutboundNum() >= m.maxOutbound {
		return
	}

	if ip, ok := m.addrMgr.GetOneSeed(); ok && !m.hasConnectedTo(ip) {
		m.dialAddr(wire.NetAddress{IP: ip, Port: m.defaultPort})
	}

	for attempt := 0; attempt < maxPoolDialAttempts; attempt++ {
		addr, ok := m.addrMgr.GetOneAddress(true)
		if !ok {
			return
		}
		if m.hasConnectedTo(addr.IP) {
			continue
		}
		if time.Since(m.addrMgr.GetLastTry(addr.IP)) < dialRetryWindow {
			continue
		}
		m.dialAddr(addr)
		return
	}
}

// hasConnectedTo reports whether any tracked peer's remote address
// resolves to ip.
func (m *PeerMgr) hasConnectedTo(ip net.IP) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for remote := range m.peers {
		host, _, err := net.SplitHostPort(remote)
		if err == nil && host == ip.String() {
			return true
		}
	}
	return false
}

func (m *PeerMgr) dialAddr(addr wire.NetAddress) {
	m.addrMgr.SetLastTry(addr.IP, time.Now())
	port := int(addr.Port)
	if _, err := m.connMgr.Connect(addr.IP.String(), port); err != nil {
		m.log.Debugf("dial %s:%d failed: %v", addr.IP, port, err)
	}
}

// scheduleTask is the ScheduleTask thread: a periodic sweep that retires
// timed-out Pending peers, pings every FullyConnected peer, and tears down
// anything the health check has moved to Closing.
func (m *PeerMgr) scheduleTask(argsIface interface{}, shutdownCh <-chan bool, done chan<- bool) {
	defer close(done)
	ticker := time.NewTicker(scheduleTaskEvery)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCh:
			return
		case <-ticker.C:
			m.sweepPeers()
		}
	}
}

func (m *PeerMgr) sweepPeers() {
	now := time.Now()

	m.mutex.RLock()
	snapshot := make([]*peer.Peer, 0, len(m.peers))
	for _, p := range m.peers {
		snapshot = append(snapshot, p)
	}
	m.mutex.RUnlock()

	for _, p := range snapshot {
		stalled := m.syncPeerIs(p) && !p.LastBundleMsTime().IsZero() && now.Sub(p.LastBundleMsTime()) > syncStallTimeout

		if p.CheckPendingTimeout(now) || p.CheckHealth(now, stalled) {
			p.Connection().Close()
			continue
		}

		if p.State() == peer.FullyConnected {
			p.NotePingSent(now)
			if err := p.Connection().SendMessage(wire.Message{Kind: wire.PING}); err != nil {
				p.NotePingFailed()
			}
		}
	}
}

// initialSync is the InitialSync thread: it picks one fully connected peer
// as the sync source and keeps asking it for more blocks while the DAG has
// no outstanding download.
func (m *PeerMgr) initialSync(argsIface interface{}, shutdownCh <-chan bool, done chan<- bool) {
	defer close(done)
	ticker := time.NewTicker(scheduleTaskEvery)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCh:
			return
		case <-ticker.C:
			m.driveSync()
		}
	}
}

func (m *PeerMgr) driveSync() {
	if m.InInitialSync() {
		head := m.dag.GetMilestoneHead()
		if head.Block != nil && !head.Time.Before(time.Now().Add(-kSyncTimeThreshold)) {
			// the milestone head is recent enough that the node is caught
			// up; the empty-BUNDLE signal (dispatch's wire.BUNDLE case) is
			// the other, independent way this same flag gets cleared
			m.setInitialSync(false)
			m.mutex.Lock()
			m.syncPeer = nil
			m.mutex.Unlock()
		}
	}

	m.mutex.Lock()
	if m.syncPeer == nil || m.syncPeer.State() != peer.FullyConnected {
		m.syncPeer = m.pickSyncPeerLocked()
		if m.syncPeer != nil {
			m.syncPeer.NoteBundleProgress(time.Now())
		}
	}
	sp := m.syncPeer
	m.mutex.Unlock()

	if sp == nil || !m.dag.IsDownloadingEmpty() {
		return
	}

	head := m.dag.GetMilestoneHead()
	var from hash.ID
	if head.Block != nil {
		from = head.Block.Hash()
	}
	_ = sp.Connection().SendMessage(wire.Message{Kind: wire.GETDATA, Body: wire.GetDataBody{Hashes: []hash.ID{from}}})
}

func (m *PeerMgr) pickSyncPeerLocked() *peer.Peer {
	for _, p := range m.peers {
		if p.SyncAvailable() {
			return p
		}
	}
	return nil
}

// SetSyncAvailable marks the tracked peer keyed by identity as available
// (or not) as an initial-sync source; an unknown identity is ignored.
// Nothing in this package calls it, so a peer becomes a sync candidate
// only through this method.
func (m *PeerMgr) SetSyncAvailable(identity string, available bool) {
	m.mutex.RLock()
	p, ok := m.peers[identity]
	m.mutex.RUnlock()
	if ok {
		p.SetSyncAvailable(available)
	}
}

// Submit releases whatever in the orphan container was waiting on hash h,
// bumping the release/orphan-pending metrics. Callers (admitAndRelease)
// are responsible for feeding the result back into the DAG.
func (m *PeerMgr) Submit(h hash.ID, from *peer.Peer) []*block.Block {
	released := m.obc.SubmitHash(h)
	if m.metrics != nil && len(released) > 0 {
		m.metrics.OBCReleasesTotal.Add(float64(len(released)))
	}
	m.noteGauges()
	return released
}

// PeerCount returns the number of tracked peers, regardless of state.
func (m *PeerMgr) PeerCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.peers)
}
