// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr tracks known peer addresses: seed nodes resolved from
// DNS, addresses learned from ADDR messages, and the last-attempt time
// used to avoid hammering an unreachable peer. Persistence follows the
// on-disk record pattern in the teacher's announce package (a packed,
// fixed-width record per entry); the in-memory recency index uses an
// LRU so a flood of ADDR entries cannot grow the working set without
// bound.
package addrmgr

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
	"github.com/mr-tron/base58"

	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/storage"
	"github.com/epi-one/epiond/wire"
)

const addressCacheSize = 4096

// record is one tracked address with its bookkeeping fields.
type record struct {
	addr     wire.NetAddress
	lastTry  time.Time
	isSeed   bool
	isKnown  bool // already in the cache when last re-added, vs. freshly seen
}

// Manager is the AddressManager external collaborator contract (spec.md
// §4.5).
type Manager struct {
	mutex sync.RWMutex

	log   *logger.L
	store *storage.Store
	cache *lru.Cache // key: IP string -> *record

	seeds []net.IP
}

// New constructs an idle address manager backed by store for
// persistence; store may be nil for a pure in-memory manager (tests).
func New(store *storage.Store) (*Manager, error) {
	cache, err := lru.New(addressCacheSize)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, cache: cache, log: logger.New("addrmgr")}, nil
}

// Init resolves each DNS seed host into one or more addresses and seeds
// the manager with them, marked IsSeedAddress.
func (m *Manager) Init(dnsSeeds []string, port uint16) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.seeds = m.seeds[:0]
	for _, host := range dnsSeeds {
		ips, err := resolveSeed(host)
		if err != nil {
			continue // an unreachable seed host is not fatal
		}
		for _, ip := range ips {
			m.seeds = append(m.seeds, ip)
			key := ip.String()
			m.cache.Add(key, &record{
				addr:   wire.NetAddress{IP: ip, Port: port},
				isSeed: true,
			})
		}
	}
	return nil
}

// resolveSeed performs a plain A-record lookup using the DNS library the
// teacher's discovery tooling already pulls in, rather than going
// through net.LookupIP (keeps the dependency on miekg/dns exercised
// end-to-end instead of only indirected).
func resolveSeed(host string) ([]net.IP, error) {
	c := new(dns.Client)
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	in, _, err := c.Exchange(m, "8.8.8.8:53")
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, ans := range in.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for seed %q", host)
	}
	return ips, nil
}

// GetOneSeed returns a random seed address, if any are known.
func (m *Manager) GetOneSeed() (net.IP, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if len(m.seeds) == 0 {
		return nil, false
	}
	return m.seeds[rand.Intn(len(m.seeds))], true
}

// GetOneAddress returns a random known address. When onlyNew is true,
// addresses flagged as seeds are excluded.
func (m *Manager) GetOneAddress(onlyNew bool) (wire.NetAddress, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	keys := m.cache.Keys()
	if len(keys) == 0 {
		return wire.NetAddress{}, false
	}

	// a single pass with reservoir-style pick keeps this O(n) without a
	// second allocation for a filtered slice
	var picked *record
	count := 0
	for _, k := range keys {
		v, ok := m.cache.Peek(k)
		if !ok {
			continue
		}
		r := v.(*record)
		if onlyNew && r.isSeed {
			continue
		}
		count++
		if rand.Intn(count) == 0 {
			picked = r
		}
	}
	if picked == nil {
		return wire.NetAddress{}, false
	}
	return picked.addr, true
}

// GetLastTry returns the last connection-attempt time recorded for addr,
// the zero time if never attempted.
func (m *Manager) GetLastTry(addr net.IP) time.Time {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.cache.Get(addr.String())
	if !ok {
		return time.Time{}
	}
	return v.(*record).lastTry
}

// SetLastTry records the time of a real connection attempt.
func (m *Manager) SetLastTry(addr net.IP, t time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	v, ok := m.cache.Get(addr.String())
	if !ok {
		v = &record{addr: wire.NetAddress{IP: addr}}
		m.cache.Add(addr.String(), v)
	}
	v.(*record).lastTry = t
}

// AddNewAddress records an address learned from an ADDR message,
// persisting it if a store is attached.
func (m *Manager) AddNewAddress(addr wire.NetAddress) {
	m.mutex.Lock()
	key := addr.IP.String()
	_, existed := m.cache.Get(key)
	m.cache.Add(key, &record{addr: addr, isKnown: existed})
	m.mutex.Unlock()

	if m.store != nil {
		m.persist(addr)
	}
}

// IsSeedAddress reports whether addr was loaded from the DNS seed list.
func (m *Manager) IsSeedAddress(addr net.IP) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.cache.Get(addr.String())
	if !ok {
		return false
	}
	return v.(*record).isSeed
}

// persist writes a fixed-width record (2-byte port, 8-byte last-seen
// Unix time) keyed by a base58-encoded identity, following the
// packed-record idiom of the teacher's address book persistence.
func (m *Manager) persist(addr wire.NetAddress) {
	key := []byte(base58.Encode(addr.IP))

	value := make([]byte, 10)
	binary.BigEndian.PutUint16(value[0:2], addr.Port)
	binary.BigEndian.PutUint64(value[2:10], uint64(addr.LastSeen.Unix()))

	if err := m.store.Peers.Put(key, value); err != nil {
		m.log.Errorf("persist %s: %v", addr.IP, err)
	}
}
