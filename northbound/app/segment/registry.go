/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package segment

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/network"
)

type Stats struct {
	PacketIn       uint64 `json:"packet_in"`
	Forwarded      uint64 `json:"forwarded"`
	Flooded        uint64 `json:"flooded"`
	Dropped        uint64 `json:"dropped"`
	Violations     uint64 `json:"violations"`
	FlowsInstalled uint64 `json:"flows_installed"`
}

// Session is the state kept for one connected switch. It lives from the
// switch's connect event to its disconnect event.
type Session struct {
	sw          network.Switch
	dept        department.Department
	table       *LearningTable
	cache       *flowCache
	storm       *stormController
	connectedAt time.Time
	stats       Stats
}

func (r *Session) DPID() uint64 {
	return r.sw.DPID()
}

func (r *Session) Switch() network.Switch {
	return r.sw
}

// Department returns the switch default department, or None.
func (r *Session) Department() department.Department {
	return r.dept
}

func (r *Session) Table() *LearningTable {
	return r.table
}

func (r *Session) ConnectedAt() time.Time {
	return r.connectedAt
}

func (r *Session) Stats() Stats {
	return Stats{
		PacketIn:       atomic.LoadUint64(&r.stats.PacketIn),
		Forwarded:      atomic.LoadUint64(&r.stats.Forwarded),
		Flooded:        atomic.LoadUint64(&r.stats.Flooded),
		Dropped:        atomic.LoadUint64(&r.stats.Dropped),
		Violations:     atomic.LoadUint64(&r.stats.Violations),
		FlowsInstalled: atomic.LoadUint64(&r.stats.FlowsInstalled),
	}
}

func (r *Session) String() string {
	return fmt.Sprintf("DPID=%v, Department=%v, MACs=%v, Stats=%+v", r.DPID(), r.dept, r.table.Len(), r.Stats())
}

// Registry owns the sessions of all connected switches.
type Registry struct {
	mutex           sync.RWMutex
	sessions        map[uint64]*Session
	cacheExpiration time.Duration
	maxFloods       uint
}

// NewRegistry returns a registry whose sessions suppress duplicate flow rules
// for cacheExpiration and allow at most maxFloods floods per second.
func NewRegistry(cacheExpiration time.Duration, maxFloods uint) *Registry {
	return &Registry{
		sessions:        make(map[uint64]*Session),
		cacheExpiration: cacheExpiration,
		maxFloods:       maxFloods,
	}
}

// OnConnect creates a fresh session for sw, replacing any earlier session
// with the same DPID.
func (r *Registry) OnConnect(sw network.Switch, dept department.Department) *Session {
	if sw == nil {
		panic("nil switch")
	}

	s := &Session{
		sw:          sw,
		dept:        dept,
		table:       NewLearningTable(),
		cache:       newFlowCache(r.cacheExpiration),
		storm:       newStormController(r.maxFloods),
		connectedAt: time.Now(),
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sessions[sw.DPID()] = s
	switchesConnected.Set(float64(len(r.sessions)))

	return s
}

// OnDisconnect discards the session of sw and everything it learned. The
// session is removed only if it still belongs to sw, so a late disconnect of
// a replaced connection does not remove its successor.
func (r *Registry) OnDisconnect(sw network.Switch) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[sw.DPID()]
	if !ok || s.sw != sw {
		return false
	}
	delete(r.sessions, sw.DPID())
	switchesConnected.Set(float64(len(r.sessions)))

	return true
}

func (r *Registry) SessionFor(dpid uint64) (*Session, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s, ok := r.sessions[dpid]
	return s, ok
}

// Sessions returns a snapshot sorted by DPID.
func (r *Registry) Sessions() []*Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	v := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		v = append(v, s)
	}
	sort.Slice(v, func(i, j int) bool { return v[i].DPID() < v[j].DPID() })

	return v
}
