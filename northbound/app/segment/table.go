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
	"net"
	"sort"
	"sync"
)

// LearningTable maps MAC addresses to the switch port they were last seen on.
type LearningTable struct {
	mutex   sync.RWMutex
	entries map[string]uint32
}

func NewLearningTable() *LearningTable {
	return &LearningTable{entries: make(map[string]uint32)}
}

// Learn records mac behind port, overwriting any earlier location.
func (r *LearningTable) Learn(mac net.HardwareAddr, port uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.entries[string(mac)] = port
}

// Lookup returns ok=false for unknown addresses, which means flood.
func (r *LearningTable) Lookup(mac net.HardwareAddr) (port uint32, ok bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	port, ok = r.entries[string(mac)]
	return port, ok
}

func (r *LearningTable) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.entries)
}

type Entry struct {
	MAC  net.HardwareAddr
	Port uint32
}

// Entries returns a snapshot sorted by MAC address.
func (r *LearningTable) Entries() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	v := make([]Entry, 0, len(r.entries))
	for mac, port := range r.entries {
		v = append(v, Entry{MAC: net.HardwareAddr(mac), Port: port})
	}
	sort.Slice(v, func(i, j int) bool { return string(v[i].MAC) < string(v[j].MAC) })

	return v
}
