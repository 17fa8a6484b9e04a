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

package network

import (
	"encoding"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nikiramandika/Tugas-adj/openflow"
)

var (
	ErrClosedDevice = errors.New("already closed device")
)

type Features struct {
	DPID       uint64
	NumBuffers uint32
	NumTables  uint8
}

// Device is a connected OpenFlow switch. It implements Switch.
type Device struct {
	mutex       sync.RWMutex
	session     *session
	features    Features
	connectedAt time.Time
	closed      bool
}

func newDevice(s *session) *Device {
	if s == nil {
		panic("Session is nil")
	}

	return &Device{session: s}
}

func (r *Device) String() string {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return fmt.Sprintf("Device DPID=%v, Features=%+v, Connected=%v", r.features.DPID, r.features, !r.closed)
}

func (r *Device) DPID() uint64 {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.features.DPID
}

func (r *Device) setFeatures(f Features) {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.features = f
	r.connectedAt = time.Now()
}

func (r *Device) isValid() bool {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return !r.connectedAt.IsZero()
}

// ConnectedAt returns the time the switch finished its handshake.
func (r *Device) ConnectedAt() time.Time {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.connectedAt
}

func (r *Device) SendMessage(msg encoding.BinaryMarshaler) error {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if msg == nil {
		panic("Message is nil")
	}
	if r.closed {
		return ErrClosedDevice
	}

	return r.session.Write(msg)
}

func (r *Device) InstallFlowRule(rule FlowRule) error {
	flowmod := openflow.NewFlowMod(openflow.OFPFC_ADD)
	flowmod.Cookie = rule.Cookie
	flowmod.Priority = rule.Priority
	flowmod.IdleTimeout = rule.IdleTimeout
	flowmod.HardTimeout = rule.HardTimeout
	if rule.Match != nil {
		flowmod.Match = rule.Match
	}
	flowmod.Instruction = &openflow.ApplyActions{Actions: rule.Actions}

	return r.SendMessage(flowmod)
}

func (r *Device) SendPacketOut(p PacketOut) error {
	out := openflow.NewPacketOut()
	out.InPort = p.InPort
	out.BufferID = p.BufferID
	out.Actions = p.Actions
	out.Data = p.Data

	return r.SendMessage(out)
}

func (r *Device) Close() {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}
