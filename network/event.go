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
	"fmt"

	"github.com/nikiramandika/Tugas-adj/openflow"
)

type EventType int

const (
	EventSwitchConnected EventType = iota + 1
	EventSwitchDisconnected
	EventPacketIn
)

func (r EventType) String() string {
	switch r {
	case EventSwitchConnected:
		return "SwitchConnected"
	case EventSwitchDisconnected:
		return "SwitchDisconnected"
	case EventPacketIn:
		return "PacketIn"
	default:
		return fmt.Sprintf("EventType(%d)", int(r))
	}
}

// PacketIn is a frame the switch handed to the controller.
type PacketIn struct {
	InPort uint32
	// BufferID is openflow.OFP_NO_BUFFER when the switch did not buffer the frame.
	BufferID uint32
	Data     []byte
}

// Event is delivered to the EventListener in order for each switch.
// PacketIn is only set for EventPacketIn.
type Event struct {
	Type     EventType
	Switch   Switch
	PacketIn *PacketIn
}

func (r Event) String() string {
	if r.PacketIn != nil {
		return fmt.Sprintf("%v (dpid=%v, inport=%v, buffer=%x, len=%v)", r.Type, r.Switch.DPID(), r.PacketIn.InPort, r.PacketIn.BufferID, len(r.PacketIn.Data))
	}

	return fmt.Sprintf("%v (dpid=%v)", r.Type, r.Switch.DPID())
}

type EventListener interface {
	OnEvent(Event) error
}

// Switch is the handle the applications use to program a switch.
type Switch interface {
	DPID() uint64
	InstallFlowRule(FlowRule) error
	SendPacketOut(PacketOut) error
}

type FlowRule struct {
	Priority    uint16
	Cookie      uint64
	IdleTimeout uint16
	HardTimeout uint16
	Match       *openflow.Match
	Actions     []openflow.Action
}

func (r FlowRule) String() string {
	return fmt.Sprintf("priority=%v, cookie=%x, idle=%v, hard=%v, match=%v, actions=%v", r.Priority, r.Cookie, r.IdleTimeout, r.HardTimeout, r.Match, r.Actions)
}

type PacketOut struct {
	InPort   uint32
	BufferID uint32
	Actions  []openflow.Action
	Data     []byte
}
