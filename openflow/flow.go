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

package openflow

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
)

type Action interface {
	encoding.BinaryMarshaler
	fmt.Stringer
}

// Output sends a packet to Port. MaxLen only matters when Port is OFPP_CONTROLLER.
type Output struct {
	Port   uint32
	MaxLen uint16
}

func NewOutput(port uint32) *Output {
	return &Output{Port: port, MaxLen: OFPCML_NO_BUFFER}
}

func (r *Output) MarshalBinary() ([]byte, error) {
	v := make([]byte, 16)
	binary.BigEndian.PutUint16(v[0:2], OFPAT_OUTPUT)
	binary.BigEndian.PutUint16(v[2:4], 16)
	binary.BigEndian.PutUint32(v[4:8], r.Port)
	binary.BigEndian.PutUint16(v[8:10], r.MaxLen)
	// v[10:16] is padding

	return v, nil
}

func (r *Output) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return ErrInvalidPacketLength
	}
	if binary.BigEndian.Uint16(data[0:2]) != OFPAT_OUTPUT {
		return errors.New("not an output action")
	}
	r.Port = binary.BigEndian.Uint32(data[4:8])
	r.MaxLen = binary.BigEndian.Uint16(data[8:10])

	return nil
}

func (r *Output) String() string {
	return fmt.Sprintf("output:%v", PortName(r.Port))
}

// PortName returns the symbolic name of reserved ports, or the number itself.
func PortName(port uint32) string {
	switch port {
	case OFPP_IN_PORT:
		return "IN_PORT"
	case OFPP_TABLE:
		return "TABLE"
	case OFPP_NORMAL:
		return "NORMAL"
	case OFPP_FLOOD:
		return "FLOOD"
	case OFPP_ALL:
		return "ALL"
	case OFPP_CONTROLLER:
		return "CONTROLLER"
	case OFPP_LOCAL:
		return "LOCAL"
	case OFPP_ANY:
		return "ANY"
	default:
		return fmt.Sprintf("%v", port)
	}
}

func marshalActions(actions []Action) ([]byte, error) {
	v := make([]byte, 0)
	for _, a := range actions {
		b, err := a.MarshalBinary()
		if err != nil {
			return nil, err
		}
		v = append(v, b...)
	}

	return v, nil
}

// ApplyActions is the OFPIT_APPLY_ACTIONS instruction.
type ApplyActions struct {
	Actions []Action
}

func (r *ApplyActions) MarshalBinary() ([]byte, error) {
	actions, err := marshalActions(r.Actions)
	if err != nil {
		return nil, err
	}

	v := make([]byte, 8, 8+len(actions))
	v = append(v, actions...)
	binary.BigEndian.PutUint16(v[0:2], OFPIT_APPLY_ACTIONS)
	binary.BigEndian.PutUint16(v[2:4], uint16(len(v)))
	// v[4:8] is padding

	return v, nil
}

type FlowMod struct {
	Message
	Cookie      uint64
	CookieMask  uint64
	TableID     uint8
	Command     uint8
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    uint32
	OutPort     uint32
	OutGroup    uint32
	Flags       uint16
	Match       *Match
	// Instruction is omitted on deletions.
	Instruction *ApplyActions
}

func NewFlowMod(cmd uint8) *FlowMod {
	return &FlowMod{
		Message:  NewMessage(OFPT_FLOW_MOD, NewXID()),
		Command:  cmd,
		BufferID: OFP_NO_BUFFER,
		OutPort:  OFPP_ANY,
		OutGroup: OFPG_ANY,
		Match:    NewMatch(),
	}
}

func (r *FlowMod) MarshalBinary() ([]byte, error) {
	if r.Match == nil {
		return nil, errors.New("empty flow match")
	}

	v := make([]byte, 40)
	binary.BigEndian.PutUint64(v[0:8], r.Cookie)
	binary.BigEndian.PutUint64(v[8:16], r.CookieMask)
	v[16] = r.TableID
	v[17] = r.Command
	binary.BigEndian.PutUint16(v[18:20], r.IdleTimeout)
	binary.BigEndian.PutUint16(v[20:22], r.HardTimeout)
	binary.BigEndian.PutUint16(v[22:24], r.Priority)
	binary.BigEndian.PutUint32(v[24:28], r.BufferID)
	binary.BigEndian.PutUint32(v[28:32], r.OutPort)
	binary.BigEndian.PutUint32(v[32:36], r.OutGroup)
	binary.BigEndian.PutUint16(v[36:38], r.Flags)
	// v[38:40] is padding

	match, err := r.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	v = append(v, match...)
	if r.Instruction != nil {
		inst, err := r.Instruction.MarshalBinary()
		if err != nil {
			return nil, err
		}
		v = append(v, inst...)
	}

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

// UnmarshalBinary decodes the fixed fields and the match. Instructions are
// not decoded because we never receive FLOW_MODs from switches.
func (r *FlowMod) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 40 {
		return ErrInvalidPacketLength
	}
	r.Cookie = binary.BigEndian.Uint64(payload[0:8])
	r.CookieMask = binary.BigEndian.Uint64(payload[8:16])
	r.TableID = payload[16]
	r.Command = payload[17]
	r.IdleTimeout = binary.BigEndian.Uint16(payload[18:20])
	r.HardTimeout = binary.BigEndian.Uint16(payload[20:22])
	r.Priority = binary.BigEndian.Uint16(payload[22:24])
	r.BufferID = binary.BigEndian.Uint32(payload[24:28])
	r.OutPort = binary.BigEndian.Uint32(payload[28:32])
	r.OutGroup = binary.BigEndian.Uint32(payload[32:36])
	r.Flags = binary.BigEndian.Uint16(payload[36:38])

	r.Match = NewMatch()
	return r.Match.UnmarshalBinary(payload[40:])
}

type PacketIn struct {
	Message
	BufferID uint32
	TotalLen uint16
	Reason   uint8
	TableID  uint8
	Cookie   uint64
	Match    *Match
	Data     []byte
}

// InPort returns the ingress port carried in the match.
func (r *PacketIn) InPort() uint32 {
	if r.Match == nil {
		return 0
	}
	_, port := r.Match.InPort()

	return port
}

func (r *PacketIn) MarshalBinary() ([]byte, error) {
	match := r.Match
	if match == nil {
		match = NewMatch()
	}
	m, err := match.MarshalBinary()
	if err != nil {
		return nil, err
	}

	v := make([]byte, 16, 16+len(m)+2+len(r.Data))
	binary.BigEndian.PutUint32(v[0:4], r.BufferID)
	binary.BigEndian.PutUint16(v[4:6], r.TotalLen)
	v[6] = r.Reason
	v[7] = r.TableID
	binary.BigEndian.PutUint64(v[8:16], r.Cookie)
	v = append(v, m...)
	v = append(v, 0, 0) // padding
	v = append(v, r.Data...)

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

func (r *PacketIn) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 24 {
		return ErrInvalidPacketLength
	}
	r.BufferID = binary.BigEndian.Uint32(payload[0:4])
	r.TotalLen = binary.BigEndian.Uint16(payload[4:6])
	r.Reason = payload[6]
	r.TableID = payload[7]
	r.Cookie = binary.BigEndian.Uint64(payload[8:16])

	r.Match = NewMatch()
	if err := r.Match.UnmarshalBinary(payload[16:]); err != nil {
		return err
	}
	length, err := MatchLength(payload[16:])
	if err != nil {
		return err
	}
	offset := 16 + length + 2 // +2 is padding
	if len(payload) < offset {
		return ErrInvalidPacketLength
	}
	r.Data = payload[offset:]

	return nil
}

type PacketOut struct {
	Message
	BufferID uint32
	InPort   uint32
	Actions  []Action
	Data     []byte
}

func NewPacketOut() *PacketOut {
	return &PacketOut{
		Message:  NewMessage(OFPT_PACKET_OUT, NewXID()),
		BufferID: OFP_NO_BUFFER,
		InPort:   OFPP_CONTROLLER,
	}
}

func (r *PacketOut) MarshalBinary() ([]byte, error) {
	actions, err := marshalActions(r.Actions)
	if err != nil {
		return nil, err
	}

	v := make([]byte, 16, 16+len(actions)+len(r.Data))
	binary.BigEndian.PutUint32(v[0:4], r.BufferID)
	binary.BigEndian.PutUint32(v[4:8], r.InPort)
	binary.BigEndian.PutUint16(v[8:10], uint16(len(actions)))
	// v[10:16] is padding
	v = append(v, actions...)
	// The frame is only carried when the switch did not buffer it.
	if r.BufferID == OFP_NO_BUFFER {
		v = append(v, r.Data...)
	}

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

// UnmarshalBinary decodes a PACKET_OUT whose actions are all output actions.
func (r *PacketOut) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 16 {
		return ErrInvalidPacketLength
	}
	r.BufferID = binary.BigEndian.Uint32(payload[0:4])
	r.InPort = binary.BigEndian.Uint32(payload[4:8])
	length := int(binary.BigEndian.Uint16(payload[8:10]))
	if len(payload) < 16+length {
		return ErrInvalidPacketLength
	}

	r.Actions = nil
	buf := payload[16 : 16+length]
	for len(buf) >= 16 {
		output := new(Output)
		if err := output.UnmarshalBinary(buf); err != nil {
			return err
		}
		r.Actions = append(r.Actions, output)
		buf = buf[16:]
	}
	r.Data = payload[16+length:]

	return nil
}
