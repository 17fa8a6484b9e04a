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
	"encoding/binary"
	"sync/atomic"
)

var xid uint32

// NewXID returns a transaction ID that is unique within this process.
func NewXID() uint32 {
	return atomic.AddUint32(&xid, 1)
}

// Message is the ofp_header followed by an opaque payload. Concrete messages
// embed it and marshal their bodies into the payload.
type Message struct {
	version uint8
	msgType uint8
	xid     uint32
	length  uint16
	payload []byte
}

func NewMessage(msgType uint8, xid uint32) Message {
	return Message{
		version: OF13_VERSION,
		msgType: msgType,
		xid:     xid,
		length:  8,
	}
}

func (r *Message) Version() uint8 {
	return r.version
}

func (r *Message) Type() uint8 {
	return r.msgType
}

func (r *Message) TransactionID() uint32 {
	return r.xid
}

func (r *Message) SetTransactionID(xid uint32) {
	r.xid = xid
}

func (r *Message) SetPayload(payload []byte) {
	r.payload = payload
	r.length = uint16(8 + len(payload))
}

func (r *Message) Payload() []byte {
	if r.payload == nil {
		return nil
	}

	v := make([]byte, len(r.payload))
	copy(v, r.payload)

	return v
}

func (r *Message) MarshalBinary() ([]byte, error) {
	length := 8 + len(r.payload)
	if length > 0xFFFF {
		return nil, ErrInvalidPacketLength
	}

	v := make([]byte, length)
	v[0] = r.version
	v[1] = r.msgType
	binary.BigEndian.PutUint16(v[2:4], uint16(length))
	binary.BigEndian.PutUint32(v[4:8], r.xid)
	copy(v[8:], r.payload)

	return v, nil
}

func (r *Message) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return ErrInvalidPacketLength
	}

	r.version = data[0]
	r.msgType = data[1]
	r.length = binary.BigEndian.Uint16(data[2:4])
	if r.length < 8 || len(data) < int(r.length) {
		return ErrInvalidPacketLength
	}
	r.xid = binary.BigEndian.Uint32(data[4:8])
	r.payload = data[8:r.length]

	return nil
}

type Hello struct {
	Message
}

func NewHello() *Hello {
	return &Hello{Message: NewMessage(OFPT_HELLO, NewXID())}
}

type FeaturesRequest struct {
	Message
}

func NewFeaturesRequest() *FeaturesRequest {
	return &FeaturesRequest{Message: NewMessage(OFPT_FEATURES_REQUEST, NewXID())}
}

type BarrierRequest struct {
	Message
}

func NewBarrierRequest() *BarrierRequest {
	return &BarrierRequest{Message: NewMessage(OFPT_BARRIER_REQUEST, NewXID())}
}

// Echo is used for both ECHO_REQUEST and ECHO_REPLY.
type Echo struct {
	Message
	data []byte
}

func NewEchoRequest() *Echo {
	return &Echo{Message: NewMessage(OFPT_ECHO_REQUEST, NewXID())}
}

func NewEchoReply(xid uint32) *Echo {
	return &Echo{Message: NewMessage(OFPT_ECHO_REPLY, xid)}
}

func (r *Echo) Data() []byte {
	return r.data
}

func (r *Echo) SetData(data []byte) {
	r.data = data
}

func (r *Echo) MarshalBinary() ([]byte, error) {
	r.SetPayload(r.data)
	return r.Message.MarshalBinary()
}

func (r *Echo) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	r.data = r.Payload()

	return nil
}

type Error struct {
	Message
	Class uint16
	Code  uint16
	Data  []byte
}

func NewError(class, code uint16, data []byte) *Error {
	return &Error{
		Message: NewMessage(OFPT_ERROR, NewXID()),
		Class:   class,
		Code:    code,
		Data:    data,
	}
}

func (r *Error) MarshalBinary() ([]byte, error) {
	v := make([]byte, 4, 4+len(r.Data))
	binary.BigEndian.PutUint16(v[0:2], r.Class)
	binary.BigEndian.PutUint16(v[2:4], r.Code)
	v = append(v, r.Data...)

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

func (r *Error) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 4 {
		return ErrInvalidPacketLength
	}
	r.Class = binary.BigEndian.Uint16(payload[0:2])
	r.Code = binary.BigEndian.Uint16(payload[2:4])
	r.Data = payload[4:]

	return nil
}

type FeaturesReply struct {
	Message
	DPID         uint64
	NumBuffers   uint32
	NumTables    uint8
	AuxID        uint8
	Capabilities uint32
}

func (r *FeaturesReply) MarshalBinary() ([]byte, error) {
	v := make([]byte, 24)
	binary.BigEndian.PutUint64(v[0:8], r.DPID)
	binary.BigEndian.PutUint32(v[8:12], r.NumBuffers)
	v[12] = r.NumTables
	v[13] = r.AuxID
	// v[14:16] is padding
	binary.BigEndian.PutUint32(v[16:20], r.Capabilities)
	// v[20:24] is reserved

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

func (r *FeaturesReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 24 {
		return ErrInvalidPacketLength
	}
	r.DPID = binary.BigEndian.Uint64(payload[0:8])
	r.NumBuffers = binary.BigEndian.Uint32(payload[8:12])
	r.NumTables = payload[12]
	r.AuxID = payload[13]
	r.Capabilities = binary.BigEndian.Uint32(payload[16:20])

	return nil
}
