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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	fieldInPort = 1 << iota
	fieldEthDst
	fieldEthSrc
	fieldEthType
	fieldIPv4Src
	fieldIPv4Dst
)

// Match is an OXM flow match. A zero value matches everything.
type Match struct {
	fields  uint
	inPort  uint32
	ethDst  net.HardwareAddr
	ethSrc  net.HardwareAddr
	ethType uint16
	ipv4Src net.IPNet
	ipv4Dst net.IPNet
}

func NewMatch() *Match {
	return &Match{}
}

func (r *Match) has(f uint) bool {
	return r.fields&f != 0
}

func (r *Match) SetInPort(port uint32) {
	r.inPort = port
	r.fields |= fieldInPort
}

func (r *Match) InPort() (ok bool, port uint32) {
	return r.has(fieldInPort), r.inPort
}

func (r *Match) SetDstMAC(mac net.HardwareAddr) error {
	if len(mac) != 6 {
		return ErrInvalidMACAddress
	}
	r.ethDst = append(net.HardwareAddr(nil), mac...)
	r.fields |= fieldEthDst

	return nil
}

func (r *Match) DstMAC() (ok bool, mac net.HardwareAddr) {
	return r.has(fieldEthDst), r.ethDst
}

func (r *Match) SetSrcMAC(mac net.HardwareAddr) error {
	if len(mac) != 6 {
		return ErrInvalidMACAddress
	}
	r.ethSrc = append(net.HardwareAddr(nil), mac...)
	r.fields |= fieldEthSrc

	return nil
}

func (r *Match) SrcMAC() (ok bool, mac net.HardwareAddr) {
	return r.has(fieldEthSrc), r.ethSrc
}

func (r *Match) SetEtherType(t uint16) {
	r.ethType = t
	r.fields |= fieldEthType
}

func (r *Match) EtherType() (ok bool, t uint16) {
	return r.has(fieldEthType), r.ethType
}

func ipv4Net(n net.IPNet) (net.IPNet, error) {
	ip := n.IP.To4()
	if ip == nil {
		return net.IPNet{}, ErrInvalidIPAddress
	}
	mask := n.Mask
	if mask == nil {
		mask = net.CIDRMask(32, 32)
	}
	if len(mask) == 16 {
		mask = mask[12:]
	}
	if ones, bits := mask.Size(); bits != 32 || ones == 0 {
		return net.IPNet{}, fmt.Errorf("invalid IPv4 mask: %v", n.Mask)
	}

	return net.IPNet{IP: ip.Mask(mask), Mask: mask}, nil
}

// SetSrcIP matches the IPv4 source network. It requires the IPv4 ethertype.
func (r *Match) SetSrcIP(n net.IPNet) error {
	v, err := ipv4Net(n)
	if err != nil {
		return err
	}
	r.ipv4Src = v
	r.fields |= fieldIPv4Src

	return nil
}

func (r *Match) SrcIP() (ok bool, n net.IPNet) {
	return r.has(fieldIPv4Src), r.ipv4Src
}

// SetDstIP matches the IPv4 destination network. It requires the IPv4 ethertype.
func (r *Match) SetDstIP(n net.IPNet) error {
	v, err := ipv4Net(n)
	if err != nil {
		return err
	}
	r.ipv4Dst = v
	r.fields |= fieldIPv4Dst

	return nil
}

func (r *Match) DstIP() (ok bool, n net.IPNet) {
	return r.has(fieldIPv4Dst), r.ipv4Dst
}

func oxmHeader(field uint8, hasMask bool, length uint8) []byte {
	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], OFPXMC_OPENFLOW_BASIC)
	v[2] = field << 1
	if hasMask {
		v[2] |= 1
	}
	v[3] = length

	return v
}

func marshalIPv4(field uint8, n net.IPNet) []byte {
	ones, _ := n.Mask.Size()
	if ones == 32 {
		return append(oxmHeader(field, false, 4), n.IP.To4()...)
	}

	v := append(oxmHeader(field, true, 8), n.IP.To4()...)
	return append(v, n.Mask...)
}

func (r *Match) MarshalBinary() ([]byte, error) {
	if (r.has(fieldIPv4Src) || r.has(fieldIPv4Dst)) && (!r.has(fieldEthType) || r.ethType != 0x0800) {
		return nil, errors.New("IPv4 match fields require the IPv4 ethertype")
	}

	var fields []byte
	if r.has(fieldInPort) {
		v := oxmHeader(OFPXMT_OFB_IN_PORT, false, 4)
		v = append(v, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(v[4:8], r.inPort)
		fields = append(fields, v...)
	}
	if r.has(fieldEthDst) {
		fields = append(fields, oxmHeader(OFPXMT_OFB_ETH_DST, false, 6)...)
		fields = append(fields, r.ethDst...)
	}
	if r.has(fieldEthSrc) {
		fields = append(fields, oxmHeader(OFPXMT_OFB_ETH_SRC, false, 6)...)
		fields = append(fields, r.ethSrc...)
	}
	if r.has(fieldEthType) {
		v := oxmHeader(OFPXMT_OFB_ETH_TYPE, false, 2)
		v = append(v, 0, 0)
		binary.BigEndian.PutUint16(v[4:6], r.ethType)
		fields = append(fields, v...)
	}
	if r.has(fieldIPv4Src) {
		fields = append(fields, marshalIPv4(OFPXMT_OFB_IPV4_SRC, r.ipv4Src)...)
	}
	if r.has(fieldIPv4Dst) {
		fields = append(fields, marshalIPv4(OFPXMT_OFB_IPV4_DST, r.ipv4Dst)...)
	}

	// ofp_match header + OXM fields, then padded to a multiple of 8.
	length := 4 + len(fields)
	v := make([]byte, 4, length+8)
	binary.BigEndian.PutUint16(v[0:2], OFPMT_OXM)
	binary.BigEndian.PutUint16(v[2:4], uint16(length))
	v = append(v, fields...)
	if rem := length % 8; rem > 0 {
		v = append(v, bytes.Repeat([]byte{0}, 8-rem)...)
	}

	return v, nil
}

// MatchLength returns the length of the ofp_match in data including its padding.
func MatchLength(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, ErrInvalidPacketLength
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length < 4 {
		return 0, ErrInvalidPacketLength
	}
	if rem := length % 8; rem > 0 {
		length += 8 - rem
	}
	if len(data) < length {
		return 0, ErrInvalidPacketLength
	}

	return length, nil
}

func (r *Match) UnmarshalBinary(data []byte) error {
	if _, err := MatchLength(data); err != nil {
		return err
	}
	if binary.BigEndian.Uint16(data[0:2]) != OFPMT_OXM {
		return ErrUnsupportedMatch
	}

	*r = Match{}
	buf := data[4:binary.BigEndian.Uint16(data[2:4])]
	for len(buf) >= 4 {
		class := binary.BigEndian.Uint16(buf[0:2])
		field := buf[2] >> 1
		hasMask := buf[2]&1 == 1
		length := int(buf[3])
		if len(buf) < 4+length {
			return ErrInvalidPacketLength
		}
		value := buf[4 : 4+length]
		buf = buf[4+length:]

		// Skip the experimenter classes and fields we do not use.
		if class != OFPXMC_OPENFLOW_BASIC {
			continue
		}
		if err := r.setField(field, hasMask, value); err != nil {
			return err
		}
	}

	return nil
}

func (r *Match) setField(field uint8, hasMask bool, value []byte) error {
	switch field {
	case OFPXMT_OFB_IN_PORT:
		if len(value) != 4 {
			return ErrInvalidPacketLength
		}
		r.SetInPort(binary.BigEndian.Uint32(value))
	case OFPXMT_OFB_ETH_DST:
		if len(value) < 6 {
			return ErrInvalidPacketLength
		}
		return r.SetDstMAC(value[0:6])
	case OFPXMT_OFB_ETH_SRC:
		if len(value) < 6 {
			return ErrInvalidPacketLength
		}
		return r.SetSrcMAC(value[0:6])
	case OFPXMT_OFB_ETH_TYPE:
		if len(value) != 2 {
			return ErrInvalidPacketLength
		}
		r.SetEtherType(binary.BigEndian.Uint16(value))
	case OFPXMT_OFB_IPV4_SRC, OFPXMT_OFB_IPV4_DST:
		n, err := unmarshalIPv4(hasMask, value)
		if err != nil {
			return err
		}
		if field == OFPXMT_OFB_IPV4_SRC {
			return r.SetSrcIP(n)
		}
		return r.SetDstIP(n)
	default:
		// Do nothing
	}

	return nil
}

func unmarshalIPv4(hasMask bool, value []byte) (net.IPNet, error) {
	if hasMask {
		if len(value) != 8 {
			return net.IPNet{}, ErrInvalidPacketLength
		}
		return net.IPNet{IP: net.IP(value[0:4]), Mask: net.IPMask(value[4:8])}, nil
	}
	if len(value) != 4 {
		return net.IPNet{}, ErrInvalidPacketLength
	}

	return net.IPNet{IP: net.IP(value[0:4]), Mask: net.CIDRMask(32, 32)}, nil
}

func (r *Match) String() string {
	var v []string
	if r.has(fieldInPort) {
		v = append(v, fmt.Sprintf("in_port=%v", r.inPort))
	}
	if r.has(fieldEthDst) {
		v = append(v, fmt.Sprintf("eth_dst=%v", r.ethDst))
	}
	if r.has(fieldEthSrc) {
		v = append(v, fmt.Sprintf("eth_src=%v", r.ethSrc))
	}
	if r.has(fieldEthType) {
		v = append(v, fmt.Sprintf("eth_type=0x%04x", r.ethType))
	}
	if r.has(fieldIPv4Src) {
		v = append(v, fmt.Sprintf("ipv4_src=%v", r.ipv4Src.String()))
	}
	if r.has(fieldIPv4Dst) {
		v = append(v, fmt.Sprintf("ipv4_dst=%v", r.ipv4Dst.String()))
	}
	if len(v) == 0 {
		return "*"
	}

	return strings.Join(v, ",")
}
