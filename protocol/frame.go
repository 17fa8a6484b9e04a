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

package protocol

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	ErrShortFrame    = errors.New("frame is shorter than an Ethernet header")
	ErrInvalidSource = errors.New("source MAC address is a group address")
)

// Frame is the part of an Ethernet frame the controller cares about.
type Frame struct {
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	EtherType layers.EthernetType
	// SrcIP and DstIP are nil unless the frame carries IPv4 or IPv6.
	SrcIP net.IP
	DstIP net.IP
	// Data is the raw frame.
	Data []byte
}

// Decode parses an Ethernet frame. Upper layers the controller does not
// inspect are ignored, but a truncated ARP or IP header is an error.
func Decode(data []byte) (*Frame, error) {
	if len(data) < 14 {
		return nil, ErrShortFrame
	}

	var (
		eth     layers.Ethernet
		arp     layers.ARP
		ip4     layers.IPv4
		ip6     layers.IPv6
		decoded []gopacket.LayerType
	)
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth, &arp, &ip4, &ip6)
	parser.IgnoreUnsupported = true
	if err := parser.DecodeLayers(data, &decoded); err != nil {
		return nil, fmt.Errorf("undecodable frame: %v", err)
	}

	frame := &Frame{
		SrcMAC:    eth.SrcMAC,
		DstMAC:    eth.DstMAC,
		EtherType: eth.EthernetType,
		Data:      data,
	}
	if IsGroupAddress(frame.SrcMAC) {
		return nil, ErrInvalidSource
	}
	for _, t := range decoded {
		switch t {
		case layers.LayerTypeIPv4:
			frame.SrcIP, frame.DstIP = ip4.SrcIP, ip4.DstIP
		case layers.LayerTypeIPv6:
			frame.SrcIP, frame.DstIP = ip6.SrcIP, ip6.DstIP
		}
	}

	return frame, nil
}

// IsGroupAddress reports whether mac is a broadcast or multicast address.
func IsGroupAddress(mac net.HardwareAddr) bool {
	return len(mac) > 0 && mac[0]&0x01 == 1
}

func (r *Frame) IsARP() bool {
	return r.EtherType == layers.EthernetTypeARP
}

func (r *Frame) IsLLDP() bool {
	return r.EtherType == layers.EthernetTypeLinkLayerDiscovery
}

func (r *Frame) IsIPv4() bool {
	return r.EtherType == layers.EthernetTypeIPv4 && r.SrcIP.To4() != nil
}

func (r *Frame) HasIP() bool {
	return r.SrcIP != nil && r.DstIP != nil
}

func (r *Frame) String() string {
	if r.HasIP() {
		return fmt.Sprintf("%v -> %v (%v, %v -> %v)", r.SrcMAC, r.DstMAC, r.EtherType, r.SrcIP, r.DstIP)
	}

	return fmt.Sprintf("%v -> %v (%v)", r.SrcMAC, r.DstMAC, r.EtherType)
}
