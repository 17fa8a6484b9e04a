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
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		t.Fatalf("failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}

var (
	hostA, _ = net.ParseMAC("00:00:00:00:01:01")
	hostB, _ = net.ParseMAC("00:00:00:00:02:01")
)

func TestDecodeIPv4(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: hostA, DstMAC: hostB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 1, 1).To4(),
		DstIP:    net.IPv4(10, 0, 2, 1).To4(),
	}
	udp := &layers.UDP{SrcPort: 1000, DstPort: 2000}
	udp.SetNetworkLayerForChecksum(ip)

	frame, err := Decode(serialize(t, eth, ip, udp, gopacket.Payload([]byte("hello"))))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if frame.SrcMAC.String() != hostA.String() || frame.DstMAC.String() != hostB.String() {
		t.Fatalf("Unexpected MAC addresses: %v", frame)
	}
	if !frame.IsIPv4() || !frame.HasIP() {
		t.Fatalf("Expected an IPv4 frame: %v", frame)
	}
	if !frame.SrcIP.Equal(net.IPv4(10, 0, 1, 1)) || !frame.DstIP.Equal(net.IPv4(10, 0, 2, 1)) {
		t.Fatalf("Unexpected IP addresses: src=%v, dst=%v", frame.SrcIP, frame.DstIP)
	}
}

func TestDecodeARP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: hostA, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   hostA,
		SourceProtAddress: net.IPv4(10, 0, 1, 1).To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    net.IPv4(10, 0, 1, 2).To4(),
	}

	frame, err := Decode(serialize(t, eth, arp))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !frame.IsARP() || frame.HasIP() {
		t.Fatalf("Expected an ARP frame without IP addresses: %v", frame)
	}
}

func TestDecodeLLDP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: hostA, DstMAC: net.HardwareAddr{0x01, 0x80, 0xc2, 0, 0, 0x0e}, EthernetType: layers.EthernetTypeLinkLayerDiscovery}
	frame, err := Decode(serialize(t, eth, gopacket.Payload(make([]byte, 32))))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !frame.IsLLDP() {
		t.Fatalf("Expected an LLDP frame: %v", frame)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err != ErrShortFrame {
		t.Fatalf("Unexpected error: expected=%v, got=%v", ErrShortFrame, err)
	}

	// IPv4 ethertype with a truncated IP header.
	data := append([]byte{}, hostB...)
	data = append(data, hostA...)
	data = append(data, 0x08, 0x00, 0x45, 0x00)
	if _, err := Decode(data); err == nil {
		t.Fatal("Expected error for a truncated IPv4 header")
	}

	eth := &layers.Ethernet{SrcMAC: layers.EthernetBroadcast, DstMAC: hostB, EthernetType: layers.EthernetTypeLinkLayerDiscovery}
	if _, err := Decode(serialize(t, eth, gopacket.Payload(make([]byte, 46)))); err != ErrInvalidSource {
		t.Fatalf("Unexpected error: expected=%v, got=%v", ErrInvalidSource, err)
	}
}

func TestIsGroupAddress(t *testing.T) {
	tests := []struct {
		mac      string
		expected bool
	}{
		{"ff:ff:ff:ff:ff:ff", true},
		{"01:00:5e:00:00:01", true},
		{"33:33:00:00:00:01", true},
		{"00:00:00:00:01:01", false},
	}

	for _, v := range tests {
		mac, _ := net.ParseMAC(v.mac)
		if got := IsGroupAddress(mac); got != v.expected {
			t.Fatalf("Unexpected result for %v: expected=%v, got=%v", v.mac, v.expected, got)
		}
	}
}
