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
	"sync"
	"testing"
	"time"

	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/network"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

type fakeSwitch struct {
	mutex sync.Mutex
	dpid  uint64
	err   error
	flows []network.FlowRule
	outs  []network.PacketOut
}

func newFakeSwitch(dpid uint64) *fakeSwitch {
	return &fakeSwitch{dpid: dpid}
}

func (r *fakeSwitch) DPID() uint64 {
	return r.dpid
}

func (r *fakeSwitch) InstallFlowRule(rule network.FlowRule) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.err != nil {
		return r.err
	}
	r.flows = append(r.flows, rule)
	return nil
}

func (r *fakeSwitch) SendPacketOut(p network.PacketOut) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.outs = append(r.outs, p)
	return nil
}

func (r *fakeSwitch) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.flows = nil
	r.outs = nil
}

type recordingAuditor struct {
	mutex      sync.Mutex
	violations []Violation
}

func (r *recordingAuditor) Record(v Violation) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.violations = append(r.violations, v)
}

func mustMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

var (
	macA  = mustMAC("00:00:00:00:01:01")
	macA2 = mustMAC("00:00:00:00:01:02")
	macB  = mustMAC("00:00:00:00:02:01")
	macC  = mustMAC("00:00:00:00:03:01")
	// Matches no rule of the built-in profiles.
	macX = mustMAC("00:00:00:00:09:01")
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		t.Fatalf("failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}

func ipv4Frame(t *testing.T, src, dst net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP.To4(),
		DstIP:    dstIP.To4(),
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 6000}
	udp.SetNetworkLayerForChecksum(ip)

	return serialize(t, eth, ip, udp, gopacket.Payload([]byte("ping")))
}

func ipv6Frame(t *testing.T, src, dst net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      srcIP,
		DstIP:      dstIP,
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 6000}
	udp.SetNetworkLayerForChecksum(ip)

	return serialize(t, eth, ip, udp, gopacket.Payload([]byte("ping")))
}

// vlanFrame returns an 802.1Q tagged IPv4 frame.
func vlanFrame(t *testing.T, src, dst net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeDot1Q}
	tag := &layers.Dot1Q{VLANIdentifier: 10, Type: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP.To4(),
		DstIP:    dstIP.To4(),
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 6000}
	udp.SetNetworkLayerForChecksum(ip)

	return serialize(t, eth, tag, ip, udp, gopacket.Payload([]byte("ping")))
}

// requireEtherTypePinned fails unless every flow pins the ethertype and only
// IPv4 flows also pin both addresses.
func requireEtherTypePinned(t *testing.T, flows []network.FlowRule) {
	t.Helper()

	for _, f := range flows {
		ok, ethType := f.Match.EtherType()
		if !ok {
			t.Fatalf("Unexpected flow without eth_type: %v", f.Match)
		}
		if ethType != uint16(layers.EthernetTypeIPv4) {
			continue
		}
		if ok, _ := f.Match.SrcIP(); !ok {
			t.Fatalf("Unexpected IPv4 flow without ipv4_src: %v", f.Match)
		}
		if ok, _ := f.Match.DstIP(); !ok {
			t.Fatalf("Unexpected IPv4 flow without ipv4_dst: %v", f.Match)
		}
	}
}

// frame returns an IPv4 frame between two hosts whose addresses do not matter.
func frame(t *testing.T, src, dst net.HardwareAddr) []byte {
	return ipv4Frame(t, src, dst, net.IPv4(192, 168, 0, 1), net.IPv4(192, 168, 0, 2))
}

func arpFrame(t *testing.T, src net.HardwareAddr) []byte {
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   src,
		SourceProtAddress: []byte{10, 0, 1, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 2, 1},
	}

	return serialize(t, eth, arp)
}

func lldpFrame(t *testing.T, src net.HardwareAddr) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       mustMAC("01:80:c2:00:00:0e"),
		EthernetType: layers.EthernetTypeLinkLayerDiscovery,
	}

	return serialize(t, eth, gopacket.Payload(make([]byte, 32)))
}

func newTestEngine(t *testing.T, profile string, auditor Auditor) *Engine {
	p, err := department.Builtin(profile)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	c, err := p.Classifier()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	conf := Config{
		Classifier:      c,
		Policy:          p.Policy(),
		Defaults:        p.Switches,
		CacheExpiration: time.Minute,
	}
	if auditor != nil {
		conf.Auditor = auditor
	}

	return NewEngine(conf)
}

func connect(t *testing.T, e *Engine, dpid uint64) (*fakeSwitch, *Session) {
	sw := newFakeSwitch(dpid)
	s, err := e.OnConnect(sw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sw.reset()

	return sw, s
}

func packetIn(port uint32, data []byte) *network.PacketIn {
	return &network.PacketIn{InPort: port, BufferID: 0xFFFFFFFF, Data: data}
}
