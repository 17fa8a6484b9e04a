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
	"net"
	"sync/atomic"
	"time"

	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/openflow"
	"github.com/nikiramandika/Tugas-adj/protocol"

	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

type Verdict int

const (
	Drop Verdict = iota + 1
	Flood
	Forward
)

func (r Verdict) String() string {
	switch r {
	case Drop:
		return "drop"
	case Flood:
		return "flood"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("Verdict(%d)", int(r))
	}
}

const (
	ReasonMalformed          = "malformed"
	ReasonLLDP               = "lldp"
	ReasonARP                = "arp"
	ReasonPolicy             = "policy"
	ReasonHairpin            = "hairpin"
	ReasonUnknownDestination = "unknown destination"
	ReasonLearned            = "learned"
	ReasonNoSession          = "no session"
)

const (
	baselinePriority = 1
	// DefaultFlowPriority sits above the baseline rules.
	DefaultFlowPriority = 2
)

// Decision is the outcome of one packet-in.
type Decision struct {
	Verdict Verdict
	// OutPort is only meaningful for Forward.
	OutPort     uint32
	Source      department.Department
	Destination department.Department
	Reason      string
	// Installed reports whether a flow rule for the frame is in place.
	Installed bool
}

func (r Decision) String() string {
	if r.Verdict == Forward {
		return fmt.Sprintf("%v to %v (%v -> %v, %v, installed=%v)", r.Verdict, r.OutPort, r.Source, r.Destination, r.Reason, r.Installed)
	}

	return fmt.Sprintf("%v (%v -> %v, %v)", r.Verdict, r.Source, r.Destination, r.Reason)
}

type Config struct {
	Classifier department.Classifier
	Policy     *department.Policy
	// Defaults maps a DPID to the department of hosts no rule matches.
	Defaults    map[uint64]department.Department
	Priority    uint16
	IdleTimeout uint16
	HardTimeout uint16
	// CacheExpiration is how long an installed flow rule is not sent again.
	CacheExpiration time.Duration
	// MaxFloodsPerSecond limits floods per switch. Zero disables the limit.
	MaxFloodsPerSecond uint
	// Auditor is optional.
	Auditor Auditor
}

// Engine is a learning switch that drops frames between departments the
// adjacency policy does not connect.
type Engine struct {
	conf     Config
	registry *Registry
}

func NewEngine(conf Config) *Engine {
	if conf.Classifier == nil {
		panic("nil classifier")
	}
	if conf.Policy == nil {
		panic("nil policy")
	}
	if conf.Priority <= baselinePriority {
		conf.Priority = DefaultFlowPriority
	}

	return &Engine{
		conf:     conf,
		registry: NewRegistry(conf.CacheExpiration, conf.MaxFloodsPerSecond),
	}
}

func (r *Engine) Registry() *Registry {
	return r.registry
}

func (r *Engine) Classifier() department.Classifier {
	return r.conf.Classifier
}

func (r *Engine) Policy() *department.Policy {
	return r.conf.Policy
}

// Handle processes one event. Events of one switch must be delivered in order.
func (r *Engine) Handle(ev network.Event) error {
	switch ev.Type {
	case network.EventSwitchConnected:
		_, err := r.OnConnect(ev.Switch)
		return err
	case network.EventSwitchDisconnected:
		r.OnDisconnect(ev.Switch)
		return nil
	case network.EventPacketIn:
		if ev.PacketIn == nil {
			return errors.New("PACKET_IN event without a packet")
		}
		s, ok := r.registry.SessionFor(ev.Switch.DPID())
		if !ok || s.Switch() != ev.Switch {
			logger.Warningf("ignoring PACKET_IN from a switch without a session: DPID=%v", ev.Switch.DPID())
			return nil
		}
		d := r.OnPacketIn(s, ev.PacketIn)
		logger.Debugf("DPID=%v, InPort=%v: %v", s.DPID(), ev.PacketIn.InPort, d)
		return nil
	default:
		return fmt.Errorf("unexpected event type: %v", ev.Type)
	}
}

// OnConnect starts a fresh session for sw and installs the baseline rules.
func (r *Engine) OnConnect(sw network.Switch) (*Session, error) {
	dept := r.conf.Defaults[sw.DPID()]
	s := r.registry.OnConnect(sw, dept)
	logger.Infof("switch connected: DPID=%v, default department=%v", sw.DPID(), dept)

	if err := installBaseline(sw); err != nil {
		return s, errors.Wrap(err, fmt.Sprintf("failed to install baseline rules on DPID %v", sw.DPID()))
	}

	return s, nil
}

func (r *Engine) OnDisconnect(sw network.Switch) {
	if !r.registry.OnDisconnect(sw) {
		logger.Debugf("no session to remove for DPID %v", sw.DPID())
		return
	}
	logger.Infof("switch disconnected: DPID=%v", sw.DPID())
}

func installBaseline(sw network.Switch) error {
	// Table-miss: everything else goes to the controller unbuffered.
	tableMiss := network.FlowRule{
		Priority: 0,
		Cookie:   openflow.TableMissCookie,
		Match:    openflow.NewMatch(),
		Actions:  []openflow.Action{openflow.NewOutput(openflow.OFPP_CONTROLLER)},
	}
	if err := sw.InstallFlowRule(tableMiss); err != nil {
		return errors.Wrap(err, "table-miss")
	}

	arp := openflow.NewMatch()
	arp.SetEtherType(uint16(layers.EthernetTypeARP))
	if err := sw.InstallFlowRule(network.FlowRule{
		Priority: baselinePriority,
		Match:    arp,
		Actions:  []openflow.Action{openflow.NewOutput(openflow.OFPP_FLOOD)},
	}); err != nil {
		return errors.Wrap(err, "ARP flood")
	}

	lldp := openflow.NewMatch()
	lldp.SetEtherType(uint16(layers.EthernetTypeLinkLayerDiscovery))
	if err := sw.InstallFlowRule(network.FlowRule{
		Priority: baselinePriority,
		Match:    lldp,
		Actions:  []openflow.Action{openflow.NewOutput(openflow.OFPP_CONTROLLER)},
	}); err != nil {
		return errors.Wrap(err, "LLDP to controller")
	}

	return nil
}

func (r *Engine) decide(s *Session, d Decision) Decision {
	switch d.Verdict {
	case Drop:
		atomic.AddUint64(&s.stats.Dropped, 1)
	case Flood:
		atomic.AddUint64(&s.stats.Flooded, 1)
	case Forward:
		atomic.AddUint64(&s.stats.Forwarded, 1)
	}
	decisionsTotal.WithLabelValues(d.Verdict.String(), d.Reason).Inc()

	return d
}

// OnPacketIn runs the forwarding pipeline for one frame of session s.
func (r *Engine) OnPacketIn(s *Session, p *network.PacketIn) Decision {
	atomic.AddUint64(&s.stats.PacketIn, 1)
	packetInTotal.Inc()

	frame, err := protocol.Decode(p.Data)
	if err != nil {
		logger.Debugf("dropping a malformed frame: DPID=%v, InPort=%v: %v", s.DPID(), p.InPort, err)
		return r.decide(s, Decision{Verdict: Drop, Reason: ReasonMalformed})
	}
	// Control frames bypass learning and classification.
	if frame.IsLLDP() {
		return r.decide(s, Decision{Verdict: Drop, Reason: ReasonLLDP})
	}
	if frame.IsARP() {
		r.flood(s, p)
		return r.decide(s, Decision{Verdict: Flood, Reason: ReasonARP})
	}

	s.table.Learn(frame.SrcMAC, p.InPort)

	src, dst, allowed := r.check(s, frame)
	if !allowed {
		r.violation(s, p, frame, src, dst)
		return r.decide(s, Decision{Verdict: Drop, Source: src, Destination: dst, Reason: ReasonPolicy})
	}

	port, ok := s.table.Lookup(frame.DstMAC)
	if !ok {
		r.flood(s, p)
		return r.decide(s, Decision{Verdict: Flood, Source: src, Destination: dst, Reason: ReasonUnknownDestination})
	}
	if port == p.InPort {
		return r.decide(s, Decision{Verdict: Drop, Source: src, Destination: dst, Reason: ReasonHairpin})
	}

	// Check the policy again right before the rule goes to the switch.
	if _, _, allowed := r.check(s, frame); !allowed {
		return r.decide(s, Decision{Verdict: Drop, Source: src, Destination: dst, Reason: ReasonPolicy})
	}
	installed := r.installFlow(s, frame, p.InPort, port)
	r.packetOut(s, p, openflow.NewOutput(port))

	return r.decide(s, Decision{
		Verdict:     Forward,
		OutPort:     port,
		Source:      src,
		Destination: dst,
		Reason:      ReasonLearned,
		Installed:   installed,
	})
}

// check classifies the frame and reports whether the policy permits it.
// Frames with an unknown side are always permitted.
func (r *Engine) check(s *Session, frame *protocol.Frame) (src, dst department.Department, allowed bool) {
	src, dst, ok := r.conf.Classifier.Classify(frame, s.dept)
	if !ok || src == department.None || dst == department.None {
		return src, dst, true
	}

	return src, dst, r.conf.Policy.IsAllowed(src, dst)
}

func (r *Engine) violation(s *Session, p *network.PacketIn, frame *protocol.Frame, src, dst department.Department) {
	atomic.AddUint64(&s.stats.Violations, 1)
	violationsTotal.WithLabelValues(string(src), string(dst)).Inc()

	v := Violation{
		Time:        time.Now(),
		DPID:        s.DPID(),
		InPort:      p.InPort,
		SrcMAC:      frame.SrcMAC.String(),
		DstMAC:      frame.DstMAC.String(),
		Source:      src,
		Destination: dst,
	}
	if frame.HasIP() {
		v.SrcAddr = frame.SrcIP.String()
		v.DstAddr = frame.DstIP.String()
	}
	logger.Infof("blocked by department policy: %v", v)

	if r.conf.Auditor != nil {
		r.conf.Auditor.Record(v)
	}
}

// ethTypeQinQ is the 802.1ad service tag.
const ethTypeQinQ = layers.EthernetType(0x88a8)

// flowMatch builds the match of a learned flow. It returns a nil match when
// the frame must be forwarded without a flow rule.
func (r *Engine) flowMatch(frame *protocol.Frame, inPort uint32) (*openflow.Match, error) {
	match := openflow.NewMatch()
	match.SetInPort(inPort)
	if err := match.SetDstMAC(frame.DstMAC); err != nil {
		return nil, err
	}
	if err := match.SetSrcMAC(frame.SrcMAC); err != nil {
		return nil, err
	}
	if r.conf.Classifier.Mode() != department.ModeIP {
		return match, nil
	}

	// Under IP classification every rule pins the ethertype. A rule without
	// it would carry IPv4 traffic between the same hosts past the policy.
	if frame.IsIPv4() {
		match.SetEtherType(uint16(layers.EthernetTypeIPv4))
		host := net.CIDRMask(32, 32)
		if err := match.SetSrcIP(net.IPNet{IP: frame.SrcIP, Mask: host}); err != nil {
			return nil, err
		}
		if err := match.SetDstIP(net.IPNet{IP: frame.DstIP, Mask: host}); err != nil {
			return nil, err
		}
		return match, nil
	}
	if !pinnableEtherType(frame.EtherType) {
		return nil, nil
	}
	match.SetEtherType(uint16(frame.EtherType))

	return match, nil
}

// pinnableEtherType reports whether a rule pinned to t cannot match untagged
// IPv4 frames.
func pinnableEtherType(t layers.EthernetType) bool {
	switch {
	case t < 0x0600:
		// 802.3 length field
		return false
	case t == layers.EthernetTypeIPv4:
		return false
	case t == layers.EthernetTypeDot1Q, t == ethTypeQinQ:
		return false
	}

	return true
}

func (r *Engine) installFlow(s *Session, frame *protocol.Frame, inPort, outPort uint32) bool {
	match, err := r.flowMatch(frame, inPort)
	if err != nil {
		logger.Errorf("failed to build a flow match: %v", err)
		return false
	}
	if match == nil {
		logger.Debugf("forwarding without a flow rule: DPID=%v, %v", s.DPID(), frame)
		return false
	}

	key := fmt.Sprintf("%v/%v", match, outPort)
	if s.cache.exist(key) {
		logger.Debugf("skipping a recently installed flow: DPID=%v, %v", s.DPID(), key)
		return true
	}

	rule := network.FlowRule{
		Priority:    r.conf.Priority,
		IdleTimeout: r.conf.IdleTimeout,
		HardTimeout: r.conf.HardTimeout,
		Match:       match,
		Actions:     []openflow.Action{openflow.NewOutput(outPort)},
	}
	if err := s.sw.InstallFlowRule(rule); err != nil {
		flowInstallsTotal.WithLabelValues("error").Inc()
		logger.Errorf("failed to install a flow rule on DPID %v: %v", s.DPID(), err)
		return false
	}
	s.cache.add(key)
	atomic.AddUint64(&s.stats.FlowsInstalled, 1)
	flowInstallsTotal.WithLabelValues("ok").Inc()
	logger.Debugf("installed a new flow rule: DPID=%v, %v", s.DPID(), rule)

	return true
}

func (r *Engine) flood(s *Session, p *network.PacketIn) {
	if !s.storm.allow() {
		floodsSuppressedTotal.Inc()
		logger.Infof("too many floods on DPID %v: flood is denied to avoid the broadcast storm!", s.DPID())
		return
	}
	r.packetOut(s, p, openflow.NewOutput(openflow.OFPP_FLOOD))
}

func (r *Engine) packetOut(s *Session, p *network.PacketIn, action openflow.Action) {
	out := network.PacketOut{
		InPort:   p.InPort,
		BufferID: p.BufferID,
		Actions:  []openflow.Action{action},
		Data:     p.Data,
	}
	if err := s.sw.SendPacketOut(out); err != nil {
		logger.Errorf("failed to send PACKET_OUT to DPID %v: %v", s.DPID(), err)
	}
}
