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

package department

import (
	"fmt"
	"net"

	"github.com/nikiramandika/Tugas-adj/protocol"
)

// Mode selects the address family that identifies a department.
type Mode string

const (
	ModeMAC Mode = "mac"
	ModeIP  Mode = "ip"
)

type Classifier interface {
	Mode() Mode
	// Classify returns the departments of the frame's source and destination.
	// A side that matches no rule gets fallback, except a group destination
	// which gets None. ok is false when the frame does not carry the address
	// family this classifier uses.
	Classify(frame *protocol.Frame, fallback Department) (src, dst Department, ok bool)
	// Address classifies a single textual address without any fallback.
	Address(addr string) (Department, error)
}

type MACClassifier struct {
	rules *MACRules
}

func NewMACClassifier(rules *MACRules) *MACClassifier {
	if rules == nil {
		panic("nil MAC rules")
	}

	return &MACClassifier{rules: rules}
}

func (r *MACClassifier) Mode() Mode {
	return ModeMAC
}

func (r *MACClassifier) Classify(frame *protocol.Frame, fallback Department) (src, dst Department, ok bool) {
	if len(frame.SrcMAC) == 0 || len(frame.DstMAC) == 0 {
		return None, None, false
	}

	src, matched := r.rules.Match(frame.SrcMAC)
	if !matched {
		src = fallback
	}
	dst, matched = r.rules.Match(frame.DstMAC)
	if !matched {
		dst = fallback
		if protocol.IsGroupAddress(frame.DstMAC) {
			dst = None
		}
	}

	return src, dst, true
}

func (r *MACClassifier) Address(addr string) (Department, error) {
	mac, err := net.ParseMAC(addr)
	if err != nil {
		return None, fmt.Errorf("invalid MAC address: %v", addr)
	}
	d, _ := r.rules.Match(mac)

	return d, nil
}

type IPClassifier struct {
	rules *SubnetRules
}

func NewIPClassifier(rules *SubnetRules) *IPClassifier {
	if rules == nil {
		panic("nil subnet rules")
	}

	return &IPClassifier{rules: rules}
}

func (r *IPClassifier) Mode() Mode {
	return ModeIP
}

func isGroupIP(ip net.IP) bool {
	return ip.IsMulticast() || ip.Equal(net.IPv4bcast)
}

func (r *IPClassifier) Classify(frame *protocol.Frame, fallback Department) (src, dst Department, ok bool) {
	if !frame.HasIP() {
		return None, None, false
	}

	src, matched := r.rules.Match(frame.SrcIP)
	if !matched {
		src = fallback
	}
	dst, matched = r.rules.Match(frame.DstIP)
	if !matched {
		dst = fallback
		if protocol.IsGroupAddress(frame.DstMAC) || isGroupIP(frame.DstIP) {
			dst = None
		}
	}

	return src, dst, true
}

func (r *IPClassifier) Address(addr string) (Department, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return None, fmt.Errorf("invalid IP address: %v", addr)
	}
	d, _ := r.rules.Match(ip)

	return d, nil
}
