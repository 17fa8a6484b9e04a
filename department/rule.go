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
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Rule maps an address prefix to a department. Prefix is a colon-separated
// MAC prefix such as "00:00:00:00:01:*" or a CIDR such as "10.0.1.0/24".
type Rule struct {
	Prefix     string     `mapstructure:"prefix" json:"prefix"`
	Department Department `mapstructure:"department" json:"department"`
}

type macRule struct {
	prefix     []byte
	department Department
}

// MACRules classifies MAC addresses by their leading octets.
type MACRules struct {
	rules []macRule
}

// ParseMACPrefix accepts "00:00:00:00:01:*", "00:00:00:00:01:" and full addresses.
func ParseMACPrefix(s string) ([]byte, error) {
	v := strings.TrimSpace(strings.ToLower(s))
	v = strings.TrimSuffix(v, "*")
	v = strings.TrimSuffix(v, ":")
	if len(v) == 0 {
		return nil, fmt.Errorf("empty MAC prefix: %q", s)
	}

	octets := strings.Split(v, ":")
	if len(octets) > 6 {
		return nil, fmt.Errorf("too long MAC prefix: %q", s)
	}
	prefix := make([]byte, len(octets))
	for i, o := range octets {
		if len(o) != 2 {
			return nil, fmt.Errorf("invalid MAC prefix: %q", s)
		}
		b, err := hex.DecodeString(o)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("invalid MAC prefix: %q", s))
		}
		prefix[i] = b[0]
	}

	return prefix, nil
}

// NewMACRules compiles rules. The most specific prefix wins and ties go to
// the rule declared first.
func NewMACRules(rules []Rule) (*MACRules, error) {
	v := &MACRules{}
	for _, r := range rules {
		if r.Department == None {
			return nil, fmt.Errorf("missing department for MAC prefix %q", r.Prefix)
		}
		prefix, err := ParseMACPrefix(r.Prefix)
		if err != nil {
			return nil, err
		}
		v.rules = append(v.rules, macRule{prefix: prefix, department: r.Department})
	}
	sort.SliceStable(v.rules, func(i, j int) bool {
		return len(v.rules[i].prefix) > len(v.rules[j].prefix)
	})

	return v, nil
}

func (r *MACRules) Match(mac net.HardwareAddr) (Department, bool) {
	for _, rule := range r.rules {
		if len(mac) >= len(rule.prefix) && string(mac[:len(rule.prefix)]) == string(rule.prefix) {
			return rule.department, true
		}
	}

	return None, false
}

func (r *MACRules) Len() int {
	return len(r.rules)
}

type subnetRule struct {
	network    *net.IPNet
	department Department
}

// SubnetRules classifies IPv4 and IPv6 addresses by network prefix.
type SubnetRules struct {
	rules []subnetRule
}

// NewSubnetRules compiles rules. The longest prefix wins and ties go to the
// rule declared first.
func NewSubnetRules(rules []Rule) (*SubnetRules, error) {
	v := &SubnetRules{}
	for _, r := range rules {
		if r.Department == None {
			return nil, fmt.Errorf("missing department for subnet %q", r.Prefix)
		}
		_, network, err := net.ParseCIDR(strings.TrimSpace(r.Prefix))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("invalid subnet prefix: %q", r.Prefix))
		}
		v.rules = append(v.rules, subnetRule{network: network, department: r.Department})
	}
	sort.SliceStable(v.rules, func(i, j int) bool {
		a, _ := v.rules[i].network.Mask.Size()
		b, _ := v.rules[j].network.Mask.Size()
		return a > b
	})

	return v, nil
}

func (r *SubnetRules) Match(ip net.IP) (Department, bool) {
	if ip == nil {
		return None, false
	}
	for _, rule := range r.rules {
		if rule.network.Contains(ip) {
			return rule.department, true
		}
	}

	return None, false
}

func (r *SubnetRules) Len() int {
	return len(r.rules)
}
