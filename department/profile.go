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
	"sort"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	logger = logging.MustGetLogger("department")
)

const (
	ProfileMAC    = "mac"
	ProfileIP     = "ip"
	ProfileCustom = "custom"
)

// Profile is one complete deployment: how hosts are classified, which
// departments may talk, and the default department of each switch.
type Profile struct {
	Name        string                      `json:"name"`
	Mode        Mode                        `json:"mode"`
	MACRules    []Rule                      `json:"mac_rules,omitempty"`
	SubnetRules []Rule                      `json:"ip_rules,omitempty"`
	Adjacency   map[Department][]Department `json:"adjacency"`
	Switches    map[uint64]Department       `json:"switches,omitempty"`
}

// Builtin returns one of the predefined profiles.
func Builtin(name string) (*Profile, error) {
	switch name {
	case ProfileMAC:
		return &Profile{
			Name: ProfileMAC,
			Mode: ModeMAC,
			MACRules: []Rule{
				{Prefix: "00:00:00:00:01:*", Department: "A"},
				{Prefix: "00:00:00:00:02:*", Department: "B"},
				{Prefix: "00:00:00:00:03:*", Department: "C"},
			},
			Adjacency: map[Department][]Department{
				"A": {"A", "B"},
				"B": {"A", "B", "C"},
				"C": {"B", "C"},
			},
			Switches: map[uint64]Department{1: "A", 2: "B", 3: "C"},
		}, nil
	case ProfileIP:
		return &Profile{
			Name: ProfileIP,
			Mode: ModeIP,
			SubnetRules: []Rule{
				{Prefix: "10.0.1.0/24", Department: "A"},
				{Prefix: "10.0.2.0/24", Department: "B"},
				{Prefix: "10.0.3.0/24", Department: "C"},
			},
			Adjacency: map[Department][]Department{
				"A": {"B"},
				"B": {"A", "C"},
				"C": {"B"},
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown department profile: %v", name)
	}
}

// LoadProfile reads the profile selected by the "profile" key of config. A
// nil config selects the MAC profile.
func LoadProfile(config *viper.Viper) (*Profile, error) {
	if config == nil {
		return Builtin(ProfileMAC)
	}

	name := strings.ToLower(strings.TrimSpace(config.GetString("profile")))
	if name == "" {
		name = ProfileMAC
	}
	if name != ProfileCustom {
		return Builtin(name)
	}

	p := &Profile{
		Name:      ProfileCustom,
		Mode:      Mode(strings.ToLower(config.GetString("mode"))),
		Adjacency: make(map[Department][]Department),
		Switches:  make(map[uint64]Department),
	}
	if err := config.UnmarshalKey("mac_rules", &p.MACRules); err != nil {
		return nil, errors.Wrap(err, "failed to decode departments.mac_rules")
	}
	if err := config.UnmarshalKey("ip_rules", &p.SubnetRules); err != nil {
		return nil, errors.Wrap(err, "failed to decode departments.ip_rules")
	}

	// Map keys come back lower-cased from the config reader, so restore the
	// spelling used in the rules and adjacency lists.
	adjacency := config.GetStringMapStringSlice("adjacency")
	names := p.declaredNames()
	for _, dsts := range adjacency {
		for _, dst := range dsts {
			d := Department(strings.TrimSpace(dst))
			names[strings.ToLower(string(d))] = d
		}
	}
	for src, dsts := range adjacency {
		key := canonical(names, src)
		for _, dst := range dsts {
			p.Adjacency[key] = append(p.Adjacency[key], Department(strings.TrimSpace(dst)))
		}
	}
	for dpid, dept := range config.GetStringMapString("switches") {
		id, err := strconv.ParseUint(strings.TrimSpace(dpid), 0, 64)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("invalid switch DPID: %v", dpid))
		}
		p.Switches[id] = Department(strings.TrimSpace(dept))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *Profile) declaredNames() map[string]Department {
	names := make(map[string]Department)
	for _, rule := range append(append([]Rule{}, r.MACRules...), r.SubnetRules...) {
		names[strings.ToLower(string(rule.Department))] = rule.Department
	}

	return names
}

func canonical(names map[string]Department, key string) Department {
	if d, ok := names[strings.ToLower(key)]; ok {
		return d
	}

	return Department(key)
}

func (r *Profile) Validate() error {
	switch r.Mode {
	case ModeMAC:
		if len(r.MACRules) == 0 && len(r.Switches) == 0 {
			return errors.New("MAC mode requires mac_rules or switch defaults")
		}
	case ModeIP:
		if len(r.SubnetRules) == 0 {
			return errors.New("IP mode requires ip_rules")
		}
	default:
		return fmt.Errorf("invalid department mode: %q", r.Mode)
	}
	if _, err := NewMACRules(r.MACRules); err != nil {
		return err
	}
	if _, err := NewSubnetRules(r.SubnetRules); err != nil {
		return err
	}

	return nil
}

// Classifier returns the classifier for the profile's mode.
func (r *Profile) Classifier() (Classifier, error) {
	switch r.Mode {
	case ModeMAC:
		rules, err := NewMACRules(r.MACRules)
		if err != nil {
			return nil, err
		}
		return NewMACClassifier(rules), nil
	case ModeIP:
		rules, err := NewSubnetRules(r.SubnetRules)
		if err != nil {
			return nil, err
		}
		return NewIPClassifier(rules), nil
	default:
		return nil, fmt.Errorf("invalid department mode: %q", r.Mode)
	}
}

func (r *Profile) Policy() *Policy {
	return NewPolicy(r.Adjacency)
}

// DefaultDepartment returns None for switches without a default.
func (r *Profile) DefaultDepartment(dpid uint64) Department {
	return r.Switches[dpid]
}

// Log writes the profile and its connection matrix to the log.
func (r *Profile) Log() {
	logger.Infof("department profile: %v (mode=%v)", r.Name, r.Mode)
	rules := r.MACRules
	if r.Mode == ModeIP {
		rules = r.SubnetRules
	}
	for _, rule := range rules {
		logger.Infof("department rule: %v -> %v", rule.Prefix, rule.Department)
	}

	dpids := make([]uint64, 0, len(r.Switches))
	for dpid := range r.Switches {
		dpids = append(dpids, dpid)
	}
	sort.Slice(dpids, func(i, j int) bool { return dpids[i] < dpids[j] })
	for _, dpid := range dpids {
		logger.Infof("switch default: dpid=%v -> %v", dpid, r.Switches[dpid])
	}

	for _, line := range r.Policy().Lines() {
		logger.Infof("connection rule: %v", line)
	}
}
