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
	"bytes"
	"net"
	"testing"

	"github.com/nikiramandika/Tugas-adj/protocol"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, src, dst string) *protocol.Frame {
	s, err := net.ParseMAC(src)
	require.NoError(t, err)
	d, err := net.ParseMAC(dst)
	require.NoError(t, err)
	return &protocol.Frame{SrcMAC: s, DstMAC: d, EtherType: 0x0800}
}

func ipFrame(t *testing.T, src, dst string) *protocol.Frame {
	f := frame(t, "00:00:00:00:00:01", "00:00:00:00:00:02")
	f.SrcIP = net.ParseIP(src)
	f.DstIP = net.ParseIP(dst)
	return f
}

func TestPolicySelfAdjacency(t *testing.T) {
	p := NewPolicy(map[Department][]Department{"A": {"B"}})
	for _, d := range []Department{"A", "B", "C", "Z"} {
		assert.True(t, p.IsAllowed(d, d), "department %v must reach itself", d)
	}
}

func TestPolicyDirected(t *testing.T) {
	adjacency := map[Department][]Department{
		"A": {"A", "B"},
		"B": {"A", "B", "C"},
		"C": {"B", "C"},
	}
	p := NewPolicy(adjacency)

	all := []Department{"A", "B", "C"}
	for _, src := range all {
		for _, dst := range all {
			if src == dst {
				continue
			}
			expected := false
			for _, v := range adjacency[src] {
				if v == dst {
					expected = true
				}
			}
			if got := p.IsAllowed(src, dst); got != expected {
				t.Fatalf("Unexpected policy for %v->%v: expected=%v, got=%v", src, dst, expected, got)
			}
		}
	}

	one := NewPolicy(map[Department][]Department{"A": {"B"}})
	assert.True(t, one.IsAllowed("A", "B"))
	assert.False(t, one.IsAllowed("B", "A"))
}

func TestPolicyViews(t *testing.T) {
	p := NewPolicy(map[Department][]Department{"B": {"C", "A"}, "A": {"B"}})
	if diff := cmp.Diff([]Department{"A", "B", "C"}, p.Departments()); diff != "" {
		t.Fatalf("Unexpected departments (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff([]Department{"A", "B", "C"}, p.Destinations("B")); diff != "" {
		t.Fatalf("Unexpected destinations (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"A -> A, B", "B -> A, B, C", "C -> C"}, p.Lines()); diff != "" {
		t.Fatalf("Unexpected lines (-want +got):\n%v", diff)
	}
}

func TestParseMACPrefix(t *testing.T) {
	tests := []struct {
		prefix   string
		expected []byte
		err      bool
	}{
		{"00:00:00:00:01:*", []byte{0, 0, 0, 0, 1}, false},
		{"00:00:00:00:01:", []byte{0, 0, 0, 0, 1}, false},
		{"AA:BB", []byte{0xaa, 0xbb}, false},
		{"00:00:00:00:01:01", []byte{0, 0, 0, 0, 1, 1}, false},
		{"", nil, true},
		{"*", nil, true},
		{"0:1", nil, true},
		{"zz:00", nil, true},
		{"00:00:00:00:00:00:00", nil, true},
	}

	for _, v := range tests {
		got, err := ParseMACPrefix(v.prefix)
		if v.err {
			if err == nil {
				t.Fatalf("Expected error for %q", v.prefix)
			}
			continue
		}
		if err != nil || !bytes.Equal(got, v.expected) {
			t.Fatalf("Unexpected prefix for %q: expected=%v, got=%v (%v)", v.prefix, v.expected, got, err)
		}
	}
}

func TestMACRulesLongestPrefix(t *testing.T) {
	rules, err := NewMACRules([]Rule{
		{Prefix: "00:00:00:00:*", Department: "Wide"},
		{Prefix: "00:00:00:00:01:*", Department: "A"},
		{Prefix: "00:00:00:00:01:*", Department: "Shadowed"},
		{Prefix: "00:00:00:00:01:07", Department: "Host"},
	})
	require.NoError(t, err)

	tests := map[string]Department{
		"00:00:00:00:01:01": "A",
		"00:00:00:00:01:07": "Host",
		"00:00:00:00:02:01": "Wide",
		"00:00:00:01:00:01": None,
	}
	for mac, expected := range tests {
		m, _ := net.ParseMAC(mac)
		got, _ := rules.Match(m)
		assert.Equal(t, expected, got, mac)
	}
}

func TestSubnetRulesLongestPrefix(t *testing.T) {
	rules, err := NewSubnetRules([]Rule{
		{Prefix: "10.0.0.0/8", Department: "Campus"},
		{Prefix: "10.0.1.0/24", Department: "A"},
		{Prefix: "10.0.1.0/24", Department: "Shadowed"},
		{Prefix: "fd00::/64", Department: "V6"},
	})
	require.NoError(t, err)

	tests := map[string]Department{
		"10.0.1.9":  "A",
		"10.9.9.9":  "Campus",
		"192.0.2.1": None,
		"fd00::1":   "V6",
	}
	for ip, expected := range tests {
		got, _ := rules.Match(net.ParseIP(ip))
		assert.Equal(t, expected, got, ip)
	}

	_, err = NewSubnetRules([]Rule{{Prefix: "10.0.1.0", Department: "A"}})
	assert.Error(t, err)
	_, err = NewSubnetRules([]Rule{{Prefix: "10.0.1.0/24"}})
	assert.Error(t, err)
}

// 01 hosts are A, 03 hosts are C, and neither may reach the other.
func TestMACProfileSeparatesAAndC(t *testing.T) {
	p, err := Builtin(ProfileMAC)
	require.NoError(t, err)
	c, err := p.Classifier()
	require.NoError(t, err)
	policy := p.Policy()

	src, dst, ok := c.Classify(frame(t, "00:00:00:00:01:01", "00:00:00:00:03:01"), None)
	require.True(t, ok)
	assert.Equal(t, Department("A"), src)
	assert.Equal(t, Department("C"), dst)
	assert.False(t, policy.IsAllowed(src, dst))
	assert.False(t, policy.IsAllowed(dst, src))

	assert.True(t, policy.IsAllowed("A", "B"))
	assert.True(t, policy.IsAllowed("C", "B"))
}

func TestMACClassifierFallback(t *testing.T) {
	p, err := Builtin(ProfileMAC)
	require.NoError(t, err)
	c, err := p.Classifier()
	require.NoError(t, err)

	src, dst, ok := c.Classify(frame(t, "00:00:00:00:09:01", "00:00:00:00:01:01"), p.DefaultDepartment(2))
	require.True(t, ok)
	assert.Equal(t, Department("B"), src)
	assert.Equal(t, Department("A"), dst)

	// Unknown switch: no default.
	src, _, _ = c.Classify(frame(t, "00:00:00:00:09:01", "00:00:00:00:01:01"), p.DefaultDepartment(99))
	assert.Equal(t, None, src)

	// Broadcast destinations never take the switch default.
	_, dst, _ = c.Classify(frame(t, "00:00:00:00:01:01", "ff:ff:ff:ff:ff:ff"), "A")
	assert.Equal(t, None, dst)
}

func TestIPClassifier(t *testing.T) {
	p, err := Builtin(ProfileIP)
	require.NoError(t, err)
	c, err := p.Classifier()
	require.NoError(t, err)
	assert.Equal(t, ModeIP, c.Mode())

	src, dst, ok := c.Classify(ipFrame(t, "10.0.1.1", "10.0.3.1"), None)
	require.True(t, ok)
	assert.Equal(t, Department("A"), src)
	assert.Equal(t, Department("C"), dst)
	assert.False(t, p.Policy().IsAllowed(src, dst))
	assert.True(t, p.Policy().IsAllowed("A", "B"))

	_, _, ok = c.Classify(frame(t, "00:00:00:00:01:01", "00:00:00:00:03:01"), None)
	assert.False(t, ok, "non-IP frame must not be classified in IP mode")

	_, dst, _ = c.Classify(ipFrame(t, "10.0.1.1", "224.0.0.251"), "B")
	assert.Equal(t, None, dst)
}

func TestClassifyAddress(t *testing.T) {
	p, _ := Builtin(ProfileMAC)
	c, _ := p.Classifier()
	d, err := c.Address("00:00:00:00:02:05")
	require.NoError(t, err)
	assert.Equal(t, Department("B"), d)
	_, err = c.Address("10.0.1.1")
	assert.Error(t, err)

	p, _ = Builtin(ProfileIP)
	c, _ = p.Classifier()
	d, err = c.Address("10.0.3.4")
	require.NoError(t, err)
	assert.Equal(t, Department("C"), d)
}

func TestBuiltinUnknown(t *testing.T) {
	_, err := Builtin("nope")
	assert.Error(t, err)
}

func TestLoadCustomProfile(t *testing.T) {
	v := viper.New()
	v.Set("profile", "custom")
	v.Set("mode", "mac")
	v.Set("mac_rules", []map[string]interface{}{
		{"prefix": "aa:bb:*", "department": "Sales"},
		{"prefix": "aa:cc:*", "department": "Dev"},
	})
	v.Set("adjacency", map[string]interface{}{
		"sales": []string{"Dev"},
	})
	v.Set("switches", map[string]interface{}{"0x10": "Dev"})

	p, err := LoadProfile(v)
	require.NoError(t, err)
	assert.Equal(t, ModeMAC, p.Mode)
	assert.Equal(t, []Department{"Dev"}, p.Adjacency["Sales"])
	assert.Equal(t, Department("Dev"), p.DefaultDepartment(16))

	policy := p.Policy()
	assert.True(t, policy.IsAllowed("Sales", "Dev"))
	assert.False(t, policy.IsAllowed("Dev", "Sales"))
}

func TestLoadProfileDefaults(t *testing.T) {
	p, err := LoadProfile(nil)
	require.NoError(t, err)
	assert.Equal(t, ProfileMAC, p.Name)

	v := viper.New()
	v.Set("profile", "ip")
	p, err = LoadProfile(v)
	require.NoError(t, err)
	assert.Equal(t, ModeIP, p.Mode)

	v = viper.New()
	v.Set("profile", "custom")
	v.Set("mode", "ip")
	_, err = LoadProfile(v)
	assert.Error(t, err, "IP mode without rules must be rejected")
}
