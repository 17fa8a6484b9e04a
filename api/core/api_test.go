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

package core

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nikiramandika/Tugas-adj/api"
	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/ant0ine/go-json-rest/rest/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummySwitch struct {
	dpid uint64
}

func (r *dummySwitch) DPID() uint64                           { return r.dpid }
func (r *dummySwitch) InstallFlowRule(network.FlowRule) error { return nil }
func (r *dummySwitch) SendPacketOut(network.PacketOut) error  { return nil }

type dummySegment struct {
	engine  *segment.Engine
	profile *department.Profile
}

func (r *dummySegment) Engine() *segment.Engine      { return r.engine }
func (r *dummySegment) Profile() *department.Profile { return r.profile }

type dummyAudit struct {
	limit int
	err   error
}

func (r *dummyAudit) Violations(limit int) ([]segment.Violation, error) {
	r.limit = limit
	if r.err != nil {
		return nil, r.err
	}
	return []segment.Violation{{DPID: 1, SrcMAC: "00:00:00:00:01:01", DstMAC: "00:00:00:00:03:01", Source: "A", Destination: "C"}}, nil
}

func newSegment(t *testing.T, name string) *dummySegment {
	p, err := department.Builtin(name)
	require.NoError(t, err)
	c, err := p.Classifier()
	require.NoError(t, err)

	return &dummySegment{
		engine:  segment.NewEngine(segment.Config{Classifier: c, Policy: p.Policy(), Defaults: p.Switches}),
		profile: p,
	}
}

type response struct {
	Status  api.Status      `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, a *API, method, url string, payload interface{}, data interface{}) response {
	handler, err := a.Handler()
	require.NoError(t, err)

	recorded := test.RunRequest(t, handler, test.MakeSimpleRequest(method, "http://localhost"+url, payload))
	recorded.CodeIs(200)
	recorded.ContentTypeIsJson()

	var resp response
	require.NoError(t, recorded.DecodeJsonPayload(&resp))
	if data != nil && resp.Status == api.StatusOkay {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}

	return resp
}

func TestSwitches(t *testing.T) {
	seg := newSegment(t, department.ProfileMAC)
	_, err := seg.engine.OnConnect(&dummySwitch{dpid: 2})
	require.NoError(t, err)
	s, _ := seg.engine.Registry().SessionFor(2)
	mac, _ := net.ParseMAC("00:00:00:00:02:01")
	s.Table().Learn(mac, 4)

	a := &API{Segment: seg}
	var switches []switchInfo
	resp := call(t, a, "GET", "/api/v1/switches", nil, &switches)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	require.Len(t, switches, 1)
	assert.Equal(t, uint64(2), switches[0].DPID)
	assert.Equal(t, department.Department("B"), switches[0].Department)
	assert.Equal(t, 1, switches[0].MACs)
	assert.WithinDuration(t, time.Now(), switches[0].ConnectedAt, time.Minute)

	var macs []macEntry
	resp = call(t, a, "GET", "/api/v1/switches/2/macs", nil, &macs)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	assert.Equal(t, []macEntry{{MAC: "00:00:00:00:02:01", Port: 4}}, macs)

	resp = call(t, a, "GET", "/api/v1/switches/0x2/macs", nil, &macs)
	assert.Equal(t, api.Status(api.StatusOkay), resp.Status)
	resp = call(t, a, "GET", "/api/v1/switches/9/macs", nil, nil)
	assert.Equal(t, api.Status(api.StatusNotFound), resp.Status)
	resp = call(t, a, "GET", "/api/v1/switches/abc/macs", nil, nil)
	assert.Equal(t, api.Status(api.StatusInvalidParameter), resp.Status)
}

func TestPolicy(t *testing.T) {
	a := &API{Segment: newSegment(t, department.ProfileIP)}

	var v policyInfo
	resp := call(t, a, "GET", "/api/v1/policy", nil, &v)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	assert.Equal(t, department.ProfileIP, v.Profile)
	assert.Equal(t, department.ModeIP, v.Mode)
	assert.Equal(t, []department.Department{"A", "B", "C"}, v.Departments)
	assert.Equal(t, []department.Department{"A", "B"}, v.Adjacency["A"])
	assert.Len(t, v.Rules, 3)
}

func TestClassify(t *testing.T) {
	a := &API{Segment: newSegment(t, department.ProfileMAC)}

	var v struct {
		Department department.Department `json:"department"`
		Known      bool                  `json:"known"`
	}
	resp := call(t, a, "POST", "/api/v1/classify", map[string]string{"address": "00:00:00:00:03:07"}, &v)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	assert.Equal(t, department.Department("C"), v.Department)
	assert.True(t, v.Known)

	resp = call(t, a, "POST", "/api/v1/classify", map[string]string{"address": "00:00:00:00:09:07"}, &v)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	assert.False(t, v.Known)

	resp = call(t, a, "POST", "/api/v1/classify", map[string]string{"address": "10.0.1.1"}, nil)
	assert.Equal(t, api.Status(api.StatusInvalidParameter), resp.Status)
	resp = call(t, a, "POST", "/api/v1/classify", map[string]string{}, nil)
	assert.Equal(t, api.Status(api.StatusInvalidParameter), resp.Status)
}

func TestViolations(t *testing.T) {
	seg := newSegment(t, department.ProfileMAC)
	resp := call(t, &API{Segment: seg}, "GET", "/api/v1/violations", nil, nil)
	assert.Equal(t, api.Status(api.StatusServiceUnavailable), resp.Status)

	audit := new(dummyAudit)
	a := &API{Segment: seg, Audit: audit}
	var v []segment.Violation
	resp = call(t, a, "GET", "/api/v1/violations?limit=5", nil, &v)
	require.Equal(t, api.Status(api.StatusOkay), resp.Status)
	assert.Equal(t, 5, audit.limit)
	require.Len(t, v, 1)
	assert.Equal(t, department.Department("C"), v[0].Destination)

	resp = call(t, a, "GET", "/api/v1/violations?limit=-1", nil, nil)
	assert.Equal(t, api.Status(api.StatusInvalidParameter), resp.Status)

	audit.err = errors.New("database is gone")
	resp = call(t, a, "GET", "/api/v1/violations", nil, nil)
	assert.Equal(t, api.Status(api.StatusInternalServerError), resp.Status)
}

func TestNotInitialized(t *testing.T) {
	a := &API{Segment: &dummySegment{}}
	resp := call(t, a, "GET", "/api/v1/switches", nil, nil)
	assert.Equal(t, api.Status(api.StatusServiceUnavailable), resp.Status)
}

func TestMetrics(t *testing.T) {
	a := &API{Segment: newSegment(t, department.ProfileMAC)}
	handler, err := a.Handler()
	require.NoError(t, err)

	recorded := test.RunRequest(t, handler, test.MakeSimpleRequest("GET", "http://localhost/metrics", nil))
	recorded.CodeIs(200)
	assert.Contains(t, recorded.Recorder.Body.String(), "departd_switches_connected")
}
