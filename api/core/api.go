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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nikiramandika/Tugas-adj/api"
	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/davecgh/go-spew/spew"
	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("core")
)

type Segment interface {
	Engine() *segment.Engine
	Profile() *department.Profile
}

type ViolationReader interface {
	// Violations returns the latest limit records, newest first.
	Violations(limit int) ([]segment.Violation, error)
}

// API exposes the state of the segment application. Audit is nil when the
// audit trail is disabled.
type API struct {
	api.Server
	Segment Segment
	Audit   ViolationReader
}

func (r *API) routes() []*rest.Route {
	return []*rest.Route{
		rest.Get("/api/v1/switches", r.listSwitches),
		rest.Get("/api/v1/switches/:dpid/macs", r.listMACs),
		rest.Get("/api/v1/policy", r.policy),
		rest.Post("/api/v1/classify", r.classify),
		rest.Get("/api/v1/violations", r.listViolations),
	}
}

func (r *API) Handler() (http.Handler, error) {
	if r.Segment == nil {
		panic("nil segment application")
	}

	return r.Server.Handler(r.routes()...)
}

func (r *API) Serve(ctx context.Context) error {
	if r.Segment == nil {
		panic("nil segment application")
	}

	return r.Server.Serve(ctx, r.routes()...)
}

func (r *API) engine(w rest.ResponseWriter) (*segment.Engine, bool) {
	e := r.Segment.Engine()
	if e == nil {
		w.WriteJson(api.Response{Status: api.StatusServiceUnavailable, Message: "segment application is not initialized"})
		return nil, false
	}

	return e, true
}

type switchInfo struct {
	DPID        uint64                `json:"dpid"`
	Department  department.Department `json:"department"`
	MACs        int                   `json:"macs"`
	ConnectedAt time.Time             `json:"connected_at"`
	Stats       segment.Stats         `json:"stats"`
}

func (r *API) listSwitches(w rest.ResponseWriter, req *rest.Request) {
	e, ok := r.engine(w)
	if !ok {
		return
	}

	sessions := e.Registry().Sessions()
	result := make([]switchInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, switchInfo{
			DPID:        s.DPID(),
			Department:  s.Department(),
			MACs:        s.Table().Len(),
			ConnectedAt: s.ConnectedAt(),
			Stats:       s.Stats(),
		})
	}

	w.WriteJson(api.Response{Status: api.StatusOkay, Data: result})
}

type macEntry struct {
	MAC  string `json:"mac"`
	Port uint32 `json:"port"`
}

func (r *API) listMACs(w rest.ResponseWriter, req *rest.Request) {
	e, ok := r.engine(w)
	if !ok {
		return
	}

	dpid, err := strconv.ParseUint(req.PathParam("dpid"), 0, 64)
	if err != nil {
		w.WriteJson(api.Response{Status: api.StatusInvalidParameter, Message: fmt.Sprintf("invalid DPID: %v", req.PathParam("dpid"))})
		return
	}
	s, ok := e.Registry().SessionFor(dpid)
	if !ok {
		w.WriteJson(api.Response{Status: api.StatusNotFound, Message: fmt.Sprintf("unknown switch: %v", dpid)})
		return
	}

	entries := s.Table().Entries()
	result := make([]macEntry, 0, len(entries))
	for _, v := range entries {
		result = append(result, macEntry{MAC: v.MAC.String(), Port: v.Port})
	}

	w.WriteJson(api.Response{Status: api.StatusOkay, Data: result})
}

type policyInfo struct {
	Profile     string                                            `json:"profile"`
	Mode        department.Mode                                   `json:"mode"`
	Departments []department.Department                           `json:"departments"`
	Adjacency   map[department.Department][]department.Department `json:"adjacency"`
	Rules       []department.Rule                                 `json:"rules"`
	Switches    map[string]department.Department                  `json:"switches"`
}

func (r *API) policy(w rest.ResponseWriter, req *rest.Request) {
	e, ok := r.engine(w)
	if !ok {
		return
	}
	profile := r.Segment.Profile()

	v := policyInfo{
		Profile:     profile.Name,
		Mode:        e.Classifier().Mode(),
		Departments: e.Policy().Departments(),
		Adjacency:   make(map[department.Department][]department.Department),
		Rules:       profile.MACRules,
		Switches:    make(map[string]department.Department),
	}
	if v.Mode == department.ModeIP {
		v.Rules = profile.SubnetRules
	}
	for _, src := range v.Departments {
		v.Adjacency[src] = e.Policy().Destinations(src)
	}
	for dpid, dept := range profile.Switches {
		v.Switches[strconv.FormatUint(dpid, 10)] = dept
	}

	w.WriteJson(api.Response{Status: api.StatusOkay, Data: v})
}

type classifyParam struct {
	Address string
}

func (r *classifyParam) UnmarshalJSON(data []byte) error {
	v := struct {
		Address string `json:"address"`
	}{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	addr := strings.TrimSpace(v.Address)
	if len(addr) == 0 {
		return fmt.Errorf("empty address")
	}
	r.Address = addr

	return nil
}

func (r *API) classify(w rest.ResponseWriter, req *rest.Request) {
	e, ok := r.engine(w)
	if !ok {
		return
	}

	p := new(classifyParam)
	if err := req.DecodeJsonPayload(p); err != nil {
		w.WriteJson(api.Response{Status: api.StatusInvalidParameter, Message: err.Error()})
		return
	}
	logger.Debugf("classify request from %v: %v", req.RemoteAddr, spew.Sdump(p))

	dept, err := e.Classifier().Address(p.Address)
	if err != nil {
		w.WriteJson(api.Response{Status: api.StatusInvalidParameter, Message: err.Error()})
		return
	}

	w.WriteJson(api.Response{
		Status: api.StatusOkay,
		Data: struct {
			Address    string                `json:"address"`
			Department department.Department `json:"department"`
			Known      bool                  `json:"known"`
		}{
			Address:    p.Address,
			Department: dept,
			Known:      dept != department.None,
		},
	})
}

func (r *API) listViolations(w rest.ResponseWriter, req *rest.Request) {
	if r.Audit == nil {
		w.WriteJson(api.Response{Status: api.StatusServiceUnavailable, Message: "audit trail is disabled"})
		return
	}

	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			w.WriteJson(api.Response{Status: api.StatusInvalidParameter, Message: fmt.Sprintf("invalid limit: %v", v)})
			return
		}
		limit = n
	}

	result, err := r.Audit.Violations(limit)
	if err != nil {
		logger.Errorf("failed to query the violations: %v", err)
		w.WriteJson(api.Response{Status: api.StatusInternalServerError, Message: err.Error()})
		return
	}

	w.WriteJson(api.Response{Status: api.StatusOkay, Data: result})
}
