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

// Package department classifies hosts into departments and decides which
// departments may talk to each other.
package department

import (
	"fmt"
	"sort"
	"strings"
)

// Department is a named network segment. None means the department is unknown.
type Department string

const None Department = ""

func (r Department) String() string {
	if r == None {
		return "unknown"
	}

	return string(r)
}

// Policy is a directed adjacency matrix between departments. It is read-only
// after construction and safe for concurrent use.
type Policy struct {
	adjacency   map[Department]map[Department]struct{}
	departments []Department
}

// NewPolicy returns a policy permitting traffic from each key of adjacency
// to every department in its value. Traffic inside a department is always
// permitted.
func NewPolicy(adjacency map[Department][]Department) *Policy {
	p := &Policy{
		adjacency: make(map[Department]map[Department]struct{}),
	}

	seen := make(map[Department]struct{})
	add := func(d Department) {
		if _, ok := seen[d]; ok || d == None {
			return
		}
		seen[d] = struct{}{}
		p.departments = append(p.departments, d)
	}
	for src, dsts := range adjacency {
		add(src)
		set, ok := p.adjacency[src]
		if !ok {
			set = make(map[Department]struct{})
			p.adjacency[src] = set
		}
		for _, dst := range dsts {
			add(dst)
			set[dst] = struct{}{}
		}
	}
	sort.Slice(p.departments, func(i, j int) bool { return p.departments[i] < p.departments[j] })

	return p
}

// IsAllowed reports whether src may send to dst. Callers should not ask
// when either side is None.
func (r *Policy) IsAllowed(src, dst Department) bool {
	if src == dst {
		return true
	}
	_, ok := r.adjacency[src][dst]

	return ok
}

// Departments returns every department named by the policy in sorted order.
func (r *Policy) Departments() []Department {
	v := make([]Department, len(r.departments))
	copy(v, r.departments)

	return v
}

// Destinations returns the departments src may send to, including src itself.
func (r *Policy) Destinations(src Department) []Department {
	v := []Department{src}
	for dst := range r.adjacency[src] {
		if dst != src {
			v = append(v, dst)
		}
	}
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })

	return v
}

// Lines renders the matrix one source per line, e.g. "A -> A, B".
func (r *Policy) Lines() []string {
	var lines []string
	for _, src := range r.departments {
		var dsts []string
		for _, dst := range r.Destinations(src) {
			dsts = append(dsts, dst.String())
		}
		lines = append(lines, fmt.Sprintf("%v -> %v", src, strings.Join(dsts, ", ")))
	}

	return lines
}
