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
	"time"

	"github.com/nikiramandika/Tugas-adj/department"
)

// Violation is the audit record of a frame dropped by the adjacency policy.
type Violation struct {
	Time        time.Time             `json:"time"`
	DPID        uint64                `json:"dpid"`
	InPort      uint32                `json:"in_port"`
	SrcMAC      string                `json:"src_mac"`
	DstMAC      string                `json:"dst_mac"`
	SrcAddr     string                `json:"src_addr,omitempty"`
	DstAddr     string                `json:"dst_addr,omitempty"`
	Source      department.Department `json:"source"`
	Destination department.Department `json:"destination"`
}

func (r Violation) String() string {
	return fmt.Sprintf("DPID=%v, InPort=%v, %v(%v) -> %v(%v)", r.DPID, r.InPort, r.SrcMAC, r.Source, r.DstMAC, r.Destination)
}

// Auditor stores violations. Record must not block the caller.
type Auditor interface {
	Record(Violation)
}
