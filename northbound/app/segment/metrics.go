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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	packetInTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "departd",
			Name:      "packet_in_total",
			Help:      "Total number of PACKET_IN messages processed.",
		},
	)
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "departd",
			Name:      "decisions_total",
			Help:      "Forwarding decisions by verdict and reason.",
		},
		[]string{"verdict", "reason"},
	)
	violationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "departd",
			Name:      "policy_violations_total",
			Help:      "Frames dropped because the destination department is not reachable from the source.",
		},
		[]string{"src", "dst"},
	)
	flowInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "departd",
			Name:      "flow_installs_total",
			Help:      "FLOW_MOD messages sent to switches, by result.",
		},
		[]string{"result"},
	)
	floodsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "departd",
			Name:      "floods_suppressed_total",
			Help:      "Floods skipped by the storm controller.",
		},
	)
	switchesConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "departd",
			Name:      "switches_connected",
			Help:      "Number of switches with an active session.",
		},
	)
)
