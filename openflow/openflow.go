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

package openflow

import (
	"errors"
)

// OF13_VERSION is the only wire version this controller speaks.
const OF13_VERSION = 0x04

// Message types
const (
	OFPT_HELLO            = 0
	OFPT_ERROR            = 1
	OFPT_ECHO_REQUEST     = 2
	OFPT_ECHO_REPLY       = 3
	OFPT_FEATURES_REQUEST = 5
	OFPT_FEATURES_REPLY   = 6
	OFPT_PACKET_IN        = 10
	OFPT_FLOW_REMOVED     = 11
	OFPT_PORT_STATUS      = 12
	OFPT_PACKET_OUT       = 13
	OFPT_FLOW_MOD         = 14
	OFPT_BARRIER_REQUEST  = 20
	OFPT_BARRIER_REPLY    = 21
)

// Reserved port numbers
const (
	OFPP_MAX        = 0xffffff00
	OFPP_IN_PORT    = 0xfffffff8
	OFPP_TABLE      = 0xfffffff9
	OFPP_NORMAL     = 0xfffffffa
	OFPP_FLOOD      = 0xfffffffb
	OFPP_ALL        = 0xfffffffc
	OFPP_CONTROLLER = 0xfffffffd
	OFPP_LOCAL      = 0xfffffffe
	OFPP_ANY        = 0xffffffff
)

const (
	OFPG_ANY         = 0xffffffff
	OFP_NO_BUFFER    = 0xffffffff
	OFPCML_NO_BUFFER = 0xffff
	OFPTT_ALL        = 0xff
)

// Flow mod commands
const (
	OFPFC_ADD           = 0
	OFPFC_MODIFY        = 1
	OFPFC_MODIFY_STRICT = 2
	OFPFC_DELETE        = 3
	OFPFC_DELETE_STRICT = 4
)

// Flow mod flags
const (
	OFPFF_SEND_FLOW_REM = 1 << 0
	OFPFF_CHECK_OVERLAP = 1 << 1
)

// Error types used by this controller
const (
	OFPET_HELLO_FAILED    = 0
	OFPET_FLOW_MOD_FAILED = 5

	OFPHFC_INCOMPATIBLE = 0
	OFPFMFC_OVERLAP     = 3
)

// Action and instruction types
const (
	OFPAT_OUTPUT        = 0
	OFPIT_APPLY_ACTIONS = 4
)

// OXM
const (
	OFPMT_OXM             = 1
	OFPXMC_OPENFLOW_BASIC = 0x8000
	OFPXMT_OFB_IN_PORT    = 0
	OFPXMT_OFB_ETH_DST    = 3
	OFPXMT_OFB_ETH_SRC    = 4
	OFPXMT_OFB_ETH_TYPE   = 5
	OFPXMT_OFB_IPV4_SRC   = 11
	OFPXMT_OFB_IPV4_DST   = 12
)

// TableMissCookie is the cookie marker of the table-miss entries. We use the MSB
// so that flow deletions with the same cookie mask can spare them.
const TableMissCookie = uint64(0x1 << 63)

var (
	ErrInvalidPacketLength = errors.New("invalid packet length")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrUnsupportedMessage  = errors.New("unsupported message type")
	ErrInvalidMACAddress   = errors.New("invalid MAC address")
	ErrInvalidIPAddress    = errors.New("invalid IP address")
	ErrUnsupportedMatch    = errors.New("unsupported match field")
)
