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

package network

import (
	"context"
	"encoding"
	"net"

	"github.com/nikiramandika/Tugas-adj/openflow"
	"github.com/nikiramandika/Tugas-adj/openflow/transceiver"

	"github.com/pkg/errors"
)

var (
	errNotNegotiated  = errors.New("invalid command on non-negotiated session")
	errDuplicatedDPID = errors.New("duplicated device DPID (aux. connection is not supported yet)")
)

type session struct {
	negotiated  bool
	device      *Device
	stream      *transceiver.Stream
	transceiver *transceiver.Transceiver
	listener    EventListener
	cancellers  *canceller
	// A cancel function to disconnect this session.
	canceller context.CancelFunc
}

type sessionConfig struct {
	conn       net.Conn
	listener   EventListener
	cancellers *canceller
}

func checkParam(c sessionConfig) {
	if c.conn == nil {
		panic("Conn is nil")
	}
	if c.listener == nil {
		panic("Listener is nil")
	}
	if c.cancellers == nil {
		panic("Canceller is nil")
	}
}

func newSession(c sessionConfig) *session {
	checkParam(c)

	v := new(session)
	v.listener = c.listener
	v.cancellers = c.cancellers
	v.device = newDevice(v)
	v.stream = transceiver.NewStream(c.conn, 0xFFFF)
	v.transceiver = transceiver.NewTransceiver(v.stream, v)

	return v
}

func (r *session) OnHello(w transceiver.Writer, v *openflow.Hello) error {
	logger.Debugf("HELLO (ver=%v) is received", v.Version())

	// Ignore duplicated HELLO messages
	if r.negotiated {
		return nil
	}
	r.negotiated = true

	if err := w.Write(openflow.NewHello()); err != nil {
		return errors.Wrap(err, "failed to send HELLO")
	}
	if err := w.Write(openflow.NewFeaturesRequest()); err != nil {
		return errors.Wrap(err, "failed to send FEATURES_REQUEST")
	}
	// Flows left by a previous controller session must be gone before
	// the applications install anything.
	return removeAllFlows(w)
}

// removeAllFlows deletes every flow of every table and then sends a barrier
// so the deletion completes before anything installed afterwards.
func removeAllFlows(w transceiver.Writer) error {
	flowmod := openflow.NewFlowMod(openflow.OFPFC_DELETE)
	flowmod.TableID = openflow.OFPTT_ALL
	if err := w.Write(flowmod); err != nil {
		return errors.Wrap(err, "failed to send FLOW_MOD to remove all flows")
	}
	if err := w.Write(openflow.NewBarrierRequest()); err != nil {
		return errors.Wrap(err, "failed to send BARRIER_REQUEST")
	}

	return nil
}

func (r *session) OnError(w transceiver.Writer, v *openflow.Error) error {
	if v.Class == openflow.OFPET_FLOW_MOD_FAILED && v.Code == openflow.OFPFMFC_OVERLAP {
		logger.Debug("FLOW_MOD is overlapped")
		return nil
	}
	logger.Errorf("ERROR (DPID=%v, class=%v, code=%v, data=%v)", r.device.DPID(), v.Class, v.Code, v.Data)

	return nil
}

func (r *session) OnFeaturesReply(w transceiver.Writer, v *openflow.FeaturesReply) error {
	logger.Debugf("FEATURES_REPLY (DPID=%v, NumBufs=%v, NumTables=%v)", v.DPID, v.NumBuffers, v.NumTables)

	if !r.negotiated {
		return errNotNegotiated
	}
	if r.device.isValid() {
		logger.Debug("ignoring an additional FEATURES_REPLY")
		return nil
	}

	if cancel, ok := r.cancellers.find(v.DPID); ok {
		// Some switches open a fresh connection while the old one still
		// looks alive. Drop both so the switch reconnects cleanly.
		cancel()
		return errDuplicatedDPID
	}
	r.device.setFeatures(Features{
		DPID:       v.DPID,
		NumBuffers: v.NumBuffers,
		NumTables:  v.NumTables,
	})
	r.cancellers.push(v.DPID, r, r.canceller)
	logger.Infof("connected device (DPID=%v, addr=%v)", v.DPID, r.stream.RemoteAddr())
	r.dispatch(Event{Type: EventSwitchConnected, Switch: r.device})

	return nil
}

func (r *session) OnBarrierReply(w transceiver.Writer, v *openflow.Message) error {
	logger.Debugf("BARRIER_REPLY (DPID=%v, xid=%v)", r.device.DPID(), v.TransactionID())
	return nil
}

func (r *session) OnPacketIn(w transceiver.Writer, v *openflow.PacketIn) error {
	if !r.negotiated {
		return errNotNegotiated
	}
	if !r.device.isValid() {
		logger.Warning("ignoring PACKET_IN received before FEATURES_REPLY")
		return nil
	}
	logger.Debugf("PACKET_IN is received (DPID=%v, inport=%v, reason=%v, tableID=%v, cookie=%x)",
		r.device.DPID(), v.InPort(), v.Reason, v.TableID, v.Cookie)

	r.dispatch(Event{
		Type:   EventPacketIn,
		Switch: r.device,
		PacketIn: &PacketIn{
			InPort:   v.InPort(),
			BufferID: v.BufferID,
			Data:     v.Data,
		},
	})

	return nil
}

// dispatch runs on the session goroutine, so events of one switch are
// handled strictly in order.
func (r *session) dispatch(ev Event) {
	if err := r.listener.OnEvent(ev); err != nil {
		logger.Errorf("failed to handle %v: %v", ev, err)
	}
}

func (r *session) Run(ctx context.Context) {
	sessionCtx, canceller := context.WithCancel(ctx)
	defer canceller()
	// This canceller will be used to disconnect this session when it is necessary.
	r.canceller = canceller

	if err := r.transceiver.Run(sessionCtx); err != nil {
		logger.Errorf("openflow transceiver is unexpectedly closed: %v", err)
	}

	r.device.Close()
	r.stream.Close()
	if r.device.isValid() {
		r.cancellers.pop(r.device.DPID(), r)
		logger.Infof("disconnected device (DPID=%v)", r.device.DPID())
		r.dispatch(Event{Type: EventSwitchDisconnected, Switch: r.device})
	}
}

func (r *session) Write(msg encoding.BinaryMarshaler) error {
	return r.transceiver.Write(msg)
}
