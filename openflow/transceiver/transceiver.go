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

package transceiver

import (
	"context"
	"encoding"
	"fmt"
	"time"

	"github.com/nikiramandika/Tugas-adj/openflow"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("transceiver")
)

const (
	// Allowed idle time before we send an echo request to a switch.
	maxIdleTime = 10 * time.Second
	// I/O timeouts (These timeouts should be less than maxIdleTime).
	readTimeout  = 1 * time.Second
	writeTimeout = readTimeout * 2
	// Maximum number of unanswered echo requests.
	maxPendingEcho = 3
)

var (
	// negotiationTimeout is a variable so tests can shorten it.
	negotiationTimeout = 30 * time.Second
)

type Writer interface {
	Write(msg encoding.BinaryMarshaler) error
}

type Handler interface {
	OnHello(Writer, *openflow.Hello) error
	OnError(Writer, *openflow.Error) error
	OnFeaturesReply(Writer, *openflow.FeaturesReply) error
	OnBarrierReply(Writer, *openflow.Message) error
	OnPacketIn(Writer, *openflow.PacketIn) error
}

// Transceiver speaks OpenFlow 1.3 to one switch. Echo requests and replies
// are handled internally; every other supported message goes to the Handler.
type Transceiver struct {
	stream      *Stream
	handler     Handler
	pingCounter uint
}

func NewTransceiver(stream *Stream, handler Handler) *Transceiver {
	if stream == nil {
		panic("stream is nil")
	}
	if handler == nil {
		panic("handler is nil")
	}

	return &Transceiver{
		stream:  stream,
		handler: handler,
	}
}

func isTimeout(err error) bool {
	v, ok := errors.Cause(err).(interface {
		Timeout() bool
	})
	return ok && v.Timeout()
}

// malformedError marks a message that could not be decoded. It does not
// end the session.
type malformedError struct {
	error
}

func (r malformedError) Temporary() bool {
	return true
}

func malformed(err error) error {
	return malformedError{errors.Wrap(err, "malformed message")}
}

func isTemporaryErr(err error) bool {
	e, ok := errors.Cause(err).(interface {
		Temporary() bool
	})
	return ok && e.Temporary()
}

// Run negotiates the protocol version and then dispatches incoming messages
// until ctx is canceled or the connection is broken.
func (r *Transceiver) Run(ctx context.Context) error {
	defer logger.Info("transceiver is closed")
	r.stream.SetReadTimeout(readTimeout)
	r.stream.SetWriteTimeout(writeTimeout)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()
	reader := r.runReader(readerCtx)

	packet, err := r.negotiate(ctx, reader)
	if err != nil {
		return errors.Wrap(err, "failed to negotiate the protocol version")
	}

	for {
		if err := r.dispatch(packet); err != nil {
			if !isTemporaryErr(err) {
				return err
			}
			logger.Errorf("failed to dispatch the packet: %v", err)
		}

		var ok bool
		select {
		case <-ctx.Done():
			logger.Info("context done")
			return nil
		case packet, ok = <-reader:
			if !ok {
				logger.Info("the reader channel is closed")
				return nil
			}
		}
	}
}

func (r *Transceiver) negotiate(ctx context.Context, reader <-chan []byte) (packet []byte, err error) {
	select {
	case <-ctx.Done():
		return nil, errors.New("context done")
	case <-time.After(negotiationTimeout):
		return nil, errors.New("inactive for too long")
	case packet, ok := <-reader:
		if !ok {
			return nil, errors.New("the reader channel is closed")
		}
		// The first message should be HELLO.
		if packet[1] != openflow.OFPT_HELLO {
			return nil, errors.New("missing HELLO message")
		}
		// The negotiated version is the smaller of both sides, so any
		// switch announcing 1.3 or later ends up speaking 1.3.
		if packet[0] < openflow.OF13_VERSION {
			reason := fmt.Sprintf("unsupported OpenFlow version: %v", packet[0])
			if err := r.Write(openflow.NewError(openflow.OFPET_HELLO_FAILED, openflow.OFPHFC_INCOMPATIBLE, []byte(reason))); err != nil {
				logger.Errorf("failed to send HELLO_FAILED error: %v", err)
			}
			return nil, openflow.ErrUnsupportedVersion
		}
		logger.Info("negotiated to openflow version 1.3")
		packet[0] = openflow.OF13_VERSION

		return packet, nil
	}
}

func (r *Transceiver) runReader(ctx context.Context) <-chan []byte {
	c := make(chan []byte, 4096)
	go func() {
		// Closing c tells Run that the connection has gone.
		defer close(c)
		defer logger.Debug("transceiver reader is closed")

		lastActivated := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			packet, err := r.stream.ReadMessage()
			if err != nil {
				if !isTimeout(err) {
					logger.Errorf("failed to read the next packet: %v", err)
					return
				}
				if time.Since(lastActivated) > maxIdleTime {
					if err := r.sendEchoRequest(); err != nil {
						logger.Errorf("failed to send an echo request: %v", err)
						return
					}
					lastActivated = time.Now()
				}
				continue
			}
			lastActivated = time.Now()

			handled, err := r.handleEcho(packet)
			if err != nil {
				logger.Errorf("failed to handle the echo request or response: %v", err)
				return
			}
			if handled {
				continue
			}

			select {
			case c <- packet:
			case <-ctx.Done():
				return
			default:
				logger.Error("transceiver buffer full: drop the incoming packet!")
			}
		}
	}()

	return c
}

func (r *Transceiver) Write(msg encoding.BinaryMarshaler) error {
	packet, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := r.stream.Write(packet); err != nil {
		return err
	}

	return nil
}

func (r *Transceiver) sendEchoRequest() error {
	if r.pingCounter >= maxPendingEcho {
		return errors.New("device does not respond to our echo request")
	}

	echo := openflow.NewEchoRequest()
	// The timestamp lets us measure the latency when the reply comes back.
	timestamp, err := time.Now().GobEncode()
	if err != nil {
		return err
	}
	echo.SetData(timestamp)
	if err := r.Write(echo); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REQUEST message")
	}
	r.pingCounter++

	return nil
}

func (r *Transceiver) handleEcho(packet []byte) (handled bool, err error) {
	switch packet[1] {
	case openflow.OFPT_ECHO_REQUEST:
		return true, r.handleEchoRequest(packet)
	case openflow.OFPT_ECHO_REPLY:
		return true, r.handleEchoReply(packet)
	default:
		return false, nil
	}
}

func (r *Transceiver) handleEchoRequest(packet []byte) error {
	msg := new(openflow.Echo)
	if err := msg.UnmarshalBinary(packet); err != nil {
		return err
	}

	reply := openflow.NewEchoReply(msg.TransactionID())
	reply.SetData(msg.Data())
	if err := r.Write(reply); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REPLY message")
	}

	return nil
}

func (r *Transceiver) handleEchoReply(packet []byte) error {
	msg := new(openflow.Echo)
	if err := msg.UnmarshalBinary(packet); err != nil {
		return err
	}
	// Any reply proves the switch is alive.
	r.pingCounter = 0

	timestamp := time.Time{}
	if err := timestamp.GobDecode(msg.Data()); err != nil {
		// Some switches do not echo our data back.
		return nil
	}
	logger.Debugf("transceiver latency: %v", time.Since(timestamp))

	return nil
}

func (r *Transceiver) dispatch(packet []byte) error {
	if packet[0] != openflow.OF13_VERSION {
		return fmt.Errorf("mis-matched OpenFlow version: negotiated=%v, packet=%v", openflow.OF13_VERSION, packet[0])
	}

	switch packet[1] {
	case openflow.OFPT_HELLO:
		msg := new(openflow.Hello)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return malformed(err)
		}
		return r.handler.OnHello(r, msg)
	case openflow.OFPT_ERROR:
		msg := new(openflow.Error)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return malformed(err)
		}
		return r.handler.OnError(r, msg)
	case openflow.OFPT_FEATURES_REPLY:
		msg := new(openflow.FeaturesReply)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return malformed(err)
		}
		return r.handler.OnFeaturesReply(r, msg)
	case openflow.OFPT_BARRIER_REPLY:
		msg := new(openflow.Message)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return malformed(err)
		}
		return r.handler.OnBarrierReply(r, msg)
	case openflow.OFPT_PACKET_IN:
		msg := new(openflow.PacketIn)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return malformed(err)
		}
		return r.handler.OnPacketIn(r, msg)
	default:
		logger.Debugf("ignoring unsupported message: type=%v", packet[1])
		return nil
	}
}
