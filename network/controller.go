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
	"fmt"
	"net"
	"sync"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("network")
)

// Controller accepts switch connections and runs one session per switch.
type Controller struct {
	listener   EventListener
	cancellers *canceller
	wg         sync.WaitGroup
}

func NewController(listener EventListener) *Controller {
	if listener == nil {
		panic("Listener is nil")
	}

	return &Controller{
		listener:   listener,
		cancellers: newCanceller(),
	}
}

// AddConnection starts a session on c. The session ends when ctx is
// canceled or the switch disconnects.
func (r *Controller) AddConnection(ctx context.Context, c net.Conn) {
	s := newSession(sessionConfig{
		conn:       c,
		listener:   r.listener,
		cancellers: r.cancellers,
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s.Run(ctx)
	}()
}

// Wait blocks until every session has ended.
func (r *Controller) Wait() {
	r.wg.Wait()
}

// NumSwitches returns the number of switches that completed the handshake.
func (r *Controller) NumSwitches() int {
	return r.cancellers.len()
}

func (r *Controller) String() string {
	return fmt.Sprintf("Switches=%v", r.NumSwitches())
}
