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

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/northbound/app"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

var (
	logger = logging.MustGetLogger("monitor")
)

type SessionSource interface {
	Sessions() []*segment.Session
}

// Monitor reports switch up/down events and periodically logs the
// statistics of every attached switch.
type Monitor struct {
	app.BaseProcessor
	segment  *segment.Segment
	interval time.Duration
}

func New(s *segment.Segment) *Monitor {
	if s == nil {
		panic("nil segment application")
	}

	return &Monitor{segment: s}
}

func (r *Monitor) Init() error {
	r.interval = time.Minute
	if viper.IsSet("monitor.interval") {
		r.interval = viper.GetDuration("monitor.interval")
	}
	if r.interval < 0 {
		return fmt.Errorf("invalid monitor.interval: %v", r.interval)
	}

	return nil
}

func (r *Monitor) Name() string {
	return "Monitor"
}

func (r *Monitor) Dependencies() []string {
	return []string{r.segment.Name()}
}

func (r *Monitor) String() string {
	return fmt.Sprintf("%v", r.Name())
}

func (r *Monitor) OnEvent(ev network.Event) error {
	switch ev.Type {
	case network.EventSwitchConnected:
		logger.Warningf("switch device up: DPID=%v", ev.Switch.DPID())
	case network.EventSwitchDisconnected:
		logger.Warningf("switch device down: DPID=%v", ev.Switch.DPID())
	}

	return r.BaseProcessor.OnEvent(ev)
}

// Run logs the statistics every interval until ctx is canceled. A zero
// interval disables the report.
func (r *Monitor) Run(ctx context.Context) {
	if r.interval == 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e := r.segment.Engine(); e != nil {
				report(e.Registry())
			}
		}
	}
}

func report(src SessionSource) int {
	sessions := src.Sessions()
	for _, s := range sessions {
		logger.Infof("switch statistics: %v, connected=%v", s, time.Since(s.ConnectedAt()).Round(time.Second))
	}

	return len(sessions)
}
