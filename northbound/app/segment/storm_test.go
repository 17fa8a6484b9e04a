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
	"testing"
	"time"
)

type clock struct {
	t time.Time
}

func (r *clock) now() time.Time {
	return r.t
}

func (r *clock) advance(d time.Duration) {
	r.t = r.t.Add(d)
}

func TestStorm(t *testing.T) {
	max := uint(100)
	c := &clock{t: time.Unix(1000, 0)}
	storm := newStormController(max)
	storm.now = c.now

	for i := uint(0); i < max; i++ {
		if !storm.allow() {
			t.Fatalf("Unexpected denial: flood=%v", i+1)
		}
		c.advance(time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		if storm.allow() {
			t.Fatalf("Unexpected flood: expected=denied, got=allowed")
		}
	}
	c.advance(1 * time.Second)
	for i := uint(0); i < max-1; i++ {
		if !storm.allow() {
			t.Fatalf("Unexpected denial: flood=%v", max+i+1)
		}
	}
}

func TestPeriodicStorm(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	storm := newStormController(1)
	storm.now = c.now

	for i := 0; i < 10; i++ {
		if !storm.allow() {
			t.Fatalf("Unexpected denial: count=%v", i)
		}
		if storm.allow() {
			t.Fatalf("Unexpected flood: count=%v", i)
		}
		c.advance(1100 * time.Millisecond)
	}
}

func TestUnlimitedStorm(t *testing.T) {
	storm := newStormController(0)
	for i := 0; i < 1000; i++ {
		if !storm.allow() {
			t.Fatalf("Unexpected denial: count=%v", i)
		}
	}
}

func TestFloodSuppressed(t *testing.T) {
	e := newTestEngine(t, "mac", nil)
	e.registry.maxFloods = 1
	sw, s := connect(t, e, 1)

	for i := 0; i < 3; i++ {
		d := e.OnPacketIn(s, packetIn(1, frame(t, macA, macB)))
		if d.Verdict != Flood {
			t.Fatalf("Unexpected verdict: expected=%v, got=%v", Flood, d.Verdict)
		}
	}
	if len(sw.outs) != 1 {
		t.Fatalf("Unexpected number of floods: expected=1, got=%v", len(sw.outs))
	}
}
