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
	"sync"
	"time"
)

// stormController limits the number of floods per second on one switch.
type stormController struct {
	mutex  sync.Mutex
	max    uint
	floods []time.Time
	now    func() time.Time
}

// max is the number of floods that are allowed per second. Zero disables the limit.
func newStormController(max uint) *stormController {
	return &stormController{
		max:    max,
		floods: make([]time.Time, 0),
		now:    time.Now,
	}
}

// allow reports whether one more flood may be sent now.
func (r *stormController) allow() bool {
	if r.max == 0 {
		return true
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	t := r.now()
	floods := append(r.floods, t)
	l := uint(len(floods))
	if l <= r.max {
		r.floods = floods
		return true
	}
	// Only allows r.max floods per 1 second
	if t.Sub(floods[l-r.max-1]) > 1*time.Second {
		// Shrink (l > r.max)
		r.floods = floods[l-r.max : l]
		return true
	}

	// Deny! r.floods should not be updated!
	return false
}
