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

	"github.com/hashicorp/golang-lru"
)

// flowCache remembers recently installed flow rules so a burst of packet-ins
// for the same flow does not send the same FLOW_MOD again and again.
type flowCache struct {
	cache      *lru.Cache
	expiration time.Duration
}

func newFlowCache(expiration time.Duration) *flowCache {
	c, err := lru.New(8192)
	if err != nil {
		panic(fmt.Sprintf("LRU flow cache: %v", err))
	}

	return &flowCache{
		cache:      c,
		expiration: expiration,
	}
}

func (r *flowCache) exist(key string) bool {
	if r.expiration <= 0 {
		return false
	}
	v, ok := r.cache.Get(key)
	if !ok {
		return false
	}
	// Timeout?
	if time.Since(v.(time.Time)) > r.expiration {
		return false
	}

	return true
}

func (r *flowCache) add(key string) {
	// Update if the key already exists
	r.cache.Add(key, time.Now())
}

func (r *flowCache) len() int {
	return r.cache.Len()
}
