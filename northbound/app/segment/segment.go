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
	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/northbound/app"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	logger = logging.MustGetLogger("segment")
)

// Segment is a learning switch that keeps departments apart according to
// the adjacency policy of the configured profile.
type Segment struct {
	app.BaseProcessor
	auditor Auditor
	profile *department.Profile
	engine  *Engine
}

// New returns an uninitialized application. auditor may be nil.
func New(auditor Auditor) *Segment {
	return &Segment{
		auditor: auditor,
	}
}

func (r *Segment) Init() error {
	profile, err := department.LoadProfile(viper.Sub("departments"))
	if err != nil {
		return errors.Wrap(err, "failed to load the department profile")
	}
	classifier, err := profile.Classifier()
	if err != nil {
		return err
	}

	conf := Config{
		Classifier:         classifier,
		Policy:             profile.Policy(),
		Defaults:           profile.Switches,
		Priority:           DefaultFlowPriority,
		CacheExpiration:    5 * time.Second,
		MaxFloodsPerSecond: 100,
		Auditor:            r.auditor,
	}
	if viper.IsSet("flow.priority") {
		p := viper.GetInt("flow.priority")
		if p <= baselinePriority || p > 0xFFFF {
			return fmt.Errorf("invalid flow.priority: %v", p)
		}
		conf.Priority = uint16(p)
	}
	idle := viper.GetInt("flow.idle_timeout")
	hard := viper.GetInt("flow.hard_timeout")
	if idle < 0 || idle > 0xFFFF || hard < 0 || hard > 0xFFFF {
		return fmt.Errorf("invalid flow timeout: idle=%v, hard=%v", idle, hard)
	}
	conf.IdleTimeout = uint16(idle)
	conf.HardTimeout = uint16(hard)
	if viper.IsSet("flow.cache_expiration") {
		conf.CacheExpiration = viper.GetDuration("flow.cache_expiration")
	}
	if viper.IsSet("flood.max_per_second") {
		max := viper.GetInt("flood.max_per_second")
		if max < 0 {
			return fmt.Errorf("invalid flood.max_per_second: %v", max)
		}
		conf.MaxFloodsPerSecond = uint(max)
	}

	r.profile = profile
	r.engine = NewEngine(conf)
	profile.Log()
	logger.Infof("flow rule: priority=%v, idle_timeout=%v, hard_timeout=%v, cache_expiration=%v",
		conf.Priority, conf.IdleTimeout, conf.HardTimeout, conf.CacheExpiration)

	return nil
}

func (r *Segment) Name() string {
	return "Segment"
}

func (r *Segment) String() string {
	return fmt.Sprintf("%v", r.Name())
}

// Engine returns nil before Init.
func (r *Segment) Engine() *Engine {
	return r.engine
}

func (r *Segment) Profile() *department.Profile {
	return r.profile
}

func (r *Segment) OnEvent(ev network.Event) error {
	if err := r.engine.Handle(ev); err != nil {
		logger.Errorf("failed to handle %v: %v", ev, err)
	}

	return r.BaseProcessor.OnEvent(ev)
}
