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

package northbound

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/northbound/app"
	"github.com/nikiramandika/Tugas-adj/northbound/app/monitor"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("northbound")
)

type application struct {
	instance app.Processor
	enabled  bool
}

// runner is an application that has background work.
type runner interface {
	Run(ctx context.Context)
}

type Manager struct {
	mutex      sync.Mutex
	apps       map[string]*application // Registered applications
	head, tail app.Processor
	segment    *segment.Segment
	wg         sync.WaitGroup
}

// NewManager registers the north-bound applications. auditor may be nil.
func NewManager(auditor segment.Auditor) *Manager {
	v := &Manager{
		apps:    make(map[string]*application),
		segment: segment.New(auditor),
	}
	// Registering north-bound applications
	v.register(v.segment)
	v.register(monitor.New(v.segment))

	return v
}

func (r *Manager) register(app app.Processor) {
	r.apps[strings.ToUpper(app.Name())] = &application{
		instance: app,
		enabled:  false,
	}
}

// XXX: Caller should lock the mutex before they call this function
func (r *Manager) checkDependencies(appNames []string) error {
	if len(appNames) == 0 {
		// No dependency
		return nil
	}

	for _, name := range appNames {
		app, ok := r.apps[strings.ToUpper(name)]
		logger.Debugf("app: %+v, ok: %v", app, ok)
		if !ok || !app.enabled {
			return fmt.Errorf("%v application is not loaded", name)
		}
	}

	return nil
}

func (r *Manager) Enable(appName string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	logger.Debugf("enabling %v application..", appName)
	v, ok := r.apps[strings.ToUpper(appName)]
	if !ok {
		return fmt.Errorf("unknown application: %v", appName)
	}
	if v.enabled {
		return fmt.Errorf("duplicated application: %v", appName)
	}
	app := v.instance

	if err := r.checkDependencies(app.Dependencies()); err != nil {
		return errors.Wrap(err, "checking dependencies")
	}
	if err := app.Init(); err != nil {
		return errors.Wrap(err, fmt.Sprintf("initializing %v application", app.Name()))
	}
	v.enabled = true
	logger.Infof("enabled %v application", app.Name())

	if r.head == nil {
		r.head = app
		r.tail = app
		return nil
	}
	r.tail.SetNext(app)
	r.tail = app

	return nil
}

// OnEvent hands ev to the first enabled application.
func (r *Manager) OnEvent(ev network.Event) error {
	r.mutex.Lock()
	head := r.head
	r.mutex.Unlock()

	if head == nil {
		return nil
	}

	return head.OnEvent(ev)
}

// Start runs the background work of the enabled applications until ctx is
// canceled. Wait blocks until they are finished.
func (r *Manager) Start(ctx context.Context) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, v := range r.apps {
		if !v.enabled {
			continue
		}
		run, ok := v.instance.(runner)
		if !ok {
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			run.Run(ctx)
		}()
	}
}

func (r *Manager) Wait() {
	r.wg.Wait()
}

// Segment returns the segment application. Its engine is nil until the
// application is enabled.
func (r *Manager) Segment() *segment.Segment {
	return r.segment
}

func (r *Manager) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var buf bytes.Buffer
	app := r.head
	for app != nil {
		buf.WriteString(fmt.Sprintf("%v\n", app))
		next, ok := app.Next()
		if !ok {
			break
		}
		app = next
	}

	return buf.String()
}
