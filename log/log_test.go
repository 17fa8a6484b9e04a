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

package log

import (
	"strconv"
	"testing"

	"github.com/op/go-logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected logging.Level
	}{
		{"debug", logging.DEBUG},
		{"Warning", logging.WARNING},
		{"ERROR", logging.ERROR},
		{"verbose", logging.NOTICE},
		{"", logging.NOTICE},
	}
	for _, v := range tests {
		if got := ParseLevel(v.name, logging.NOTICE); got != v.expected {
			t.Fatalf("Unexpected level for %q: expected=%v, got=%v", v.name, v.expected, got)
		}
	}
}

func TestInit(t *testing.T) {
	leveled, err := Init(BackendStderr, "departd", logging.ERROR)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if leveled.IsEnabledFor(logging.INFO, "test") {
		t.Fatalf("Unexpected INFO level with the ERROR threshold")
	}
	leveled.SetLevel(logging.DEBUG, "")
	if !leveled.IsEnabledFor(logging.INFO, "test") {
		t.Fatalf("Expected INFO level after lowering the threshold")
	}

	if _, err := Init("kafka", "departd", logging.INFO); err == nil {
		t.Fatalf("Expected an error for an unknown backend")
	}
}

func TestGoRoutineID(t *testing.T) {
	if _, err := strconv.ParseUint(getGoRoutineID(), 10, 64); err != nil {
		t.Fatalf("Unexpected goroutine ID: %v", err)
	}
}
