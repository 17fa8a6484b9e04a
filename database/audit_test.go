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

package database

import (
	"context"
	"testing"
	"time"

	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newViolation(n int) segment.Violation {
	return segment.Violation{
		Time:        time.Unix(1700000000, int64(n)),
		DPID:        0xFFFFFFFFFFFFFFF0 + uint64(n),
		InPort:      uint32(n),
		SrcMAC:      "00:00:00:00:01:01",
		DstMAC:      "00:00:00:00:03:01",
		SrcAddr:     "10.0.1.1",
		DstAddr:     "10.0.3.1",
		Source:      "A",
		Destination: "C",
	}
}

func TestAudit(t *testing.T) {
	audit, err := NewSQLite(":memory:", 16)
	require.NoError(t, err)
	defer audit.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		audit.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 3; i++ {
		audit.Record(newViolation(i))
	}
	require.Eventually(t, func() bool {
		v, err := audit.Violations(10)
		return err == nil && len(v) == 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	v, err := audit.Violations(2)
	require.NoError(t, err)
	require.Len(t, v, 2)
	// Newest first.
	expected := []segment.Violation{newViolation(3), newViolation(2)}
	if diff := cmp.Diff(expected, v); diff != "" {
		t.Fatalf("Unexpected violations (-want +got):\n%v", diff)
	}
}

func TestAuditQueueFull(t *testing.T) {
	audit, err := NewSQLite(":memory:", 1)
	require.NoError(t, err)
	defer audit.Close()

	audit.Record(newViolation(1))
	audit.Record(newViolation(2))
	if audit.Dropped() != 1 {
		t.Fatalf("Unexpected dropped records: expected=1, got=%v", audit.Dropped())
	}

	// Run drains the queue even when it is already canceled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	audit.Run(ctx)

	v, err := audit.Violations(0)
	require.NoError(t, err)
	require.Len(t, v, 1)
	require.Equal(t, uint32(1), v[0].InPort)
}

func TestInvalidMySQLDSN(t *testing.T) {
	if _, err := NewMySQL("not a dsn", 0); err == nil {
		t.Fatalf("Expected an error, got nil")
	}
}
