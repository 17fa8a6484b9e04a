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
	"database/sql"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikiramandika/Tugas-adj/department"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/go-sql-driver/mysql"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

const (
	maxDeadlockRetry = 5

	deadlockErrCode uint16 = 1213

	// DefaultQueueSize is used when the queue size is not positive.
	DefaultQueueSize = 1024
	defaultLimit     = 100
)

var (
	logger = logging.MustGetLogger("database")

	maxIdleConn = runtime.NumCPU()
	maxOpenConn = maxIdleConn * 2
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS violation (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	time BIGINT NOT NULL,
	dpid BIGINT NOT NULL,
	in_port INT UNSIGNED NOT NULL,
	src_mac VARCHAR(17) NOT NULL,
	dst_mac VARCHAR(17) NOT NULL,
	src_addr VARCHAR(39) NOT NULL DEFAULT '',
	dst_addr VARCHAR(39) NOT NULL DEFAULT '',
	src_dept VARCHAR(64) NOT NULL,
	dst_dept VARCHAR(64) NOT NULL,
	PRIMARY KEY (id),
	KEY (time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const sqliteSchema = `CREATE TABLE IF NOT EXISTS violation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	dpid INTEGER NOT NULL,
	in_port INTEGER NOT NULL,
	src_mac TEXT NOT NULL,
	dst_mac TEXT NOT NULL,
	src_addr TEXT NOT NULL DEFAULT '',
	dst_addr TEXT NOT NULL DEFAULT '',
	src_dept TEXT NOT NULL,
	dst_dept TEXT NOT NULL
)`

// Audit keeps the policy violations in a SQL database. Records are queued
// and written by Run, so Record never blocks the forwarding pipeline.
type Audit struct {
	db      *sql.DB
	driver  string
	queue   chan segment.Violation
	random  *rand.Rand
	dropped uint64
}

// NewMySQL connects to the MySQL server described by dsn, e.g.
// "user:password@tcp(127.0.0.1:3306)/departd".
func NewMySQL(dsn string, queueSize int) (*Audit, error) {
	conf, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid MySQL DSN")
	}
	conf.ReadTimeout = 1 * time.Minute
	conf.WriteTimeout = 1 * time.Minute

	db, err := sql.Open("mysql", conf.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newAudit(db, "mysql", mysqlSchema, queueSize)
}

// NewSQLite opens the SQLite database file dsn. ":memory:" keeps the
// records in memory.
func NewSQLite(dsn string, queueSize int) (*Audit, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway, and every connection to ":memory:"
	// would open a different database.
	db.SetMaxOpenConns(1)

	return newAudit(db, "sqlite", sqliteSchema, queueSize)
}

func newAudit(db *sql.DB, driver, schema string, queueSize int) (*Audit, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, fmt.Sprintf("failed to connect to the %v database", driver))
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create the violation table")
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Audit{
		db:     db,
		driver: driver,
		queue:  make(chan segment.Violation, queueSize),
		random: rand.New(&randomSource{src: rand.NewSource(time.Now().Unix())}),
	}, nil
}

func (r *Audit) String() string {
	return fmt.Sprintf("Audit(%v)", r.driver)
}

// Record queues v. It drops v if the queue is full.
func (r *Audit) Record(v segment.Violation) {
	select {
	case r.queue <- v:
	default:
		atomic.AddUint64(&r.dropped, 1)
		logger.Errorf("audit queue is full: dropping a violation record: %v", v)
	}
}

// Dropped returns the number of records lost to a full queue.
func (r *Audit) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

// Run writes the queued records until ctx is canceled. Records still in the
// queue at that point are written before Run returns.
func (r *Audit) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case v := <-r.queue:
					r.write(v)
				default:
					return
				}
			}
		case v := <-r.queue:
			r.write(v)
		}
	}
}

func (r *Audit) write(v segment.Violation) {
	f := func(tx *sql.Tx) error {
		qry := "INSERT INTO violation (time, dpid, in_port, src_mac, dst_mac, src_addr, dst_addr, src_dept, dst_dept) "
		qry += "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(qry, v.Time.UnixNano(), int64(v.DPID), v.InPort, v.SrcMAC, v.DstMAC, v.SrcAddr, v.DstAddr, string(v.Source), string(v.Destination))
		return err
	}
	if err := r.query(f); err != nil {
		logger.Errorf("failed to write a violation record: %v", err)
		return
	}
	logger.Debugf("wrote a violation record: %v", v)
}

// Violations returns the latest limit records, newest first.
func (r *Audit) Violations(limit int) (result []segment.Violation, err error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	f := func(tx *sql.Tx) error {
		qry := "SELECT time, dpid, in_port, src_mac, dst_mac, src_addr, dst_addr, src_dept, dst_dept "
		qry += "FROM violation ORDER BY id DESC LIMIT ?"
		rows, err := tx.Query(qry, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = make([]segment.Violation, 0)
		for rows.Next() {
			var v segment.Violation
			var t, dpid int64
			var src, dst string
			if err := rows.Scan(&t, &dpid, &v.InPort, &v.SrcMAC, &v.DstMAC, &v.SrcAddr, &v.DstAddr, &src, &dst); err != nil {
				return err
			}
			v.Time = time.Unix(0, t)
			v.DPID = uint64(dpid)
			v.Source = department.Department(src)
			v.Destination = department.Department(dst)
			result = append(result, v)
		}

		return rows.Err()
	}
	if err = r.query(f); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Audit) Close() error {
	return r.db.Close()
}

// randomSource is a rand.Source that can be shared by goroutines.
type randomSource struct {
	sync.Mutex
	src rand.Source
}

func (r *randomSource) Int63() int64 {
	r.Lock()
	defer r.Unlock()

	return r.src.Int63()
}

func (r *randomSource) Seed(seed int64) {
	r.Lock()
	defer r.Unlock()

	r.src.Seed(seed)
}

func isDeadlock(err error) bool {
	e, ok := errors.Cause(err).(*mysql.MySQLError)
	if !ok {
		return false
	}

	return e.Number == deadlockErrCode
}

func (r *Audit) query(f func(*sql.Tx) error) error {
	deadlockRetry := 0

	for {
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}

		err = f(tx)
		// Success?
		if err == nil {
			// Yes! but Commit also may raise an error.
			err = tx.Commit()
			// Success?
			if err == nil {
				// Transaction committed successfully!
				return nil
			}
			// Fallthrough!
		}
		// No! query failed.
		tx.Rollback()

		// Need to retry due to a deadlock?
		if !isDeadlock(err) || deadlockRetry >= maxDeadlockRetry {
			// No, do not retry and just return the error.
			return err
		}
		// Yes, a deadlock occurrs. Re-execute the queries again after some sleep!
		logger.Infof("query failed due to a deadlock: caller=%v", caller())
		time.Sleep(time.Duration(r.random.Int31n(500)) * time.Millisecond)
		deadlockRetry++
	}
}

func caller() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}

	f := runtime.FuncForPC(pc)
	if f == nil {
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("%v (%v:%v)", f.Name(), file, line)
}
