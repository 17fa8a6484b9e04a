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

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nikiramandika/Tugas-adj/api"
	"github.com/nikiramandika/Tugas-adj/api/core"
	"github.com/nikiramandika/Tugas-adj/database"
	"github.com/nikiramandika/Tugas-adj/log"
	"github.com/nikiramandika/Tugas-adj/network"
	"github.com/nikiramandika/Tugas-adj/northbound"
	"github.com/nikiramandika/Tugas-adj/northbound/app/segment"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	programName     = "departd"
	programVersion  = "0.1.0"
	defaultLogLevel = logging.INFO
)

var (
	logger            = logging.MustGetLogger("main")
	loggerLeveled     logging.LeveledBackend
	showVersion       = flag.Bool("version", false, "Show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "absolute path of the configuration file")
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	initConfig()
	if err := initLog(); err != nil {
		logger.Fatalf("failed to init log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	audit, err := initAudit(ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to init the audit trail: %v", err)
	}
	manager, err := createAppManager(audit)
	if err != nil {
		logger.Fatalf("failed to create application manager: %v", err)
	}
	manager.Start(ctx)
	controller := network.NewController(manager)
	initAPIServer(ctx, manager.Segment(), audit)
	initSignalHandler(controller, manager, cancel)

	listen(ctx, viper.GetInt("default.port"), controller)

	logger.Info("waiting for the switch sessions to finish...")
	controller.Wait()
	manager.Wait()
	wg.Wait()
	if audit != nil {
		audit.Close()
	}
}

func initConfig() {
	viper.SetConfigFile(*defaultConfigFile)
	viper.SetDefault("default.port", 6633)
	viper.SetDefault("default.log_level", "info")
	viper.SetDefault("default.log_backend", log.BackendSyslog)
	viper.SetDefault("default.applications", "segment, monitor")
	viper.SetDefault("rest.port", 7070)
	viper.SetDefault("audit.driver", "none")
	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatalf("failed to read the config file: %v", err)
	}
	// Watching and re-reading config file whenever it changes.
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Ignore the WRITE operation to avoid reading empty config.
		if e.Op != fsnotify.Write {
			return
		}

		if loggerLeveled != nil {
			// Set log level for all modules
			loggerLeveled.SetLevel(log.ParseLevel(viper.GetString("default.log_level"), defaultLogLevel), "")
		}
	})
	viper.WatchConfig()
	if err := validateConfig(); err != nil {
		logger.Fatalf("failed to validate the configuration: %v", err)
	}
}

func validateConfig() error {
	if port := viper.GetInt("default.port"); port <= 0 || port > 0xFFFF {
		return errors.New("invalid default.port")
	}
	if len(viper.GetString("default.applications")) == 0 {
		return errors.New("invalid default.applications")
	}
	if port := viper.GetInt("rest.port"); port < 0 || port > 0xFFFF {
		return errors.New("invalid rest.port")
	}
	if viper.GetBool("rest.tls") {
		if viper.GetString("rest.cert_file") == "" || viper.GetString("rest.key_file") == "" {
			return errors.New("rest.tls requires rest.cert_file and rest.key_file")
		}
	}
	switch viper.GetString("audit.driver") {
	case "none", "":
	case "sqlite", "mysql":
		if viper.GetString("audit.dsn") == "" {
			return errors.New("invalid audit.dsn")
		}
	default:
		return fmt.Errorf("invalid audit.driver: %v", viper.GetString("audit.driver"))
	}

	return nil
}

func initLog() error {
	level := viper.GetString("default.log_level")
	l := log.ParseLevel(level, defaultLogLevel)

	leveled, err := log.Init(viper.GetString("default.log_backend"), programName, l)
	if err != nil {
		return err
	}
	loggerLeveled = leveled
	if !strings.EqualFold(l.String(), level) {
		logger.Infof("invalid log level=%v, defaulting to %v..", level, defaultLogLevel)
	}

	return nil
}

// initAudit returns nil if the audit trail is disabled.
func initAudit(ctx context.Context, wg *sync.WaitGroup) (*database.Audit, error) {
	var audit *database.Audit
	var err error

	dsn := viper.GetString("audit.dsn")
	queue := viper.GetInt("audit.queue")
	switch viper.GetString("audit.driver") {
	case "sqlite":
		audit, err = database.NewSQLite(dsn, queue)
	case "mysql":
		audit, err = database.NewMySQL(dsn, queue)
	default:
		logger.Info("audit trail is disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("audit trail is enabled: %v", audit)

	wg.Add(1)
	go func() {
		defer wg.Done()
		audit.Run(ctx)
		logger.Debugf("audit writer terminated")
	}()

	return audit, nil
}

func initAPIServer(ctx context.Context, seg *segment.Segment, audit *database.Audit) {
	port := viper.GetInt("rest.port")
	if port == 0 {
		logger.Info("REST API server is disabled")
		return
	}

	go func() {
		conf := api.Server{}
		conf.Port = uint16(port)
		if viper.GetBool("rest.tls") {
			conf.TLS.Cert = viper.GetString("rest.cert_file")
			conf.TLS.Key = viper.GetString("rest.key_file")
		}

		srv := &core.API{Server: conf, Segment: seg}
		// Avoid a typed nil in the interface.
		if audit != nil {
			srv.Audit = audit
		}
		if err := srv.Serve(ctx); err != nil {
			logger.Fatalf("failed to run the API server: %v", err)
		}
		logger.Debugf("API server terminated")
	}()
}

func initSignalHandler(controller *network.Controller, manager *northbound.Manager, cancel context.CancelFunc) {
	go func() {
		c := make(chan os.Signal, 5)
		signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

		// Infinite loop.
		for {
			s := <-c
			if s == syscall.SIGTERM || s == syscall.SIGINT {
				// Graceful shutdown
				logger.Warning("Shutting down...")
				cancel()
				// Timeout for cancelation
				time.Sleep(5 * time.Second)
				os.Exit(0)
			} else if s == syscall.SIGHUP {
				fmt.Println("* Controller status:")
				fmt.Println(controller.String())
				fmt.Printf("\n* Manager status:\n")
				fmt.Println(manager.String())
			}
		}
	}()
}

func listen(ctx context.Context, port int, controller *network.Controller) {
	type KeepAliver interface {
		SetKeepAlive(keepalive bool) error
		SetKeepAlivePeriod(d time.Duration) error
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		logger.Errorf("failed to listen on %v port: %v", port, err)
		return
	}
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	logger.Infof("listening for OpenFlow switches on %v port", port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("terminating the main listener loop...")
				return
			}
			logger.Errorf("failed to accept a new connection: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		logger.Infof("new device is connected from %v", conn.RemoteAddr())

		if v, ok := conn.(KeepAliver); ok {
			logger.Debug("trying to enable socket keepalive..")
			if err := v.SetKeepAlive(true); err == nil {
				logger.Debug("setting socket keepalive period...")
				v.SetKeepAlivePeriod(time.Duration(5) * time.Second)
			} else {
				logger.Errorf("failed to enable socket keepalive: %v", err)
			}
		}
		controller.AddConnection(ctx, conn)
	}
}

func createAppManager(audit *database.Audit) (*northbound.Manager, error) {
	var auditor segment.Auditor
	// Avoid a typed nil in the interface.
	if audit != nil {
		auditor = audit
	}
	manager := northbound.NewManager(auditor)

	apps, err := parseApplications()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse applications")
	}
	for _, v := range apps {
		if err := manager.Enable(v); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("enabling %v", v))
		}
	}

	return manager, nil
}

func parseApplications() ([]string, error) {
	// Remove spaces, and then split it using comma
	var tokens []string
	for _, v := range strings.Split(strings.Replace(viper.GetString("default.applications"), " ", "", -1), ",") {
		if v != "" {
			tokens = append(tokens, v)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty application")
	}

	return tokens, nil
}
