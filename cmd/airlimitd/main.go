// cmd/airlimitd/main.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// airlimitd serves height restriction queries over HTTP.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/restrict"
	"github.com/skyshow/airlimit/server"
	"github.com/skyshow/airlimit/util"
)

var (
	configFile  = flag.String("config", "", "YAML configuration file")
	listen      = flag.String("listen", "", "address to listen on (default "+server.DefaultListenAddress+")")
	registryURI = flag.String("registry", "", "airport registry: file, directory, gs://bucket/object or s3://bucket/key")
	provider    = flag.String("provider", "", "default geometry provider")
	logLevel    = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir      = flag.String("logdir", "", "log file directory")
	cpuprofile  = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()

	config, err := server.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *configFile, err)
		os.Exit(1)
	}
	applyFlags(&config)

	lg := log.New(true, config.LogLevel, config.LogDir)
	defer lg.CatchAndReportCrash()

	if err := run(config, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags overrides configuration file settings with the flags that
// were given.
func applyFlags(c *server.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			c.Listen = *listen
		case "registry":
			c.Registry = *registryURI
		case "provider":
			c.Provider = *provider
		case "loglevel":
			c.LogLevel = *logLevel
		case "logdir":
			c.LogDir = *logDir
		}
	})
}

func newEngine(reg *aviation.Registry, config server.Config, lg *log.Logger) *restrict.Engine {
	eng := restrict.NewEngine(reg, lg)
	eng.BatchConcurrency = config.BatchConcurrency
	return eng
}

func run(config server.Config, lg *log.Logger) error {
	if err := config.Check(); err != nil {
		return err
	}

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		return err
	}
	defer profiler.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := config.RemoteConfig()
	if err != nil {
		return err
	}
	reg, err := aviation.OpenRegistry(ctx, config.Registry, rc, lg)
	if err != nil {
		return err
	}
	lg.Info("loaded registry", slog.String("version", reg.Version), slog.Any("airports", reg.Ids()))

	srv, err := server.NewServer(newEngine(reg, config, lg), config, lg)
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              config.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Infof("listening on %s", config.Listen)
		fmt.Printf("Launching HTTP server on %s\n", config.Listen)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
