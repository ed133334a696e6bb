package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ehrlich-b/acceptord"
	"github.com/ehrlich-b/acceptord/examples/echobusiness"
	"github.com/ehrlich-b/acceptord/internal/logging"
	"github.com/ehrlich-b/acceptord/internal/logsrv"
	"github.com/ehrlich-b/acceptord/internal/process"
)

func main() {
	// Must run before flag.Parse and before anything else touches the
	// registry: a re-exec'd child carries ACCEPTORD_ENTRY in its
	// environment and never reaches the rest of main.
	process.MaybeReExec()

	var (
		addr        = flag.String("addr", "127.0.0.1:9999", "TCP address to accept connections on")
		metricsAddr = flag.String("metrics-addr", "127.0.0.1:9998", "Address to serve /metrics on")
		logDir      = flag.String("log-dir", logsrv.DefaultDir, "Directory for the wire-level log server's file and socket")
		workers     = flag.Int("dispatch-workers", 2, "Size of the internal task-bus dispatch pool")
		verbose     = flag.Bool("v", false, "Verbose diagnostic logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logrus.DebugLevel
	}
	logger := logging.New(logConfig)
	logging.SetDefault(logger)

	reg := prometheus.NewRegistry()
	m := acceptord.NewRegisteredMetrics(reg)

	logSrv, err := logsrv.NewServer(*logDir, logger, m)
	if err != nil {
		logger.Errorf("acceptord: start log server: %v", err)
		os.Exit(1)
	}
	if err := logSrv.Start(); err != nil {
		logger.Errorf("acceptord: start log server: %v", err)
		os.Exit(1)
	}
	defer logSrv.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		logger.Infof("acceptord: serving metrics on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logger.Errorf("acceptord: metrics server: %v", err)
		}
	}()

	srv, err := acceptord.Init(echobusiness.EntryName, acceptord.Params{
		Addr:            *addr,
		DispatchWorkers: *workers,
	}, &acceptord.Options{
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		logger.Errorf("acceptord: init: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("acceptord: received shutdown signal")
		srv.Close()
	}()

	fmt.Printf("acceptord listening on %s, business pid %d\n", srv.Addr(), srv.ChildPID())
	if err := srv.Run(); err != nil {
		logger.Errorf("acceptord: run: %v", err)
		os.Exit(1)
	}
	srv.Wait()
}
