package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kstaniek/uart-bridge/internal/metrics"
	"github.com/kstaniek/uart-bridge/internal/uart"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if cfg.showVersion {
		fmt.Printf("uart-bridge %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}
	if cfg.listPorts {
		return printPorts()
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)
	l.Info("uart_bridge_start", "version", version, "commit", commit)
	metrics.InitBuildInfo(version, commit, date)

	b, cleanup, err := initBridge(cfg, l)
	if err != nil {
		metrics.IncError(metrics.ErrEndpointInit)
		l.Error("endpoint_init_error", "error", err)
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, b, l, &wg)

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-b.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
		if cfg.mdnsEnable {
			startMDNSAdvert(ctx, cfg, l)
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := b.Run(ctx)
	cancel()
	wg.Wait()
	if runErr != nil {
		l.Error("bridge_error", "error", runErr)
		return 1
	}
	l.Info("shutdown")
	return 0
}

func startMDNSAdvert(ctx context.Context, cfg *appConfig, l *slog.Logger) {
	port, err := listenPort(cfg.metricsAddr)
	if err != nil {
		metrics.IncError(metrics.ErrMDNS)
		l.Warn("mdns_start_failed", "error", err)
		return
	}
	cleanupMDNS, err := startMDNS(ctx, cfg, port)
	if err != nil {
		metrics.IncError(metrics.ErrMDNS)
		l.Warn("mdns_start_failed", "error", err)
		return
	}
	l.Info("mdns_started", "service", mdnsServiceType, "name", mdnsInstance(cfg), "port", port)
	go func() { <-ctx.Done(); cleanupMDNS() }()
}

func printPorts() int {
	ports, err := uart.ListPorts()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ports:", err)
		return 1
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return 0
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return 0
}
