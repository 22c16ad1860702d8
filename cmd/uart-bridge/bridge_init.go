package main

import (
	"log/slog"

	"github.com/kstaniek/uart-bridge/internal/relay"
	"github.com/kstaniek/uart-bridge/internal/uart"
)

// openerFor is a hook for tests (overridden in unit tests).
var openerFor = uart.OpenerFor

// initBridge brings up both endpoints and builds the bridge over them.
// The returned cleanup closes the ports. Nothing is left open on error.
func initBridge(cfg *appConfig, l *slog.Logger) (*relay.Bridge, func(), error) {
	host, ext, err := cfg.endpoints()
	if err != nil {
		return nil, func() {}, err
	}
	rc, err := cfg.relayConfig()
	if err != nil {
		return nil, func() {}, err
	}
	open, err := openerFor(cfg.driver)
	if err != nil {
		return nil, func() {}, err
	}
	l.Info("endpoint_config", "endpoint", host.Name, "config", host.String(), "driver", cfg.driver)
	l.Info("endpoint_config", "endpoint", ext.Name, "config", ext.String(), "driver", cfg.driver)
	pair, err := uart.OpenPair(host, ext, open, l)
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if err := pair.Close(); err != nil {
			l.Warn("serial_close_error", "error", err)
		}
	}
	return relay.NewBridge(pair.Host, pair.External, rc, l), cleanup, nil
}
