package uart

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Port abstracts an opened serial device for testability.
// A Read that waits out the configured timeout returns zero bytes with either
// a nil error or io.EOF, depending on the driver.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener brings up one endpoint. Implementations return a *ConfigurationError
// when the device or driver rejects the parameters.
type Opener func(cfg EndpointConfig) (Port, error)

// Driver names.
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

var openers = map[string]Opener{
	DriverBugst: openBugst,
	DriverTarm:  openTarm,
}

// Drivers lists the registered driver names.
func Drivers() []string {
	names := make([]string, 0, len(openers))
	for n := range openers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OpenerFor returns the opener of the named driver.
func OpenerFor(driver string) (Opener, error) {
	o, ok := openers[driver]
	if !ok {
		return nil, fmt.Errorf("%w %q (use %v)", ErrUnknownDriver, driver, Drivers())
	}
	return o, nil
}

// Pair owns the two endpoints for the lifetime of the bridge.
type Pair struct {
	Host     Port
	External Port
}

// Close closes both ports, joining any errors.
func (p *Pair) Close() error {
	var errs []error
	if p.Host != nil {
		if err := p.Host.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", HostEndpoint, err))
		}
	}
	if p.External != nil {
		if err := p.External.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ExternalEndpoint, err))
		}
	}
	return errors.Join(errs...)
}

// OpenPair validates both endpoint configs and then opens them, host first.
// Nothing is opened when either config is invalid, and the host port is
// closed again if the external one fails, so the caller never sees a
// half-initialized pair.
func OpenPair(host, external EndpointConfig, open Opener, l *slog.Logger) (*Pair, error) {
	if err := host.Validate(); err != nil {
		return nil, err
	}
	if err := external.Validate(); err != nil {
		return nil, err
	}
	if host.Device == external.Device {
		return nil, &ConfigurationError{Endpoint: external.Name, Field: "device", Err: fmt.Errorf("device %s already used by %s", external.Device, host.Name)}
	}
	hp, err := openOne(host, open, l)
	if err != nil {
		return nil, err
	}
	ep, err := openOne(external, open, l)
	if err != nil {
		if cerr := hp.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return &Pair{Host: hp, External: ep}, nil
}

func openOne(cfg EndpointConfig, open Opener, l *slog.Logger) (Port, error) {
	p, err := open(cfg)
	if err != nil {
		return nil, configError(cfg.Name, "device", err)
	}
	attrs := []any{"endpoint", cfg.Name, "device", cfg.Device, "baud", cfg.Baud, "frame", cfg.Frame(), "flow", cfg.Flow.String(), "read_timeout", cfg.ReadTimeout}
	l.Info("serial_open", attrs...)
	if cfg.Pins.Explicit() {
		// Host serial devices are wired by their device node; the pair is
		// recorded so the startup log matches the board wiring.
		l.Warn("pins_not_routable", "endpoint", cfg.Name, "tx", cfg.Pins.TX, "rx", cfg.Pins.RX)
	}
	return p, nil
}
