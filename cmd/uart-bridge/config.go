package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kstaniek/uart-bridge/internal/logging"
	"github.com/kstaniek/uart-bridge/internal/relay"
	"github.com/kstaniek/uart-bridge/internal/uart"
)

const envPrefix = "UART_BRIDGE_"

type appConfig struct {
	hostDev      string
	hostBaud     int
	hostDataBits int
	hostParity   string
	hostStopBits string
	hostFlow     string

	extDev      string
	extBaud     int
	extDataBits int
	extParity   string
	extStopBits string
	extFlow     string
	extTXPin    int
	extRXPin    int

	driver      string
	readTO      time.Duration
	yield       time.Duration
	bufSize     int
	txQueue     int
	faultPolicy string
	backoffMin  time.Duration
	backoffMax  time.Duration

	logFormat       string
	logLevel        string
	logPayload      bool
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string

	listPorts   bool
	showVersion bool
}

func newFlagSet(cfg *appConfig) *flag.FlagSet {
	fs := flag.NewFlagSet("uart-bridge", flag.ContinueOnError)
	fs.StringVar(&cfg.hostDev, "host-dev", "/dev/ttyGS0", "Host-facing serial device")
	fs.IntVar(&cfg.hostBaud, "host-baud", 115200, "Host-facing baud rate")
	fs.IntVar(&cfg.hostDataBits, "host-data-bits", 8, "Host-facing data bits (5-8)")
	fs.StringVar(&cfg.hostParity, "host-parity", "none", "Host-facing parity: none|odd|even|mark|space")
	fs.StringVar(&cfg.hostStopBits, "host-stop-bits", "1", "Host-facing stop bits: 1|1.5|2")
	fs.StringVar(&cfg.hostFlow, "host-flow", "none", "Host-facing flow control (only none is supported)")

	fs.StringVar(&cfg.extDev, "ext-dev", "/dev/ttyS1", "External serial device")
	fs.IntVar(&cfg.extBaud, "ext-baud", 115200, "External baud rate (9600 for slow peripherals)")
	fs.IntVar(&cfg.extDataBits, "ext-data-bits", 8, "External data bits (5-8)")
	fs.StringVar(&cfg.extParity, "ext-parity", "none", "External parity: none|odd|even|mark|space")
	fs.StringVar(&cfg.extStopBits, "ext-stop-bits", "1", "External stop bits: 1|1.5|2")
	fs.StringVar(&cfg.extFlow, "ext-flow", "none", "External flow control (only none is supported)")
	fs.IntVar(&cfg.extTXPin, "ext-tx-pin", uart.NoPin, "External TX pin (-1 = board default)")
	fs.IntVar(&cfg.extRXPin, "ext-rx-pin", uart.NoPin, "External RX pin (-1 = board default)")

	fs.StringVar(&cfg.driver, "driver", uart.DriverBugst, "Serial driver: bugst|tarm")
	fs.DurationVar(&cfg.readTO, "read-timeout", 20*time.Millisecond, "Max wait per read when no bytes are available")
	fs.DurationVar(&cfg.yield, "yield", relay.DefaultYield, "Pause after every forwarding iteration")
	fs.IntVar(&cfg.bufSize, "buffer", relay.DefaultBufferSize, "Transfer buffer capacity in bytes")
	fs.IntVar(&cfg.txQueue, "tx-queue", 0, "Queued chunks per destination (0 = synchronous writes)")
	fs.StringVar(&cfg.faultPolicy, "fault-policy", "backoff", "Transfer fault policy: continue|backoff|halt")
	fs.DurationVar(&cfg.backoffMin, "fault-backoff-min", relay.DefaultBackoffMin, "Initial backoff after a transfer fault")
	fs.DurationVar(&cfg.backoffMax, "fault-backoff-max", relay.DefaultBackoffMax, "Maximum backoff after repeated faults")

	fs.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text|json")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.BoolVar(&cfg.logPayload, "log-payload", false, "Log every forwarded chunk at debug level")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	fs.DurationVar(&cfg.logMetricsEvery, "log-metrics-interval", 0, "If >0, periodically log relay counters")
	fs.BoolVar(&cfg.mdnsEnable, "mdns-enable", false, "Advertise the metrics endpoint via mDNS")
	fs.StringVar(&cfg.mdnsName, "mdns-name", "", "mDNS instance name (default uart-bridge-<hostname>)")

	fs.BoolVar(&cfg.listPorts, "list-ports", false, "List serial ports and exit")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	return fs
}

// parseFlags parses args, applies UART_BRIDGE_* overrides for flags that were
// not given explicitly, and validates the result.
func parseFlags(args []string) (*appConfig, error) {
	cfg := &appConfig{}
	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	setFlags := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	if err := applyEnvOverrides(fs, setFlags); err != nil {
		return nil, fmt.Errorf("environment override error: %w", err)
	}
	if cfg.showVersion || cfg.listPorts {
		return cfg, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// envName maps a flag name to its environment variable (ext-baud -> UART_BRIDGE_EXT_BAUD).
func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnvOverrides sets every flag not in set from its environment variable.
// Empty values are ignored; booleans also accept yes/no/on/off. The first
// parse error is returned after all variables were tried.
func applyEnvOverrides(fs *flag.FlagSet, set map[string]struct{}) error {
	var firstErr error
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "version" {
			return
		}
		if _, ok := set[f.Name]; ok {
			return
		}
		key := envName(f.Name)
		v, ok := os.LookupEnv(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			v = normalizeBool(v)
		}
		if err := fs.Set(f.Name, v); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid %s: %w", key, err)
		}
	})
	return firstErr
}

func normalizeBool(v string) string {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return "true"
	case "0", "false", "no", "off":
		return "false"
	}
	return v
}

// validate performs semantic validation of the parsed configuration.
// It does not open devices or listeners.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	if _, err := logging.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	if _, err := uart.OpenerFor(c.driver); err != nil {
		return err
	}
	host, ext, err := c.endpoints()
	if err != nil {
		return err
	}
	if err := host.Validate(); err != nil {
		return err
	}
	if err := ext.Validate(); err != nil {
		return err
	}
	if host.Device == ext.Device {
		return fmt.Errorf("host-dev and ext-dev must differ (both %s)", host.Device)
	}
	rc, err := c.relayConfig()
	if err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	if c.logMetricsEvery < 0 {
		return fmt.Errorf("log-metrics-interval must be >= 0")
	}
	return nil
}

// endpoints builds the host-facing and external endpoint configurations.
func (c *appConfig) endpoints() (uart.EndpointConfig, uart.EndpointConfig, error) {
	host := uart.DefaultHost(c.hostDev)
	if err := c.applySerial(&host, c.hostBaud, c.hostDataBits, c.hostParity, c.hostStopBits, c.hostFlow); err != nil {
		return host, uart.EndpointConfig{}, fmt.Errorf("host: %w", err)
	}
	ext := uart.DefaultExternal(c.extDev, c.extBaud)
	if err := c.applySerial(&ext, c.extBaud, c.extDataBits, c.extParity, c.extStopBits, c.extFlow); err != nil {
		return host, ext, fmt.Errorf("external: %w", err)
	}
	ext.Pins = uart.Pins{TX: c.extTXPin, RX: c.extRXPin}
	return host, ext, nil
}

func (c *appConfig) applySerial(ep *uart.EndpointConfig, baud, dataBits int, parity, stopBits, flow string) error {
	p, err := uart.ParseParity(parity)
	if err != nil {
		return err
	}
	sb, err := uart.ParseStopBits(stopBits)
	if err != nil {
		return err
	}
	fc, err := uart.ParseFlowControl(flow)
	if err != nil {
		return err
	}
	ep.Baud, ep.DataBits, ep.Parity, ep.StopBits, ep.Flow = baud, dataBits, p, sb, fc
	ep.ReadTimeout = c.readTO
	return nil
}

func (c *appConfig) relayConfig() (relay.Config, error) {
	policy, err := relay.ParseFaultPolicy(c.faultPolicy)
	if err != nil {
		return relay.Config{}, err
	}
	rc := relay.DefaultConfig()
	rc.BufferSize = c.bufSize
	rc.Yield = c.yield
	rc.Policy = policy
	rc.Backoff = relay.Backoff{Min: c.backoffMin, Max: c.backoffMax}
	rc.TxQueue = c.txQueue
	rc.TracePayload = c.logPayload
	return rc, nil
}
