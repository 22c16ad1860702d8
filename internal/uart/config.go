package uart

import (
	"fmt"
	"strings"
	"time"
)

// Logical endpoint names.
const (
	HostEndpoint     = "host"
	ExternalEndpoint = "external"
)

// Parity uses the conventional single-letter codes.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityOdd   Parity = 'O'
	ParityEven  Parity = 'E'
	ParityMark  Parity = 'M' // parity bit is always 1
	ParitySpace Parity = 'S' // parity bit is always 0
)

// ParseParity accepts none|odd|even|mark|space or the single-letter code.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return 0, fmt.Errorf("unknown parity %q", s)
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	}
	return fmt.Sprintf("parity(%d)", byte(p))
}

// StopBits values; 15 stands for one and a half.
type StopBits byte

const (
	Stop1     StopBits = 1
	Stop1Half StopBits = 15
	Stop2     StopBits = 2
)

func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1", "":
		return Stop1, nil
	case "1.5", "15":
		return Stop1Half, nil
	case "2":
		return Stop2, nil
	}
	return 0, fmt.Errorf("unknown stop bits %q", s)
}

func (s StopBits) String() string {
	switch s {
	case Stop1:
		return "1"
	case Stop1Half:
		return "1.5"
	case Stop2:
		return "2"
	}
	return fmt.Sprintf("stopbits(%d)", byte(s))
}

type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowRTSCTS
	FlowXonXoff
)

func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FlowNone, nil
	case "rtscts", "hw", "hardware":
		return FlowRTSCTS, nil
	case "xonxoff", "sw", "software":
		return FlowXonXoff, nil
	}
	return 0, fmt.Errorf("unknown flow control %q", s)
}

func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowRTSCTS:
		return "rtscts"
	case FlowXonXoff:
		return "xonxoff"
	}
	return fmt.Sprintf("flow(%d)", int(f))
}

// NoPin leaves the pin at the driver/board default.
const NoPin = -1

// Pins is an explicit TX/RX pin pair. Both unset means default wiring.
type Pins struct {
	TX int
	RX int
}

// DefaultPins returns an unset pin pair.
func DefaultPins() Pins { return Pins{TX: NoPin, RX: NoPin} }

// Explicit reports whether a pin pair was requested.
func (p Pins) Explicit() bool { return p.TX != NoPin || p.RX != NoPin }

// SupportedBaudRates lists the standard rates accepted by Validate.
var SupportedBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// EndpointConfig is the full, fixed-for-lifetime setup of one serial endpoint.
type EndpointConfig struct {
	Name        string
	Device      string
	Baud        int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	Flow        FlowControl
	Pins        Pins
	ReadTimeout time.Duration
}

// DefaultHost returns the host-facing endpoint: 115200 8N1, no flow control.
func DefaultHost(device string) EndpointConfig {
	return EndpointConfig{
		Name:        HostEndpoint,
		Device:      device,
		Baud:        115200,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    Stop1,
		Flow:        FlowNone,
		Pins:        DefaultPins(),
		ReadTimeout: 20 * time.Millisecond,
	}
}

// DefaultExternal returns the external endpoint at the given baud (9600 or
// 115200 depending on the peripheral), 8N1, no flow control.
func DefaultExternal(device string, baud int) EndpointConfig {
	c := DefaultHost(device)
	c.Name = ExternalEndpoint
	c.Baud = baud
	return c
}

// Validate checks values only; it never touches the device.
func (c EndpointConfig) Validate() error {
	bad := func(field, format string, args ...any) error {
		return &ConfigurationError{Endpoint: c.Name, Field: field, Err: fmt.Errorf(format, args...)}
	}
	if c.Name == "" {
		return bad("name", "endpoint name is empty")
	}
	if c.Device == "" {
		return bad("device", "device path is empty")
	}
	if !isSupportedBaud(c.Baud) {
		return bad("baud", "unsupported baud rate %d (want one of %v)", c.Baud, SupportedBaudRates)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return bad("data_bits", "data bits must be 5-8, got %d", c.DataBits)
	}
	switch c.Parity {
	case ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace:
	default:
		return bad("parity", "invalid parity %s", c.Parity)
	}
	switch c.StopBits {
	case Stop1, Stop1Half, Stop2:
	default:
		return bad("stop_bits", "invalid stop bits %s", c.StopBits)
	}
	if c.Flow != FlowNone {
		return bad("flow", "flow control %s is not supported", c.Flow)
	}
	if c.Pins.Explicit() {
		if c.Pins.TX < 0 || c.Pins.RX < 0 {
			return bad("pins", "tx and rx pins must both be set (tx=%d rx=%d)", c.Pins.TX, c.Pins.RX)
		}
		if c.Pins.TX == c.Pins.RX {
			return bad("pins", "tx and rx share pin %d", c.Pins.TX)
		}
	}
	if c.ReadTimeout <= 0 {
		return bad("read_timeout", "read timeout must be > 0")
	}
	return nil
}

// Frame renders the character format, e.g. 8N1.
func (c EndpointConfig) Frame() string {
	return fmt.Sprintf("%d%c%s", c.DataBits, byte(c.Parity), c.StopBits)
}

func (c EndpointConfig) String() string {
	s := fmt.Sprintf("%s %s %d %s flow=%s", c.Name, c.Device, c.Baud, c.Frame(), c.Flow)
	if c.Pins.Explicit() {
		s += fmt.Sprintf(" tx=%d rx=%d", c.Pins.TX, c.Pins.RX)
	}
	return s
}

func isSupportedBaud(b int) bool {
	for _, v := range SupportedBaudRates {
		if v == b {
			return true
		}
	}
	return false
}
