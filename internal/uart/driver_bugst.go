package uart

import (
	"errors"

	gobug "go.bug.st/serial"
)

func bugstMode(cfg EndpointConfig) *gobug.Mode {
	return &gobug.Mode{
		BaudRate: cfg.Baud,
		DataBits: cfg.DataBits,
		Parity:   bugstParity(cfg.Parity),
		StopBits: bugstStopBits(cfg.StopBits),
	}
}

func bugstParity(p Parity) gobug.Parity {
	switch p {
	case ParityOdd:
		return gobug.OddParity
	case ParityEven:
		return gobug.EvenParity
	case ParityMark:
		return gobug.MarkParity
	case ParitySpace:
		return gobug.SpaceParity
	default:
		return gobug.NoParity
	}
}

func bugstStopBits(s StopBits) gobug.StopBits {
	switch s {
	case Stop1Half:
		return gobug.OnePointFiveStopBits
	case Stop2:
		return gobug.TwoStopBits
	default:
		return gobug.OneStopBit
	}
}

// openBugst opens the device with go.bug.st/serial. Its read timeout has
// millisecond resolution and a timed-out Read returns (0, nil).
func openBugst(cfg EndpointConfig) (Port, error) {
	if err := checkDevice(cfg); err != nil {
		return nil, err
	}
	p, err := gobug.Open(cfg.Device, bugstMode(cfg))
	if err != nil {
		return nil, bugstOpenError(cfg.Name, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, bugstOpenError(cfg.Name, err)
	}
	return p, nil
}

// bugstOpenError maps driver error codes onto the config field at fault.
func bugstOpenError(endpoint string, err error) error {
	field := "device"
	var pe *gobug.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case gobug.InvalidSpeed:
			field = "baud"
		case gobug.InvalidDataBits:
			field = "data_bits"
		case gobug.InvalidParity:
			field = "parity"
		case gobug.InvalidStopBits:
			field = "stop_bits"
		case gobug.InvalidTimeoutValue:
			field = "read_timeout"
		}
	}
	return &ConfigurationError{Endpoint: endpoint, Field: field, Err: err}
}

// ListPorts enumerates serial devices visible to the OS.
func ListPorts() ([]string, error) {
	return gobug.GetPortsList()
}
