package uart

import (
	"errors"
	"strings"

	"github.com/tarm/serial"
)

func tarmConfig(cfg EndpointConfig) *serial.Config {
	return &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        byte(cfg.DataBits),
		Parity:      serial.Parity(cfg.Parity),
		StopBits:    serial.StopBits(cfg.StopBits),
	}
}

// openTarm opens the device with tarm/serial. The read timeout is applied
// through VTIME, so it is rounded to whole deciseconds (100 ms minimum) and a
// timed-out Read returns (0, io.EOF).
func openTarm(cfg EndpointConfig) (Port, error) {
	if err := checkDevice(cfg); err != nil {
		return nil, err
	}
	p, err := serial.OpenPort(tarmConfig(cfg))
	if err != nil {
		return nil, tarmOpenError(cfg.Name, err)
	}
	return p, nil
}

func tarmOpenError(endpoint string, err error) error {
	field := "device"
	switch {
	case errors.Is(err, serial.ErrBadSize):
		field = "data_bits"
	case errors.Is(err, serial.ErrBadParity):
		field = "parity"
	case errors.Is(err, serial.ErrBadStopBits):
		field = "stop_bits"
	case strings.Contains(strings.ToLower(err.Error()), "baud"):
		field = "baud"
	}
	return &ConfigurationError{Endpoint: endpoint, Field: field, Err: err}
}
