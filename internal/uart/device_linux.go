//go:build linux

package uart

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// checkDevice rejects paths that are missing or not character devices before
// the driver tries to configure them.
func checkDevice(cfg EndpointConfig) error {
	var st unix.Stat_t
	if err := unix.Stat(cfg.Device, &st); err != nil {
		return &ConfigurationError{Endpoint: cfg.Name, Field: "device", Err: fmt.Errorf("stat %s: %w", cfg.Device, err)}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return &ConfigurationError{Endpoint: cfg.Name, Field: "device", Err: errors.New(cfg.Device + " is not a character device")}
	}
	return nil
}
