package uart

import (
	"errors"
	"io"
	"os"

	gobug "go.bug.st/serial"
)

// IsReadTimeout reports whether err, returned together with zero bytes, only
// means the read window elapsed with nothing to read. go.bug.st/serial
// reports that as a nil error and tarm/serial as io.EOF.
func IsReadTimeout(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// IsGone reports errors after which the endpoint can no longer be used:
// the port was closed or the device node went away.
func IsGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var pe *gobug.PortError
	if errors.As(err, &pe) && pe.Code() == gobug.PortClosed {
		return true
	}
	var perr *os.PathError
	return errors.As(err, &perr)
}
