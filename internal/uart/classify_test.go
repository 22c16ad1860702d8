package uart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestIsReadTimeout(t *testing.T) {
	for _, err := range []error{nil, io.EOF, os.ErrDeadlineExceeded, timeoutErr{}, fmt.Errorf("wrapped: %w", io.EOF)} {
		if !IsReadTimeout(err) {
			t.Fatalf("expected %v to be a read timeout", err)
		}
	}
	for _, err := range []error{io.ErrUnexpectedEOF, errors.New("framing error"), os.ErrClosed} {
		if IsReadTimeout(err) {
			t.Fatalf("expected %v not to be a read timeout", err)
		}
	}
}

func TestIsGone(t *testing.T) {
	gone := []error{
		os.ErrClosed,
		io.ErrClosedPipe,
		&os.PathError{Op: "read", Path: "/dev/ttyUSB0", Err: errors.New("input/output error")},
	}
	for _, err := range gone {
		if !IsGone(err) {
			t.Fatalf("expected %v to be gone", err)
		}
	}
	for _, err := range []error{nil, io.EOF, errors.New("parity error")} {
		if IsGone(err) {
			t.Fatalf("expected %v not to be gone", err)
		}
	}
}
