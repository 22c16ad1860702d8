package relay

import (
	"errors"
	"fmt"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrTransferFault = errors.New("transfer fault")
	ErrEndpointGone  = errors.New("endpoint gone")
	ErrTxOverflow    = errors.New("serial tx overflow")
	// ErrQueuedWrite wraps a failed background write of an earlier chunk.
	ErrQueuedWrite = errors.New("queued write failed")
)

// TransferFault is a driver-level read or write failure on an endpoint that
// was set up successfully.
type TransferFault struct {
	Direction string
	Op        string // read|write
	Written   int    // bytes of the chunk accepted before a write failed
	Err       error
}

func (f *TransferFault) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Direction, f.Op, f.Err)
}

func (f *TransferFault) Unwrap() error { return f.Err }

func (f *TransferFault) Is(target error) bool { return target == ErrTransferFault }
