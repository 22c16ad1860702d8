package relay

import (
	"fmt"
	"strings"
	"time"
)

// FaultPolicy decides what a forwarding loop does after a transfer fault.
type FaultPolicy int

const (
	// FaultContinue logs the fault and carries on with the next iteration.
	FaultContinue FaultPolicy = iota
	// FaultBackoff sleeps an exponentially growing delay before retrying.
	FaultBackoff
	// FaultHalt stops the loop and returns the fault.
	FaultHalt
)

func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continue":
		return FaultContinue, nil
	case "backoff", "":
		return FaultBackoff, nil
	case "halt":
		return FaultHalt, nil
	}
	return 0, fmt.Errorf("unknown fault policy %q (use continue|backoff|halt)", s)
}

func (p FaultPolicy) String() string {
	switch p {
	case FaultContinue:
		return "continue"
	case FaultBackoff:
		return "backoff"
	case FaultHalt:
		return "halt"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Backoff bounds the FaultBackoff delay; it doubles per consecutive fault.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

func (b Backoff) next(cur time.Duration) time.Duration {
	cur *= 2
	if cur > b.Max {
		cur = b.Max
	}
	return cur
}
