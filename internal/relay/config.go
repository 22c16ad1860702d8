package relay

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for the relay loops. The backoff range is only used by FaultBackoff.
const (
	DefaultBufferSize = 1024
	DefaultYield      = time.Millisecond
	DefaultHeartbeat  = time.Second
	DefaultBackoffMin = 20 * time.Millisecond
	DefaultBackoffMax = 500 * time.Millisecond
	MaxBufferSize     = 64 * 1024
)

// Config tunes both forwarding loops of a bridge.
type Config struct {
	BufferSize int           // transfer buffer capacity per iteration
	Yield      time.Duration // pause after every iteration
	Policy     FaultPolicy
	Backoff    Backoff
	// TxQueue > 0 puts a bounded chunk queue in front of each destination;
	// a full queue drops the chunk. 0 writes synchronously.
	TxQueue      int
	Heartbeat    time.Duration
	TracePayload bool // log every forwarded chunk at debug level
}

func DefaultConfig() Config {
	return Config{
		BufferSize: DefaultBufferSize,
		Yield:      DefaultYield,
		Policy:     FaultBackoff,
		Backoff:    Backoff{Min: DefaultBackoffMin, Max: DefaultBackoffMax},
		Heartbeat:  DefaultHeartbeat,
	}
}

func (c Config) Validate() error {
	if c.BufferSize <= 0 || c.BufferSize > MaxBufferSize {
		return fmt.Errorf("buffer size must be 1..%d (got %d)", MaxBufferSize, c.BufferSize)
	}
	// a zero yield would let a driver that returns immediately spin the CPU
	if c.Yield <= 0 {
		return errors.New("yield must be > 0")
	}
	switch c.Policy {
	case FaultContinue, FaultHalt:
	case FaultBackoff:
		if c.Backoff.Min <= 0 || c.Backoff.Max < c.Backoff.Min {
			return fmt.Errorf("invalid backoff range %v..%v", c.Backoff.Min, c.Backoff.Max)
		}
	default:
		return fmt.Errorf("invalid fault policy %s", c.Policy)
	}
	if c.TxQueue < 0 {
		return fmt.Errorf("tx queue must be >= 0 (got %d)", c.TxQueue)
	}
	if c.Heartbeat <= 0 {
		return errors.New("heartbeat must be > 0")
	}
	return nil
}
