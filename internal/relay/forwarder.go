package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/kstaniek/uart-bridge/internal/metrics"
	"github.com/kstaniek/uart-bridge/internal/uart"
)

// Relay directions.
const (
	HostToExt = "host_to_ext"
	ExtToHost = "ext_to_host"
)

// backoffSleep allows tests to intercept fault backoff sleeps.
var backoffSleep = sleepCtx

// Forwarder relays bytes from one endpoint to another: read up to the buffer
// capacity, write whatever arrived unmodified and in order, yield, repeat.
type Forwarder struct {
	direction string
	src       io.Reader
	dst       io.Writer
	cfg       Config
	log       *slog.Logger
	stats     *Stats
	// queued is set once dst is a QueuedWriter; chunks are then accounted
	// when the destination write completes rather than when queued.
	queued bool
}

func NewForwarder(direction string, src io.Reader, dst io.Writer, cfg Config, l *slog.Logger) *Forwarder {
	return &Forwarder{
		direction: direction,
		src:       src,
		dst:       dst,
		cfg:       cfg,
		log:       l.With("direction", direction),
		stats:     &Stats{},
	}
}

func (f *Forwarder) Direction() string  { return f.direction }
func (f *Forwarder) Snapshot() Snapshot { return f.stats.Snapshot(f.direction) }

// useQueue puts a bounded chunk queue of the given size in front of the
// destination. It must be called before Run.
func (f *Forwarder) useQueue(ctx context.Context, size int) *QueuedWriter {
	q := NewQueuedWriter(ctx, f.dst, size, QueueHooks{
		Delivered: f.delivered,
		Failed:    func(int, error) { f.writeFailed() },
	})
	f.dst = q
	f.queued = true
	return q
}

// Run loops until ctx is cancelled (returning nil), the source or destination
// endpoint goes away, or a fault occurs under FaultHalt.
func (f *Forwarder) Run(ctx context.Context) error {
	metrics.SetLoopUp(f.direction, true)
	defer metrics.SetLoopUp(f.direction, false)
	f.log.Info("forwarder_start", "buffer", f.cfg.BufferSize, "policy", f.cfg.Policy.String())
	defer f.log.Info("forwarder_end")

	buf := make([]byte, f.cfg.BufferSize)
	backoff := f.cfg.Backoff.Min
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := f.step(buf)
		if err != nil {
			if ctx.Err() != nil { // shutting down
				return nil
			}
			if errors.Is(err, ErrEndpointGone) {
				metrics.IncError(metrics.ErrEndpointGone)
				f.log.Error("endpoint_gone", "error", err)
				return err
			}
			switch f.cfg.Policy {
			case FaultHalt:
				f.log.Error("transfer_fault", "error", err, "policy", f.cfg.Policy.String())
				return err
			case FaultBackoff:
				f.log.Warn("transfer_fault", "error", err, "backoff", backoff)
				backoffSleep(ctx, backoff)
				backoff = f.cfg.Backoff.next(backoff)
				continue
			default:
				f.log.Warn("transfer_fault", "error", err)
			}
		} else {
			backoff = f.cfg.Backoff.Min
		}
		sleepCtx(ctx, f.cfg.Yield)
	}
}

// step runs one read-then-write iteration.
func (f *Forwarder) step(buf []byte) error {
	n, rerr := f.src.Read(buf)
	f.stats.Reads.Inc()
	if n > 0 {
		if err := f.forward(buf[:n]); err != nil {
			if !uart.IsReadTimeout(rerr) {
				return errors.Join(err, f.readFault(rerr))
			}
			return err
		}
	}
	if uart.IsReadTimeout(rerr) {
		if n == 0 {
			f.stats.Timeouts.Inc()
			metrics.IncReadTimeout(f.direction)
		}
		return nil
	}
	return f.readFault(rerr)
}

func (f *Forwarder) readFault(err error) error {
	f.stats.ReadFaults.Inc()
	metrics.IncFault(f.direction, metrics.OpRead)
	return f.fault(metrics.OpRead, 0, err)
}

func (f *Forwarder) forward(p []byte) error {
	if f.cfg.TracePayload {
		f.log.Debug("forward", "len", len(p), "data", strconv.Quote(string(p)))
	}
	written, retries, err := writeFull(f.dst, p)
	if retries > 0 {
		f.stats.ShortWrites.Add(uint64(retries))
	}
	if err != nil {
		if errors.Is(err, ErrTxOverflow) {
			f.stats.Drops.Inc()
			metrics.IncDrop(f.direction)
			f.log.Debug("tx_overflow_drop", "len", len(p))
			return nil
		}
		if errors.Is(err, ErrQueuedWrite) {
			// p is queued; the failed chunk was counted by the queue hook.
			return f.fault(metrics.OpWrite, 0, err)
		}
		f.writeFailed()
		return f.fault(metrics.OpWrite, written, err)
	}
	if !f.queued {
		f.delivered(len(p))
	}
	return nil
}

func (f *Forwarder) delivered(n int) {
	f.stats.Chunks.Inc()
	f.stats.Bytes.Add(uint64(n))
	metrics.AddForwarded(f.direction, n)
}

func (f *Forwarder) writeFailed() {
	f.stats.WriteFaults.Inc()
	metrics.IncFault(f.direction, metrics.OpWrite)
}

func (f *Forwarder) fault(op string, written int, err error) error {
	if uart.IsGone(err) {
		err = fmt.Errorf("%w: %w", ErrEndpointGone, err)
	}
	return &TransferFault{Direction: f.direction, Op: op, Written: written, Err: err}
}

// writeFull writes all of p, retrying short writes. retries counts writes
// that accepted only part of the remainder.
func writeFull(w io.Writer, p []byte) (written, retries int, err error) {
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			return written, retries, err
		}
		if written < len(p) {
			if n == 0 {
				return written, retries, io.ErrShortWrite
			}
			retries++
		}
	}
	return written, retries, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
