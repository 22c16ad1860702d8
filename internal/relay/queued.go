package relay

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/atomic"

	"github.com/kstaniek/uart-bridge/internal/transport"
)

// QueueHooks report the outcome of a queued chunk once its destination write
// has finished. Either may be nil.
type QueueHooks struct {
	Delivered func(n int)
	Failed    func(n int, err error)
}

// QueuedWriter decouples a forwarding loop from a slow destination. Writes
// are queued and performed by one goroutine; a full queue fails the write
// with ErrTxOverflow. A failed background write is reported, wrapped in
// ErrQueuedWrite, by the next Write call after that call's chunk was queued,
// so the loop's fault policy still applies and no later chunk is lost.
type QueuedWriter struct {
	tx      *transport.AsyncTx
	lastErr atomic.Error
}

func NewQueuedWriter(ctx context.Context, dst io.Writer, size int, hooks QueueHooks) *QueuedWriter {
	q := &QueuedWriter{}
	q.tx = transport.NewAsyncTx(ctx, size, func(p []byte) error {
		_, _, err := writeFull(dst, p)
		if err != nil && hooks.Failed != nil {
			hooks.Failed(len(p), err)
		}
		return err
	}, transport.Hooks{
		OnError: func(err error) { q.lastErr.Store(err) },
		OnAfter: func(n int) {
			if hooks.Delivered != nil {
				hooks.Delivered(n)
			}
		},
		OnDrop: func() error { return ErrTxOverflow },
	})
	return q
}

func (q *QueuedWriter) Write(p []byte) (int, error) {
	if err := q.tx.Send(p); err != nil {
		return 0, err
	}
	if err := q.lastErr.Swap(nil); err != nil {
		return len(p), fmt.Errorf("%w: %w", ErrQueuedWrite, err)
	}
	return len(p), nil
}

// Pending reports chunks waiting for the destination.
func (q *QueuedWriter) Pending() int { return q.tx.Pending() }

// Close stops the writer goroutine; queued chunks are discarded.
func (q *QueuedWriter) Close() error {
	q.tx.Close()
	return nil
}
