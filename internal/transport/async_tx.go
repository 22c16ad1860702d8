package transport

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrAsyncTxClosed is returned by Send after Close.
var ErrAsyncTxClosed = errors.New("async tx closed")

// AsyncTx funnels chunk writes to one destination through a single goroutine.
// Send never blocks: when the queue is full the OnDrop hook decides the
// returned error. Chunks are copied on Send, so callers may reuse their
// buffer immediately.
//
//	a := NewAsyncTx(ctx, queue, writeFn, hooks)
//	a.Send(chunk)
//	a.Close()
type AsyncTx struct {
	mu     sync.Mutex
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	write  func([]byte) error
	hooks  Hooks
	closed atomic.Bool
}

// Hooks customize AsyncTx behavior.
type Hooks struct {
	// OnError is called when write fails (chunk not delivered).
	OnError func(error)
	// OnAfter is called after a successful write of n bytes.
	OnAfter func(n int)
	// OnDrop is called when the queue is full; its error is returned from
	// Send. Nil means drop silently.
	OnDrop func() error
}

// NewAsyncTx starts the worker with a queue of size buf.
func NewAsyncTx(parent context.Context, buf int, write func([]byte) error, hooks Hooks) *AsyncTx {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx{
		ch:     make(chan []byte, buf),
		ctx:    ctx,
		cancel: cancel,
		write:  write,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx) loop() {
	defer a.wg.Done()
	for {
		select {
		case chunk, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.write(chunk); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter(len(chunk))
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// Send queues a copy of p, or returns the drop error when the queue is full.
func (a *AsyncTx) Send(p []byte) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- chunk:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Pending reports queued chunks not yet handed to the writer.
func (a *AsyncTx) Pending() int { return len(a.ch) }

// Close stops the worker and waits for it to exit. Queued chunks that were
// not yet written are discarded.
func (a *AsyncTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
