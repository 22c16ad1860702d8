package relay

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/uart-bridge/internal/metrics"
)

// Bridge relays between the host-facing and the external endpoint with one
// independent forwarding loop per direction. The loops share no state; each
// endpoint is read by exactly one loop and written by exactly one loop.
type Bridge struct {
	cfg       Config
	log       *slog.Logger
	hostToExt *Forwarder
	extToHost *Forwarder
	readyOnce sync.Once
	readyCh   chan struct{}
}

func NewBridge(host, external io.ReadWriter, cfg Config, l *slog.Logger) *Bridge {
	return &Bridge{
		cfg:       cfg,
		log:       l,
		hostToExt: NewForwarder(HostToExt, host, external, cfg, l),
		extToHost: NewForwarder(ExtToHost, external, host, cfg, l),
		readyCh:   make(chan struct{}),
	}
}

// Ready is closed once both forwarding loops have been started.
func (b *Bridge) Ready() <-chan struct{} { return b.readyCh }

// Stats returns one snapshot per direction.
func (b *Bridge) Stats() []Snapshot {
	return []Snapshot{b.hostToExt.Snapshot(), b.extToHost.Snapshot()}
}

// Run starts both loops and then idles until ctx is cancelled or a loop
// stops with an error. In the latter case the other loop is cancelled and
// awaited before the error is returned. Stopped loops are not restarted.
// Run must be called once.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	for _, f := range []*Forwarder{b.hostToExt, b.extToHost} {
		if b.cfg.TxQueue > 0 {
			q := f.useQueue(ctx, b.cfg.TxQueue)
			defer q.Close()
		}
		wg.Add(1)
		go func(f *Forwarder) {
			defer wg.Done()
			if err := f.Run(ctx); err != nil {
				errCh <- err
			}
		}(f)
	}
	b.readyOnce.Do(func() { close(b.readyCh) })
	b.log.Info("bridge_started", "buffer", b.cfg.BufferSize, "yield", b.cfg.Yield, "policy", b.cfg.Policy.String(), "tx_queue", b.cfg.TxQueue)

	err := b.idle(ctx, errCh)
	cancel()
	wg.Wait()
	b.log.Info("bridge_stopped")
	return err
}

// idle is the supervisory loop: it only records a heartbeat.
func (b *Bridge) idle(ctx context.Context, errCh <-chan error) error {
	t := time.NewTicker(b.cfg.Heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			b.log.Error("forwarder_stopped", "error", err)
			return err
		case now := <-t.C:
			metrics.SetHeartbeat(now)
		}
	}
}
