package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/uart-bridge/internal/relay"
)

type statsSource interface {
	Stats() []relay.Snapshot
}

func startMetricsLogger(ctx context.Context, interval time.Duration, src statsSource, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				logSnapshots(l, src.Stats())
			case <-ctx.Done():
				return
			}
		}
	}()
}

func logSnapshots(l *slog.Logger, snaps []relay.Snapshot) {
	for _, s := range snaps {
		l.Info("metrics_snapshot",
			"direction", s.Direction,
			"bytes", s.Bytes,
			"chunks", s.Chunks,
			"reads", s.Reads,
			"read_timeouts", s.Timeouts,
			"read_faults", s.ReadFaults,
			"write_faults", s.WriteFaults,
			"short_writes", s.ShortWrites,
			"drops", s.Drops,
		)
	}
}
