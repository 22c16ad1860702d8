package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kstaniek/uart-bridge/internal/uart"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakePort serves queued reads and records writes. An empty queue behaves
// like a read timeout.
type fakePort struct {
	mu     sync.Mutex
	in     bytes.Buffer
	out    bytes.Buffer
	closed bool
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	p.in.Write(b)
	p.mu.Unlock()
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if p.in.Len() > 0 {
		n, _ := p.in.Read(b)
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return 0, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.out.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// withFakePorts routes both endpoints to in-memory ports keyed by device.
func withFakePorts(t *testing.T, ports map[string]*fakePort, fail map[string]error) {
	t.Helper()
	openerFor = func(driver string) (uart.Opener, error) {
		if _, err := uart.OpenerFor(driver); err != nil {
			return nil, err
		}
		return func(cfg uart.EndpointConfig) (uart.Port, error) {
			if err := fail[cfg.Device]; err != nil {
				return nil, err
			}
			return ports[cfg.Device], nil
		}, nil
	}
	t.Cleanup(func() { openerFor = uart.OpenerFor })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestInitBridge_RelaysBothDirections(t *testing.T) {
	host, ext := &fakePort{}, &fakePort{}
	withFakePorts(t, map[string]*fakePort{"/dev/fake-host": host, "/dev/fake-ext": ext}, nil)
	cfg := baseConfig(t)

	b, cleanup, err := initBridge(cfg, testLogger())
	if err != nil {
		t.Fatalf("initBridge: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-b.Ready():
	case <-time.After(time.Second):
		t.Fatal("bridge not ready")
	}
	host.feed([]byte("AT\r\n"))
	waitFor(t, "AT on external", func() bool { return ext.written() == "AT\r\n" })
	ext.feed([]byte("OK\r\n"))
	waitFor(t, "OK on host", func() bool { return host.written() == "OK\r\n" })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	cleanup()
	if !host.isClosed() || !ext.isClosed() {
		t.Fatalf("cleanup must close both ports")
	}
}

func TestInitBridge_ExternalFailureClosesHost(t *testing.T) {
	host := &fakePort{}
	withFakePorts(t, map[string]*fakePort{"/dev/fake-host": host}, map[string]error{"/dev/fake-ext": errors.New("no such device")})
	cfg := baseConfig(t)

	_, cleanup, err := initBridge(cfg, testLogger())
	if err == nil {
		t.Fatalf("expected error")
	}
	cleanup()
	if !errors.Is(err, uart.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var ce *uart.ConfigurationError
	if !errors.As(err, &ce) || ce.Endpoint != uart.ExternalEndpoint {
		t.Fatalf("expected external endpoint error, got %v", err)
	}
	if !host.isClosed() {
		t.Fatalf("host port must be closed after external failure")
	}
}

func TestInitBridge_UnknownDriver(t *testing.T) {
	withFakePorts(t, nil, nil)
	cfg := baseConfig(t)
	cfg.driver = "nope"
	if _, _, err := initBridge(cfg, testLogger()); !errors.Is(err, uart.ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestRun_VersionAndBadFlags(t *testing.T) {
	if code := run([]string{"-version"}); code != 0 {
		t.Fatalf("-version exit code %d", code)
	}
	if code := run([]string{"-host-dev", "/dev/a", "-ext-dev", "/dev/b", "-host-baud", "7"}); code != 2 {
		t.Fatalf("bad config exit code %d want 2", code)
	}
}

func TestRun_EndpointInitFailureExitsNonZero(t *testing.T) {
	withFakePorts(t, nil, map[string]error{"/dev/a": errors.New("busy")})
	if code := run([]string{"-host-dev", "/dev/a", "-ext-dev", "/dev/b", "-log-level", "error"}); code != 1 {
		t.Fatalf("exit code %d want 1", code)
	}
}
