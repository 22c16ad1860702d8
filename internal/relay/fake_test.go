package relay

import (
	"bytes"
	"os"
	"sync"
	"time"
)

// fakeEndpoint is an in-memory serial endpoint. Bytes fed with feed() are
// returned by Read; Read waits up to timeout for data and then returns
// (0, nil) like a go.bug.st port. Writes are recorded per call.
type fakeEndpoint struct {
	mu      sync.Mutex
	rx      []byte
	notify  chan struct{}
	timeout time.Duration
	writes  [][]byte
	reads   int
	closed  bool
	// shortWrite caps every Write at that many bytes when > 0.
	shortWrite int
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{notify: make(chan struct{}, 1), timeout: 5 * time.Millisecond}
}

func (f *fakeEndpoint) feed(b []byte) {
	f.mu.Lock()
	f.rx = append(f.rx, b...)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *fakeEndpoint) Read(p []byte) (int, error) {
	t := time.NewTimer(f.timeout)
	defer t.Stop()
	for {
		f.mu.Lock()
		f.reads++
		if f.closed {
			f.mu.Unlock()
			return 0, os.ErrClosed
		}
		if len(f.rx) > 0 {
			n := copy(p, f.rx)
			f.rx = f.rx[n:]
			f.mu.Unlock()
			return n, nil
		}
		f.mu.Unlock()
		select {
		case <-f.notify:
		case <-t.C:
			return 0, nil
		}
	}
}

func (f *fakeEndpoint) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	n := len(p)
	if f.shortWrite > 0 && n > f.shortWrite {
		n = f.shortWrite
	}
	cp := make([]byte, n)
	copy(cp, p[:n])
	f.writes = append(f.writes, cp)
	return n, nil
}

func (f *fakeEndpoint) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

// written returns everything written so far, concatenated.
func (f *fakeEndpoint) written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Join(f.writes, nil)
}

func (f *fakeEndpoint) writeSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.writes))
	for i, w := range f.writes {
		out[i] = len(w)
	}
	return out
}

func (f *fakeEndpoint) readCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
