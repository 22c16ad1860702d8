package relay

import "go.uber.org/atomic"

// Stats are the per-direction counters of one forwarding loop.
type Stats struct {
	Reads       atomic.Uint64
	Timeouts    atomic.Uint64
	Chunks      atomic.Uint64
	Bytes       atomic.Uint64
	ReadFaults  atomic.Uint64
	WriteFaults atomic.Uint64
	ShortWrites atomic.Uint64
	Drops       atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Direction   string
	Reads       uint64
	Timeouts    uint64
	Chunks      uint64
	Bytes       uint64
	ReadFaults  uint64
	WriteFaults uint64
	ShortWrites uint64
	Drops       uint64
}

func (s *Stats) Snapshot(direction string) Snapshot {
	return Snapshot{
		Direction:   direction,
		Reads:       s.Reads.Load(),
		Timeouts:    s.Timeouts.Load(),
		Chunks:      s.Chunks.Load(),
		Bytes:       s.Bytes.Load(),
		ReadFaults:  s.ReadFaults.Load(),
		WriteFaults: s.WriteFaults.Load(),
		ShortWrites: s.ShortWrites.Load(),
		Drops:       s.Drops.Load(),
	}
}

// Faults is the sum of read and write faults.
func (s Snapshot) Faults() uint64 { return s.ReadFaults + s.WriteFaults }
