package snapshot

import "math"

const (
	// NilTick is the latest tick before anything was accepted.
	NilTick int64 = -1
	MaxTick int64 = math.MaxInt64
	// TickThreshold is the distance to MaxTick at which ticks are treated
	// as wrapping around.
	TickThreshold int64 = 1000
)

// Sequencer accepts only ticks newer than the latest one it accepted.
//
// A Sequencer is owned by a single goroutine: the simulation step on the
// server, the message loop on the client.
type Sequencer struct {
	latest int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{latest: NilTick}
}

// Accept reports whether tick carries new information and records it.
//
// Ticks within TickThreshold of MaxTick are always accepted and reset the
// sequencer to NilTick without being recorded, so the counter restarting
// from a low value is accepted as well.
func (s *Sequencer) Accept(tick int64) bool {
	if tick < 0 {
		return false
	}
	if tick > MaxTick-TickThreshold {
		s.latest = NilTick
		return true
	}
	if tick <= s.latest {
		return false
	}
	s.latest = tick
	return true
}

func (s *Sequencer) Latest() int64 {
	return s.latest
}

func (s *Sequencer) Reset() {
	s.latest = NilTick
}
