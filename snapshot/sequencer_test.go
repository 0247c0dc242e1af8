package snapshot

import "testing"

func TestSequencerScenario(t *testing.T) {
	s := NewSequencer()
	for _, tc := range []struct {
		tick int64
		want bool
	}{
		{5, true},
		{5, false},
		{4, false},
		{6, true},
		{-1, false},
		{0, false},
		{100, true},
	} {
		if got := s.Accept(tc.tick); got != tc.want {
			t.Fatalf("Accept(%d) = %v, want %v", tc.tick, got, tc.want)
		}
	}
	if s.Latest() != 100 {
		t.Fatalf("Latest() = %d, want 100", s.Latest())
	}
}

func TestSequencerAcceptsZeroFirst(t *testing.T) {
	s := NewSequencer()
	if !s.Accept(0) {
		t.Fatal("Accept(0) on a fresh sequencer = false")
	}
	if s.Accept(0) {
		t.Fatal("second Accept(0) = true")
	}
}

func TestSequencerMonotonic(t *testing.T) {
	for _, t1 := range []int64{0, 1, 17, 1 << 40} {
		for _, t2 := range []int64{0, t1 / 2, t1} {
			s := NewSequencer()
			s.Accept(t1)
			if s.Accept(t2) {
				t.Fatalf("Accept(%d) after Accept(%d) = true", t2, t1)
			}
		}
	}
}

func TestSequencerWraparound(t *testing.T) {
	s := NewSequencer()
	if !s.Accept(MaxTick - 2*TickThreshold) {
		t.Fatal("Accept near max = false")
	}
	if !s.Accept(MaxTick - 500) {
		t.Fatal("Accept(MaxTick-500) = false")
	}
	if s.Latest() != NilTick {
		t.Fatalf("Latest() = %d, want NilTick", s.Latest())
	}
	if !s.Accept(1) {
		t.Fatal("Accept(1) after wraparound = false")
	}
	if s.Accept(1) {
		t.Fatal("duplicate Accept(1) after wraparound = true")
	}
}

func TestSequencerReset(t *testing.T) {
	s := NewSequencer()
	s.Accept(10)
	s.Reset()
	if !s.Accept(3) {
		t.Fatal("Accept(3) after Reset = false")
	}
}
