package edge

import (
	"testing"
	"time"
)

func TestSourceBatchesAndResets(t *testing.T) {
	s := NewStream()
	src := NewSource(s)
	for i := 0; i < BatchSize-1; i++ {
		src.Capture(100, i%2)
		if s.Pending() != 0 {
			t.Fatalf("stream should be empty before batch fills, pending=%d", s.Pending())
		}
	}
	src.Capture(100, 0)
	if s.Pending() != 1 {
		t.Fatalf("expected one pending batch, got %d", s.Pending())
	}
	if src.n != 0 {
		t.Fatalf("index should reset after handoff, got %d", src.n)
	}
}

func TestSourceDropsWholeBatchOnFullStream(t *testing.T) {
	s := NewStream()
	src := NewSource(s)
	fillOne := func() {
		for i := 0; i < BatchSize; i++ {
			src.Capture(50, i%2)
		}
	}
	fillOne()
	fillOne()
	if s.Pending() != 2 {
		t.Fatalf("expected 2 pending batches, got %d", s.Pending())
	}
	// A third batch cannot be pushed: the whole thing must be discarded,
	// never partially written, and the index must still reset to 0.
	fillOne()
	if s.Pending() != 2 {
		t.Fatalf("ring should still hold exactly 2 batches, got %d", s.Pending())
	}
	if src.n != 0 {
		t.Fatalf("index must reset even on drop, got %d", src.n)
	}
}

type fakeCapture struct {
	events []struct {
		t     uint16
		level int
	}
	i int
}

func (f *fakeCapture) PollEvent() (uint16, int, error) {
	if f.i >= len(f.events) {
		return 0, 0, errStop
	}
	e := f.events[f.i]
	f.i++
	return e.t, e.level, nil
}

var errStop = errStopSentinel{}

type errStopSentinel struct{}

func (errStopSentinel) Error() string { return "stop" }

func TestSourceRunFiltersOutOfRange(t *testing.T) {
	s := NewStream()
	src := NewSource(s)
	fc := &fakeCapture{}
	for i := 0; i < BatchSize; i++ {
		fc.events = append(fc.events, struct {
			t     uint16
			level int
		}{5, 0}) // below MinDuration, must be filtered
	}
	for i := 0; i < BatchSize; i++ {
		fc.events = append(fc.events, struct {
			t     uint16
			level int
		}{100, i % 2})
	}
	if err := src.Run(fc); err != errStop {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Pending() != 1 {
		t.Fatalf("expected exactly one batch from the valid events, got %d", s.Pending())
	}
	var got Batch
	if err := s.Receive(&got, time.Second); err != nil {
		t.Fatal(err)
	}
	if got[0].DurationUS != 100 {
		t.Fatalf("filtered events leaked into batch: %v", got[0])
	}
}
