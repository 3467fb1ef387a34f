package edge

// CaptureSource abstracts the analog front-end: a both-edge input capture
// running a free-running 1us counter. PollEvent blocks until the next
// transition and returns the elapsed time since the previous one together
// with the pin level observed at that instant.
//
// Implementations may return durations outside [MinDuration, MaxDuration]:
// the hardware-backed one in driver/gpio125 does not filter them, and
// [Source.Run] drops them before batching.
type CaptureSource interface {
	PollEvent() (durationUS uint16, level int, err error)
}

// Source batches raw capture events into whole [Batch] values and hands
// them to a [Stream]. It mirrors the capture-ISR discipline described in
// the spec: classify and append, never block, never allocate once
// constructed, and discard the entire in-progress batch rather than ever
// publish a partial one.
type Source struct {
	stream *Stream
	batch  Batch
	n      int
}

// NewSource constructs a batcher feeding s.
func NewSource(s *Stream) *Source {
	return &Source{stream: s}
}

// Capture records one already-filtered edge event. It is the ISR-side
// entry point: ccr is the capture-register duration in microseconds and
// level is the pin state read immediately after. Callers (or
// [CaptureSource] adapters) must have already dropped ccr outside
// [MinDuration, MaxDuration] — Capture does not re-check, mirroring the
// spec's division of labor between the capture hardware read and the
// batcher.
//
// Capture never allocates and never blocks: once the batch fills, it is
// handed to the stream and the index reset; if the stream rejects the
// push, the whole batch is silently discarded (CaptureDropped) and the
// index still resets, so no partial batch is ever written twice.
func (src *Source) Capture(ccr uint16, level int) {
	dir := Fall
	if level != 0 {
		dir = Rise
	}
	src.batch[src.n] = Event{DurationUS: ccr, Edge: dir}
	src.n++
	if src.n < BatchSize {
		return
	}
	// Errors (stream full) are swallowed: decoders are resynchronizing by
	// design and a dropped batch is recovered from on the next one.
	_ = src.stream.SendFromISR(&src.batch)
	src.n = 0
}

// Run drives Capture from a [CaptureSource] until it returns an error
// (typically when the caller cancels by closing the underlying source).
// Run is the host-side analogue of the capture ISR for sources that are
// naturally poll-driven (software simulation, or a periph.io edge-watch
// loop in [driver/gpio125]) rather than hardware-interrupt-driven.
func (src *Source) Run(cap CaptureSource) error {
	for {
		t, level, err := cap.PollEvent()
		if err != nil {
			return err
		}
		if t < MinDuration || t > MaxDuration {
			continue
		}
		src.Capture(t, level)
	}
}
