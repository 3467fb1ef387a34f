package edge

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Receive once the stream's consumer side has
// been shut down.
var ErrStopped = errors.New("edge: stream stopped")

// ErrFull is returned by SendFromProducer when the ring does not have room
// for a whole batch. The caller (the capture source) must drop the batch
// entirely; a partial write is never performed.
var ErrFull = errors.New("edge: stream full")

// batchBytes is the wire size, in bytes, of one Batch.
const batchBytes = BatchSize * eventSize

// capacity is the ring's total byte capacity: room for exactly two
// batches, per the data model.
const capacity = 2 * batchBytes

// Stream is a single-producer/single-consumer byte ring buffer carrying
// whole [Batch] values from a capture ISR to one worker goroutine.
//
// The producer side (SendFromProducer / SendFromISR) never blocks and
// never allocates once constructed: it either appends the whole batch or
// rejects it outright. The consumer side (Receive) blocks until a full
// batch is available.
type Stream struct {
	buf  [capacity]byte
	head atomic.Uint32 // bytes produced, monotonic
	tail atomic.Uint32 // bytes consumed, monotonic

	wake    chan struct{} // 1-buffered wakeup signal, producer -> consumer
	stopped atomic.Bool
}

// NewStream constructs an empty stream.
func NewStream() *Stream {
	return &Stream{
		wake: make(chan struct{}, 1),
	}
}

// SendFromProducer appends one batch's worth of events to the ring. It
// never blocks: if the ring lacks room for the whole batch, nothing is
// written and ErrFull is returned — the caller must discard the batch.
//
// Safe to call from an interrupt context (SendFromISR is an alias kept
// for callers that want to document that intent at the call site).
func (s *Stream) SendFromProducer(batch *Batch) error {
	head := s.head.Load()
	tail := s.tail.Load()
	if capacity-int(head-tail) < batchBytes {
		return ErrFull
	}
	var tmp [batchBytes]byte
	b := tmp[:0]
	for _, e := range batch {
		b = encodeEvent(b, e)
	}
	off := int(head) % capacity
	n := copy(s.buf[off:], b)
	if n < len(b) {
		copy(s.buf[:], b[n:])
	}
	s.head.Store(head + batchBytes)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// SendFromISR is [Stream.SendFromProducer]; the name documents, at call
// sites inside a capture interrupt handler, that the call is
// non-blocking and allocation-free.
func (s *Stream) SendFromISR(batch *Batch) error {
	return s.SendFromProducer(batch)
}

// Receive blocks until one full batch is available, or until timeout
// elapses (timeout <= 0 waits indefinitely), and copies it into out.
// Receive returns ErrStopped once Stop has been called and no further
// batch is pending.
func (s *Stream) Receive(out *Batch, timeout time.Duration) error {
	for {
		if s.tryReceive(out) {
			return nil
		}
		if s.stopped.Load() {
			// One last check: a batch may have arrived between the
			// stopped check above and this one.
			if s.tryReceive(out) {
				return nil
			}
			return ErrStopped
		}
		if timeout <= 0 {
			<-s.wake
			continue
		}
		timer := time.NewTimer(timeout)
		select {
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			return ErrStopped
		}
	}
}

func (s *Stream) tryReceive(out *Batch) bool {
	head := s.head.Load()
	tail := s.tail.Load()
	if int(head-tail) < batchBytes {
		return false
	}
	var tmp [batchBytes]byte
	off := int(tail) % capacity
	n := copy(tmp[:], s.buf[off:])
	if n < batchBytes {
		copy(tmp[n:], s.buf[:])
	}
	for i := range out {
		out[i] = decodeEvent(tmp[i*eventSize:])
	}
	s.tail.Store(tail + batchBytes)
	return true
}

// Stop shuts down the consumer side. Any Receive call blocked waiting for
// data returns ErrStopped once the last pending batch (if any) has been
// delivered.
func (s *Stream) Stop() {
	s.stopped.Store(true)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports the number of whole batches currently buffered.
func (s *Stream) Pending() int {
	return int(s.head.Load()-s.tail.Load()) / batchBytes
}
