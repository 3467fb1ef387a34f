// Package rfid wires the codec and capture packages into the top-level
// worker: a single cooperative loop that owns the carrier/pull hardware
// and moves between Idle, Read, Write, Emulate and Error, exactly one at
// a time.
package rfid

import (
	"context"
	"errors"
	"log"

	"lfrfid.io/edge"
	"lfrfid.io/em4100"
	"lfrfid.io/h10301"
	"lfrfid.io/proto"
	"lfrfid.io/t5577"
	"lfrfid.io/waveform"
)

// State is the top-level mode the worker is in. Exactly one subsystem
// owns the carrier/pull hardware at a time, matching the state it names.
type State uint8

const (
	Idle State = iota
	Read
	Write
	Emulate
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Read:
		return "read"
	case Write:
		return "write"
	case Emulate:
		return "emulate"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrNoTag is returned by StartEmulate/StartWrite when called with no tag
// currently held (nothing decoded, and no profile loaded).
var ErrNoTag = errors.New("rfid: no tag to act on")

// NewDefaultRegistry builds the standard first-match-wins decoder
// registry: the three EM4100 bit rates, then H10301.
func NewDefaultRegistry() *proto.Registry {
	return proto.NewRegistry(
		em4100.NewDecoder(em4100.HalfBitRF16),
		em4100.NewDecoder(em4100.HalfBitRF32),
		em4100.NewDecoder(em4100.HalfBitRF64),
		h10301.NewDecoder(),
	)
}

// Worker is the single cooperative task that owns the capture stream, the
// decoder registry, and whichever hardware sink is active for the
// current state.
type Worker struct {
	stream   *edge.Stream
	registry *proto.Registry

	carrier waveform.CarrierSink
	sink    waveform.Sink
	capture waveform.CaptureSource

	state State
	tag   proto.TagInfo

	writeErrLimit int
}

// NewWorker constructs a worker over the given hardware. carrier and sink
// may be nil until Emulate/Write/Program is requested against a backend
// that provides them.
func NewWorker(stream *edge.Stream, registry *proto.Registry, capture waveform.CaptureSource, sink waveform.Sink, carrier waveform.CarrierSink) *Worker {
	return &Worker{
		stream:        stream,
		registry:      registry,
		capture:       capture,
		sink:          sink,
		carrier:       carrier,
		state:         Idle,
		writeErrLimit: t5577.WriteErrorCount,
	}
}

// State returns the worker's current top-level state.
func (w *Worker) State() State { return w.state }

// Tag returns a consistent snapshot of the currently held tag.
func (w *Worker) Tag() proto.TagInfo { return w.tag.Clone() }

// SetTag loads a tag directly, e.g. from a saved profile, so it can be
// emulated or programmed without a prior StartRead.
func (w *Worker) SetTag(tag proto.TagInfo) { w.tag = tag }

// GoIdle transitions to Idle, halting any in-progress read at its next
// stream wake-up and dropping partial decoder state. Per the cancellation
// model, no event delivery past this call is guaranteed.
func (w *Worker) GoIdle() {
	w.registry.End()
	w.state = Idle
	log.Printf("rfid: -> idle")
}

// StartRead transitions to Read and begins decoding edges from the
// stream, publishing Tag() on the first successful match. StartRead blocks
// until ctx is canceled, the stream stops, or the worker leaves Read; call
// it from its own goroutine.
func (w *Worker) StartRead(ctx context.Context) error {
	w.state = Read
	w.registry.Begin()
	log.Printf("rfid: -> read")

	var batch edge.Batch
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := w.stream.Receive(&batch, 0); err != nil {
			if errors.Is(err, edge.ErrStopped) {
				return nil
			}
			return err
		}
		if w.state != Read {
			return nil
		}
		matched, ti := w.registry.Feed(&batch)
		if matched {
			w.tag = ti
			log.Printf("rfid: decoded %s uid=%x", ti.Protocol, ti.UID)
		}
	}
}

// StartEmulate transitions to Emulate, building the waveform for the
// currently held tag and replaying it cyclically on sink.
func (w *Worker) StartEmulate(pin waveform.Pin) error {
	if w.tag.Status != proto.StatusDetected {
		return ErrNoTag
	}
	steps, err := w.buildWaveform(pin)
	if err != nil {
		return err
	}
	w.state = Emulate
	log.Printf("rfid: -> emulate %s uid=%x", w.tag.Protocol, w.tag.UID)
	return w.sink.Play(steps, true)
}

func (w *Worker) buildWaveform(pin waveform.Pin) ([]waveform.Step, error) {
	switch w.tag.Protocol {
	case proto.EM4100:
		return em4100.Encode(w.tag.UID, w.tag.BitrateKHz, pin)
	case proto.H10301:
		return h10301.Encode(w.tag.UID, pin)
	default:
		return nil, ErrNoTag
	}
}

// StopEmulate stops waveform replay and returns to Idle.
func (w *Worker) StopEmulate() error {
	if err := w.sink.Stop(); err != nil {
		return err
	}
	w.state = Idle
	return nil
}

// StartWrite transitions to Write and programs the currently held
// EM4100 tag onto a T5577, verifying the result and retrying up to
// writeErrLimit times before transitioning to Error.
func (w *Worker) StartWrite(ctx context.Context, password []byte) error {
	if w.tag.Status != proto.StatusDetected || w.tag.Protocol != proto.EM4100 {
		return ErrNoTag
	}
	w.state = Write
	log.Printf("rfid: -> write uid=%x", w.tag.UID)

	prog, err := t5577.BuildEM4100Write(w.tag.UID, w.tag.BitrateKHz)
	if err != nil {
		w.state = Error
		return err
	}
	writer := t5577.NewWriter(w.carrier)
	if err := t5577.VerifyWrite(ctx, writer, w.registry, w.capture, prog, password, w.tag); err != nil {
		// VerifyWrite fails only after writeErrLimit consecutive
		// program+verify attempts have failed.
		w.state = Error
		return err
	}
	w.state = Idle
	return nil
}
