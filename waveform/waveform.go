// Package waveform defines the hardware boundary this module emulates
// and programs through: the timed output steps an encoder produces, and
// the sink/source interfaces a concrete driver (see driver/gpio125)
// implements. None of the hardware itself lives here — only the contract.
package waveform

import "lfrfid.io/edge"

// Step is one output level held for a fixed dwell, replayed cyclically by
// a hardware timer to emulate a tag. GPIOBSRR encodes the pin state using
// the BSRR convention: the low 16 bits set pins, the high 16 bits reset
// them, so exactly one of the two halves is non-zero for a single-pin
// waveform.
type Step struct {
	GPIOBSRR uint32
	DwellUS  uint16
}

// Pin is the single bit position a [Step] drives; encoders build BSRR
// values against a configurable pin rather than hard-coding bit 0, so the
// same waveform can be replayed on whichever GPIO the platform wires to
// the antenna driver.
type Pin uint8

// Set returns the BSRR value that drives p high.
func (p Pin) Set() uint32 { return 1 << uint32(p) }

// Reset returns the BSRR value that drives p low.
func (p Pin) Reset() uint32 { return 1 << (uint32(p) + 16) }

// Sink replays a sequence of steps, updating the output before each dwell
// and arming a one-shot timer for its duration. When cyclic is true the
// sequence wraps to step 0 at the end instead of stopping.
type Sink interface {
	Play(steps []Step, cyclic bool) error
	Stop() error
}

// CarrierSink drives the 125kHz reader field and the pull line that
// shorts the antenna to modulate it during a T5577 write.
type CarrierSink interface {
	CarrierOn(freqHz int) error
	CarrierOff() error
	PullAssert() error
	PullRelease() error
}

// CaptureSource is re-exported here for callers that only need the
// hardware-facing contract without importing the batching logic in
// package edge.
type CaptureSource interface {
	PollEvent() (durationUS uint16, level int, err error)
}

// StepsToEdges turns a single (non-wrapping) playthrough of steps into
// the edge-event stream a capture front-end would observe: one event per
// step, carrying that step's dwell and the direction of the transition
// that ends it (Fall after a high step, Rise after a low one), the same
// convention edge.Source uses for a captured level.
//
// Two adjacent steps at the same level yield two equal-direction events,
// the form a decoder's symbol normalization splits a merged "full"
// interval into; the merged interval itself is never produced, so this
// helper does not exercise that normalization step.
func StepsToEdges(steps []Step, pin Pin) []edge.Event {
	events := make([]edge.Event, len(steps))
	for i, s := range steps {
		dir := edge.Rise
		if s.GPIOBSRR == pin.Set() {
			dir = edge.Fall
		}
		events[i] = edge.Event{DurationUS: s.DwellUS, Edge: dir}
	}
	return events
}
