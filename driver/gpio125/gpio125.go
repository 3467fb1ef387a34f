// Package gpio125 is the Raspberry Pi hardware backend: it implements
// waveform.CaptureSource, waveform.Sink and waveform.CarrierSink on top
// of periph.io GPIO pins, completing the abstract hardware boundary the
// core codec packages are written against.
package gpio125

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"lfrfid.io/waveform"
)

// capturePin is the subset of gpio.PinIn Device needs; narrowed so tests
// can fake it without standing up real periph.io hardware.
type capturePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// drivePin is the subset of gpio.PinOut Device needs.
type drivePin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, freq physic.Frequency) error
}

// Device drives a 125kHz antenna front-end wired to three GPIOs: the
// capture input (a both-edge comparator output), the drive pin used for
// emulation, and the pull pin that shorts the antenna to modulate the
// reader field during a T5577 write.
type Device struct {
	capture capturePin
	drive   drivePin
	pull    drivePin

	pin     waveform.Pin
	playing bool
	stop    chan struct{}
}

// Open initializes the periph.io host layer and binds Device to the
// named BCM GPIO pins (e.g. "GPIO6"), looked up through the platform's
// pin registry. pin is the waveform.Pin index an encoder targets when
// building the Step sequence this device will Play — it need not match
// driveGPIO's BCM number, since waveform.Step only ever carries a
// logical pin position, not a platform pin name.
func Open(captureGPIO, driveGPIO, pullGPIO string, pin waveform.Pin) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio125: %w", err)
	}
	capture := gpioreg.ByName(captureGPIO)
	driveIO := gpioreg.ByName(driveGPIO)
	pullIO := gpioreg.ByName(pullGPIO)
	if capture == nil || driveIO == nil || pullIO == nil {
		return nil, fmt.Errorf("gpio125: unknown pin name among %q/%q/%q", captureGPIO, driveGPIO, pullGPIO)
	}
	drive, ok := driveIO.(gpio.PinOut)
	if !ok {
		return nil, fmt.Errorf("gpio125: %s is not an output pin", driveGPIO)
	}
	pull, ok := pullIO.(gpio.PinOut)
	if !ok {
		return nil, fmt.Errorf("gpio125: %s is not an output pin", pullGPIO)
	}
	if err := capture.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpio125: capture pin: %w", err)
	}
	if err := drive.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio125: drive pin: %w", err)
	}
	if err := pull.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio125: pull pin: %w", err)
	}
	return &Device{
		capture: capture,
		drive:   drive,
		pull:    pull,
		pin:     pin,
	}, nil
}

// PollEvent blocks for the next edge on the capture pin and reports its
// duration since the previous edge and the level transitioned into.
// Implements waveform.CaptureSource.
func (d *Device) PollEvent() (durationUS uint16, level int, err error) {
	last := time.Now()
	if !d.capture.WaitForEdge(-1) {
		return 0, 0, fmt.Errorf("gpio125: capture wait failed")
	}
	elapsed := time.Since(last)
	us := elapsed.Microseconds()
	if us < 0 {
		us = 0
	}
	if us > 0xFFFF {
		us = 0xFFFF
	}
	lvl := 0
	if d.capture.Read() == gpio.High {
		lvl = 1
	}
	return uint16(us), lvl, nil
}

// Play replays steps on the drive pin, one dwell per step, wrapping to
// the start when cyclic is true. It runs on the calling goroutine until
// Stop is called or, for a non-cyclic play, the sequence completes.
func (d *Device) Play(steps []waveform.Step, cyclic bool) error {
	d.stop = make(chan struct{})
	d.playing = true
	for {
		for _, s := range steps {
			level := gpio.Low
			if s.GPIOBSRR == d.pin.Set() {
				level = gpio.High
			}
			if err := d.drive.Out(level); err != nil {
				return fmt.Errorf("gpio125: play: %w", err)
			}
			select {
			case <-d.stop:
				return nil
			case <-time.After(time.Duration(s.DwellUS) * time.Microsecond):
			}
		}
		if !cyclic {
			return nil
		}
	}
}

// Stop ends a Play in progress.
func (d *Device) Stop() error {
	if d.playing {
		close(d.stop)
		d.playing = false
	}
	return d.drive.Out(gpio.Low)
}

// CarrierOn starts the drive pin's hardware PWM at freqHz, 50% duty,
// radiating the 125kHz reader field through the antenna.
func (d *Device) CarrierOn(freqHz int) error {
	if err := d.drive.PWM(gpio.DutyHalf, physic.Frequency(freqHz)*physic.Hertz); err != nil {
		return fmt.Errorf("gpio125: carrier on: %w", err)
	}
	return nil
}

// CarrierOff stops the PWM and drives the pin low, gating the field off
// for a T5577 write_gap between bits.
func (d *Device) CarrierOff() error {
	if err := d.drive.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio125: carrier off: %w", err)
	}
	return nil
}

// PullAssert shorts the antenna, used to modulate the reader field
// during a T5577 programming gap.
func (d *Device) PullAssert() error {
	return d.pull.Out(gpio.High)
}

// PullRelease releases the antenna short.
func (d *Device) PullRelease() error {
	return d.pull.Out(gpio.Low)
}
