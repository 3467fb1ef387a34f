package em4100

import (
	"errors"

	"lfrfid.io/waveform"
)

// EmulationCorrectionUS shortens every half-bit dwell by a fixed amount to
// compensate for the replay timer's own setup overhead, so the emulated
// period matches the nominal half-bit period as measured by a reader.
const EmulationCorrectionUS = 3

// ErrUIDLength is returned by Encode when uid is not exactly 5 bytes.
var ErrUIDLength = errors.New("em4100: uid must be 5 bytes")

// buildFrame assembles the 64-bit EM4100 frame for uid: 9 preamble ones,
// 10 rows of (4 data bits + even row parity), 4 even column-parity bits,
// and a 0 stop bit.
func buildFrame(uid [5]byte) uint64 {
	nibbles := uidToNibbles(uid)
	var frame uint64
	shift := func(bit uint64) { frame = frame<<1 | bit }
	for i := 0; i < preambleBits; i++ {
		shift(1)
	}
	var colOnes [numCols]int
	for r := 0; r < numRows; r++ {
		nib := nibbles[r]
		rowOnes := 0
		for b := 0; b < 4; b++ {
			bit := (nib >> uint(3-b)) & 1
			shift(uint64(bit))
			if bit != 0 {
				rowOnes++
				colOnes[b]++
			}
		}
		shift(uint64(rowOnes & 1))
	}
	for c := 0; c < numCols; c++ {
		shift(uint64(colOnes[c] & 1))
	}
	shift(0) // stop bit
	return frame
}

// BuildFrame assembles the 64-bit EM4100 frame for uid, exported for
// t5577's programming-frame builder to pack into T5577 data blocks.
func BuildFrame(uid []byte) (uint64, error) {
	if len(uid) != 5 {
		return 0, ErrUIDLength
	}
	var uidArr [5]byte
	copy(uidArr[:], uid)
	return buildFrame(uidArr), nil
}

// uidToNibbles splits a 5-byte UID into 10 nibbles, MSB nibble of byte 0
// first.
func uidToNibbles(uid [5]byte) [numRows]byte {
	var n [numRows]byte
	for i, b := range uid {
		n[2*i] = b >> 4
		n[2*i+1] = b & 0x0F
	}
	return n
}

// Encode builds the Manchester waveform for uid at the given bit rate (one
// of 16, 32, 64), driving pin. The result is always 128 steps: 64 bits x 2
// half-bits.
func Encode(uid []byte, bitrate uint16, pin waveform.Pin) ([]waveform.Step, error) {
	if len(uid) != 5 {
		return nil, ErrUIDLength
	}
	var uidArr [5]byte
	copy(uidArr[:], uid)
	frame := buildFrame(uidArr)
	halfBitUS := HalfBitForBitrate(bitrate) - EmulationCorrectionUS

	steps := make([]waveform.Step, 0, frameBits*2)
	for p := 0; p < frameBits; p++ {
		bit := bitAt(frame, p)
		var first, second bool // true = HIGH
		if bit == 1 {
			first, second = true, false
		} else {
			first, second = false, true
		}
		steps = append(steps, waveform.Step{GPIOBSRR: levelBSRR(pin, first), DwellUS: halfBitUS})
		steps = append(steps, waveform.Step{GPIOBSRR: levelBSRR(pin, second), DwellUS: halfBitUS})
	}
	return steps, nil
}

func levelBSRR(pin waveform.Pin, high bool) uint32 {
	if high {
		return pin.Set()
	}
	return pin.Reset()
}
