// Package t5577 builds T5577 programming frames (mode register + data
// blocks) and drives the timed pull/gap sequence that writes them onto a
// 125kHz carrier.
package t5577

import (
	"errors"

	"lfrfid.io/em4100"
)

// Mode-register bit fields, named and shifted exactly as the T5577
// datasheet's block 0 layout.
const (
	modManchesterShift = 12
	modManchester       = 8 << modManchesterShift

	bitrateShift = 18
	bitrateRF16  = 1 << bitrateShift
	bitrateRF32  = 2 << bitrateShift
	bitrateRF64  = 5 << bitrateShift

	maxBlockShift = 5
	transBL1_2    = 2 << maxBlockShift
)

// ErrUnsupportedBitrate is returned by BitrateCode for any divider other
// than 16, 32 or 64.
var ErrUnsupportedBitrate = errors.New("t5577: unsupported bitrate")

// BitrateCode maps an EM4100 RF divider (16/32/64) to the T5577 mode
// register's bit-rate field.
func BitrateCode(bitrate uint16) (uint32, error) {
	switch bitrate {
	case em4100.Bitrate(em4100.HalfBitRF16):
		return bitrateRF16, nil
	case em4100.Bitrate(em4100.HalfBitRF32):
		return bitrateRF32, nil
	case em4100.Bitrate(em4100.HalfBitRF64):
		return bitrateRF64, nil
	default:
		return 0, ErrUnsupportedBitrate
	}
}

// BlockCount is the fixed number of 32-bit data blocks a T5577 exposes.
const BlockCount = 8

// Program is a T5577 programming frame: block 0 is the mode-register
// configuration, blocks 1..MaxBlocks-1 hold the payload.
type Program struct {
	BlockData [BlockCount]uint32
	MaxBlocks uint32
}

// BuildEM4100Write assembles the T5577 program that writes uid at bitrate
// onto a tag configured for EM4100 Manchester emulation: mode register in
// block 0, the 64-bit EM4100 frame MSB-first across blocks 1-2.
func BuildEM4100Write(uid []byte, bitrate uint16) (Program, error) {
	if len(uid) != 5 {
		return Program{}, em4100.ErrUIDLength
	}
	code, err := BitrateCode(bitrate)
	if err != nil {
		return Program{}, err
	}
	frame, err := em4100.BuildFrame(uid)
	if err != nil {
		return Program{}, err
	}
	var p Program
	p.BlockData[0] = modManchester | code | transBL1_2
	p.BlockData[1] = uint32(frame >> 32)
	p.BlockData[2] = uint32(frame)
	p.MaxBlocks = 3
	return p, nil
}
