// Package h10301 implements the HID H10301 FSK2/Manchester decoder and its
// matching waveform encoder.
package h10301

import (
	"lfrfid.io/edge"
	"lfrfid.io/proto"
)

// Symbol periods, in microseconds: a 0 symbol is one short+long half-period
// pair summing near PeriodZeroUS, a 1 symbol one summing near PeriodOneUS.
const (
	PeriodZeroUS uint16 = 64
	PeriodOneUS  uint16 = 80
	periodTolPct uint16 = 20
)

// frameBits is the full fixed-header + Manchester-payload frame: 8 preamble
// bits, 14 company bits, 22 card-format bits, 52 Manchester-paired bits
// decoding to the 26-bit payload.
const frameBits = 96

const (
	preambleBits = 8
	companyBits  = 14
	formatBits   = 22
	payloadBits  = 52 // 26 data bits x 2 (Manchester-paired)

	preambleValue uint32 = 0x1D
	companyValue  uint32 = 0x1556
	formatValue   uint32 = 0x155556
)

// symBufCap is not used by Decoder, which carries at most one half-period
// (its half field) from one event to the next.
const symBufCap = 4

// bitWindowCap is the maximum run of symbols fsk_bit_feed must look back
// over before a bit resolves; mirrors the original decoder's fixed 8-byte
// symbol buffer.
const bitWindowCap = 8

// Decoder recovers an H10301 frame from a stream of half-period edge
// events. Unlike em4100.Decoder, it keeps a continuous 96-bit sliding
// window (no full reset on an invalid frame) mirroring the original
// firmware's shift-register decoder.
type Decoder struct {
	haveHalf bool
	half     edge.Event

	symWin   [bitWindowCap]uint8
	symCount int

	word      [3]uint32 // 96-bit shift register, word[0] most significant
	bitCount  int
	consumed  int
}

// NewDecoder constructs an H10301 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Begin() {
	d.haveHalf = false
	d.symCount = 0
	d.word = [3]uint32{}
	d.bitCount = 0
	d.consumed = 0
}

func (d *Decoder) End() {
	d.haveHalf = false
	d.symCount = 0
	d.word = [3]uint32{}
	d.bitCount = 0
}

func (d *Decoder) EdgesConsumed() int { return d.consumed }

func (d *Decoder) Feed(batch *edge.Batch) (bool, proto.TagInfo) {
	for _, e := range batch {
		d.consumed++
		symbol, ok := d.feedHalf(e)
		if !ok {
			continue
		}
		bit, ok := d.feedSymbol(symbol)
		if !ok {
			continue
		}
		d.pushBit(bit)
		if d.bitCount < frameBits {
			continue
		}
		if valid(d.word) {
			raw26, ok := decodePayload(d.word)
			if ok && parityOK(raw26) {
				facility, card := extractFields(raw26)
				d.word = [3]uint32{}
				d.bitCount = 0
				d.consumed = 0
				return true, proto.TagInfo{
					UID:        []byte{facility, byte(card >> 8), byte(card)},
					Protocol:   proto.H10301,
					Modulation: proto.ModulationFSK2,
					Encoding:   proto.EncodingManchester,
					CardFormat: proto.CardFormatRaw26,
					Status:     proto.StatusDetected,
				}
			}
		}
	}
	return false, proto.TagInfo{}
}

// feedHalf pairs consecutive opposite-direction half-periods into a
// symbol period. Same-direction or out-of-tolerance pairs reset the
// pairing (keeping the offending half as the new "previous"), never the
// whole decode — exactly as the original fsk_symbol_feed does.
func (d *Decoder) feedHalf(e edge.Event) (symbol uint8, ok bool) {
	if !d.haveHalf {
		d.half = e
		d.haveHalf = true
		return 0, false
	}
	h0, h1 := d.half, e
	if h0.Edge == h1.Edge {
		d.half = e
		return 0, false
	}
	period := uint32(h0.DurationUS) + uint32(h1.DurationUS)
	nearZero := withinPct(period, uint32(PeriodZeroUS), uint32(periodTolPct))
	nearOne := withinPct(period, uint32(PeriodOneUS), uint32(periodTolPct))
	d.haveHalf = false
	if !nearZero && !nearOne {
		d.half = e
		d.haveHalf = true
		return 0, false
	}
	if nearZero && nearOne {
		d0 := absDiff(period, uint32(PeriodZeroUS))
		d1 := absDiff(period, uint32(PeriodOneUS))
		nearZero = d0 <= d1
		nearOne = !nearZero
	}
	if nearOne {
		return 1, true
	}
	return 0, true
}

func withinPct(v, target, pct uint32) bool {
	tol := target * pct / 100
	return absDiff(v, target) <= tol
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// feedSymbol accumulates FSK symbols into a bit using run-length voting:
// five or more 1-symbols (or a short run dominated by 1s) resolve to bit
// 1; six or more 0-symbols (or a short run dominated by 0s) resolve to
// bit 0. Matches the original's fsk_bit_feed thresholds exactly.
func (d *Decoder) feedSymbol(symbol uint8) (bit uint8, ok bool) {
	if d.symCount >= bitWindowCap {
		d.symCount = 0
	}
	d.symWin[d.symCount] = symbol
	d.symCount++

	var ones, zeros int
	for i := 0; i < d.symCount; i++ {
		if d.symWin[i] == 1 {
			ones++
		} else {
			zeros++
		}
	}
	total := d.symCount

	if ones >= 5 || (total >= 5 && ones >= 4 && zeros <= 1) {
		d.symCount = 0
		return 1, true
	}
	if zeros >= 6 || (total >= 6 && zeros >= 5 && ones <= 1) {
		d.symCount = 0
		return 0, true
	}
	return 0, false
}

// pushBit shifts one bit into the 96-bit sliding window, word[0] holding
// the most significant 32 bits.
func (d *Decoder) pushBit(bit uint8) {
	d.word[0] = d.word[0]<<1 | (d.word[1] >> 31 & 1)
	d.word[1] = d.word[1]<<1 | (d.word[2] >> 31 & 1)
	d.word[2] = d.word[2]<<1 | uint32(bit&1)
	if d.bitCount < frameBits {
		d.bitCount++
	}
}

// valid checks the fixed 44-bit header against the three field constants.
func valid(word [3]uint32) bool {
	if (word[0] >> 24) != preambleValue {
		return false
	}
	if (word[0]>>10)&0x3FFF != companyValue {
		return false
	}
	fmt := (word[0]&0x3FF)<<12 | (word[1]>>20)&0xFFF
	if fmt != formatValue {
		return false
	}
	return true
}

// decodePayload Manchester-decodes the trailing 52 raw bits of word into
// the 26-bit payload, symbol 0b01 -> 0, 0b10 -> 1.
func decodePayload(word [3]uint32) (uint32, bool) {
	var r uint32
	for i := 9; i >= 0; i-- {
		p := uint8(word[1]>>uint(2*i)) & 3
		b, ok := decodeSymbolPair(p)
		if !ok {
			return 0, false
		}
		r = r<<1 | uint32(b)
	}
	for i := 15; i >= 0; i-- {
		p := uint8(word[2]>>uint(2*i)) & 3
		b, ok := decodeSymbolPair(p)
		if !ok {
			return 0, false
		}
		r = r<<1 | uint32(b)
	}
	return r, true
}

func decodeSymbolPair(p uint8) (uint8, bool) {
	switch p {
	case 0b01:
		return 0, true
	case 0b10:
		return 1, true
	default:
		return 0, false
	}
}

// parityOK checks the raw-26 payload's split parity: odd over the low 13
// bits, even over the high 13 bits.
func parityOK(raw26 uint32) bool {
	var p int
	for i := 0; i < 13; i++ {
		if raw26>>uint(i)&1 != 0 {
			p++
		}
	}
	if p&1 != 1 {
		return false
	}
	p = 0
	for i := 13; i < 26; i++ {
		if raw26>>uint(i)&1 != 0 {
			p++
		}
	}
	if p&1 != 0 {
		return false
	}
	return true
}

// extractFields pulls the facility code and card number out of a
// parity-checked raw-26 payload.
func extractFields(raw26 uint32) (facility byte, card uint16) {
	facility = byte(raw26 >> 17 & 0xFF)
	card = uint16(raw26 >> 1 & 0xFFFF)
	return facility, card
}
