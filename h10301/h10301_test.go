package h10301

import (
	"reflect"
	"testing"

	"lfrfid.io/edge"
	"lfrfid.io/proto"
	"lfrfid.io/waveform"
)

func feed(d *Decoder, events []edge.Event) (bool, proto.TagInfo) {
	var batch edge.Batch
	i := 0
	for i < len(events) {
		n := copy(batch[:], events[i:])
		for j := n; j < len(batch); j++ {
			batch[j] = edge.Event{DurationUS: 500, Edge: edge.Fall}
		}
		if matched, ti := d.Feed(&batch); matched {
			return true, ti
		}
		i += n
	}
	return false, proto.TagInfo{}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	uids := [][]byte{
		{0x2E, 0x12, 0x34},
		{0x00, 0x00, 0x00},
		{0xFF, 0xFF, 0xFF},
		{0x01, 0xAB, 0xCD},
	}
	for _, uid := range uids {
		steps, err := Encode(uid, 2)
		if err != nil {
			t.Fatalf("Encode(%x): %v", uid, err)
		}
		events := waveform.StepsToEdges(steps, 2)
		d := NewDecoder()
		matched, ti := feed(d, events)
		if !matched {
			t.Fatalf("uid=%x: no match", uid)
		}
		if !reflect.DeepEqual(ti.UID, uid) {
			t.Errorf("uid=%x: got uid %x", uid, ti.UID)
		}
		if ti.Protocol != proto.H10301 {
			t.Errorf("got protocol %v", ti.Protocol)
		}
	}
}

// TestFacilityCardExtraction exercises the literal example: UID bytes
// 0x2E/0x12/0x34 decode to facility 46, card 4660.
func TestFacilityCardExtraction(t *testing.T) {
	uid := []byte{0x2E, 0x12, 0x34}
	steps, err := Encode(uid, 2)
	if err != nil {
		t.Fatal(err)
	}
	events := waveform.StepsToEdges(steps, 2)
	d := NewDecoder()
	matched, ti := feed(d, events)
	if !matched {
		t.Fatal("expected match")
	}
	facility := ti.UID[0]
	card := uint16(ti.UID[1])<<8 | uint16(ti.UID[2])
	if facility != 46 {
		t.Errorf("facility = %d, want 46", facility)
	}
	if card != 4660 {
		t.Errorf("card = %d, want 4660", card)
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	uid := []byte{0x2E, 0x12, 0x34}
	steps, err := Encode(uid, 2)
	if err != nil {
		t.Fatal(err)
	}
	events := waveform.StepsToEdges(steps, 2)
	// Corrupt a half-period well inside the preamble/company header.
	events[4].DurationUS += 40
	events[5].DurationUS += 40
	d := NewDecoder()
	matched, _ := feed(d, events)
	if matched {
		t.Fatal("expected no match on corrupted header")
	}
}
