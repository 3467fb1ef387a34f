package rfid

import (
	"context"
	"testing"
	"time"

	"lfrfid.io/edge"
	"lfrfid.io/em4100"
	"lfrfid.io/proto"
	"lfrfid.io/waveform"
)

type fakeSink struct {
	played []waveform.Step
	cyclic bool
	stops  int
}

func (f *fakeSink) Play(steps []waveform.Step, cyclic bool) error {
	f.played = steps
	f.cyclic = cyclic
	return nil
}
func (f *fakeSink) Stop() error { f.stops++; return nil }

func TestStartReadDecodesAndPublishesTag(t *testing.T) {
	stream := edge.NewStream()
	registry := NewDefaultRegistry()
	w := NewWorker(stream, registry, nil, nil, nil)

	uid := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	steps, err := em4100.Encode(uid, 64, 2)
	if err != nil {
		t.Fatal(err)
	}
	events := waveform.StepsToEdges(steps, 2)

	go func() {
		var batch edge.Batch
		i := 0
		for i < len(events) {
			n := copy(batch[:], events[i:])
			for j := n; j < len(batch); j++ {
				batch[j] = edge.Event{DurationUS: 500, Edge: edge.Fall}
			}
			// The ring holds two batches; wait for room rather than let
			// ErrFull drop the batch that completes the frame.
			for stream.SendFromProducer(&batch) != nil {
				time.Sleep(time.Millisecond)
			}
			i += n
		}
		stream.Stop()
	}()

	if err := w.StartRead(context.Background()); err != nil {
		t.Fatalf("StartRead: %v", err)
	}
	tag := w.Tag()
	if tag.Protocol != proto.EM4100 {
		t.Fatalf("got protocol %v, want EM4100", tag.Protocol)
	}
	if string(tag.UID) != string(uid) {
		t.Errorf("got uid %x, want %x", tag.UID, uid)
	}
}

func TestStartEmulateRequiresTag(t *testing.T) {
	stream := edge.NewStream()
	registry := NewDefaultRegistry()
	w := NewWorker(stream, registry, nil, &fakeSink{}, nil)
	if err := w.StartEmulate(2); err != ErrNoTag {
		t.Fatalf("got err=%v, want ErrNoTag", err)
	}
}

func TestStartEmulatePlaysWaveform(t *testing.T) {
	stream := edge.NewStream()
	registry := NewDefaultRegistry()
	sink := &fakeSink{}
	w := NewWorker(stream, registry, nil, sink, nil)
	w.tag = proto.TagInfo{
		UID:        []byte{1, 2, 3, 4, 5},
		Protocol:   proto.EM4100,
		BitrateKHz: 64,
		Status:     proto.StatusDetected,
	}
	if err := w.StartEmulate(2); err != nil {
		t.Fatalf("StartEmulate: %v", err)
	}
	if len(sink.played) != 128 {
		t.Errorf("got %d steps, want 128", len(sink.played))
	}
	if !sink.cyclic {
		t.Error("expected cyclic playback")
	}
	if w.State() != Emulate {
		t.Errorf("state = %v, want Emulate", w.State())
	}
}

func TestGoIdleResetsState(t *testing.T) {
	stream := edge.NewStream()
	registry := NewDefaultRegistry()
	w := NewWorker(stream, registry, nil, nil, nil)
	w.state = Read
	w.GoIdle()
	if w.State() != Idle {
		t.Errorf("state = %v, want Idle", w.State())
	}
}
