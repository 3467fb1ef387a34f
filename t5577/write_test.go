package t5577

import (
	"context"
	"testing"
)

type fakeCarrier struct {
	onCalls, offCalls     int
	assertCalls, relCalls int
	freqHz                int
}

func (f *fakeCarrier) CarrierOn(freqHz int) error { f.onCalls++; f.freqHz = freqHz; return nil }
func (f *fakeCarrier) CarrierOff() error          { f.offCalls++; return nil }
func (f *fakeCarrier) PullAssert() error          { f.assertCalls++; return nil }
func (f *fakeCarrier) PullRelease() error         { f.relCalls++; return nil }

func TestWriteRunsFullSequence(t *testing.T) {
	prog, err := BuildEM4100Write([]byte{1, 2, 3, 4, 5}, 64)
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeCarrier{}
	w := NewWriter(fc)
	if err := w.Write(context.Background(), prog, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fc.assertCalls == 0 || fc.relCalls == 0 {
		t.Error("expected the pull line to be asserted and released")
	}
	if fc.freqHz != 125000 {
		t.Errorf("carrier frequency = %d, want 125000", fc.freqHz)
	}
}

func TestWriteRejectsBadPasswordLength(t *testing.T) {
	prog, err := BuildEM4100Write([]byte{1, 2, 3, 4, 5}, 64)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(&fakeCarrier{})
	if err := w.Write(context.Background(), prog, []byte{1, 2, 3}); err != ErrNoPassword {
		t.Fatalf("got err=%v, want ErrNoPassword", err)
	}
}

func TestWriteStopsOnCanceledContext(t *testing.T) {
	prog, err := BuildEM4100Write([]byte{1, 2, 3, 4, 5}, 64)
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeCarrier{}
	w := NewWriter(fc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, prog, nil); err == nil {
		t.Fatal("expected an error from a pre-canceled context")
	}
	if fc.relCalls == 0 {
		t.Error("expected the pull line to be released even on early exit")
	}
}
