package hostlink

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// rwBuffer adapts a bytes.Buffer into an io.ReadWriter for testing the
// framing helpers without a real serial port.
type rwBuffer struct {
	bytes.Buffer
}

func TestPushThenPullProfile(t *testing.T) {
	var buf rwBuffer
	record := []byte("Filetype: RFID Tag\nUID: 01 02 03 04 05\n")
	if err := PushProfile(&buf, record); err != nil {
		t.Fatal(err)
	}
	got, err := PullProfile(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(record) {
		t.Errorf("got %q, want %q", got, record)
	}
}

func TestPullProfileUnexpectedEOF(t *testing.T) {
	var buf rwBuffer
	buf.WriteString("Filetype: RFID Tag\n")
	_, err := PullProfile(&buf)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("got err=%v, want io.ErrUnexpectedEOF", err)
	}
}
