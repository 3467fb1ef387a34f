package t5577

import (
	"bytes"
	"context"
	"errors"
	"time"

	"lfrfid.io/edge"
	"lfrfid.io/proto"
	"lfrfid.io/waveform"
)

// WriteErrorCount is the number of consecutive program+verify failures
// tolerated before the caller should give up and surface an error.
const WriteErrorCount = 10

// ErrVerifyFailed is returned after WriteErrorCount consecutive
// verification failures.
var ErrVerifyFailed = errors.New("t5577: verify failed after retries")

// settleDelay is the time allowed for the just-written tag to power back
// up and begin responding on the reader field before a verify read.
const settleDelay = 5 * time.Millisecond

// VerifyWrite programs prog onto the tag via w, then runs one decode pass
// over freshly captured edges from cap and compares the result against
// want, comparing exactly proto.DescriptorFor(want.Protocol).DataSize
// bytes of UID — never len(want.UID)+1, which overreads H10301 by one
// byte. On mismatch, it retries up to WriteErrorCount times.
func VerifyWrite(ctx context.Context, w *Writer, registry *proto.Registry, cap waveform.CaptureSource, prog Program, password []byte, want proto.TagInfo) error {
	dataSize := proto.DescriptorFor(want.Protocol).DataSize

	for attempt := 0; attempt < WriteErrorCount; attempt++ {
		if err := w.Write(ctx, prog, password); err != nil {
			continue
		}
		sleep(ctx, settleDelay)

		registry.Begin()
		matched, got := readOnce(cap, registry)
		registry.End()

		if matched && got.Protocol == want.Protocol &&
			bytes.Equal(got.UID[:dataSize], want.UID[:dataSize]) {
			return nil
		}
	}
	return ErrVerifyFailed
}

// maxVerifyEdges bounds a single verify read: a real frame resolves in a
// few hundred edges, so this is a generous ceiling against a tag that
// never responds.
const maxVerifyEdges = 8192

// readOnce polls cap directly (no ISR/worker split needed for a
// synchronous verify read) and feeds fixed-size batches to registry
// until a decoder matches or the edge budget is exhausted.
func readOnce(cap waveform.CaptureSource, registry *proto.Registry) (bool, proto.TagInfo) {
	var batch edge.Batch
	n := 0
	for i := 0; i < maxVerifyEdges; i++ {
		durationUS, level, err := cap.PollEvent()
		if err != nil {
			return false, proto.TagInfo{}
		}
		dir := edge.Fall
		if level != 0 {
			dir = edge.Rise
		}
		batch[n] = edge.Event{DurationUS: durationUS, Edge: dir}
		n++
		if n == len(batch) {
			if matched, ti := registry.Feed(&batch); matched {
				return true, ti
			}
			n = 0
		}
	}
	return false, proto.TagInfo{}
}
