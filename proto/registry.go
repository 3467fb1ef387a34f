package proto

import "lfrfid.io/edge"

// Decoder is implemented by each per-protocol (or, for EM4100, per-bitrate)
// decoder. Feed is called once per batch received from the event stream;
// decoders retain rolling state across batches and are never reset at a
// batch boundary — only Begin (full reset) and a protocol-internal partial
// reset on an invalid frame clear state.
type Decoder interface {
	// Begin resets all decoder state.
	Begin()
	// Feed processes one batch. If a valid frame is recovered, Feed
	// returns matched=true and a populated TagInfo; otherwise it returns
	// matched=false having retained whatever partial state it could use
	// to resynchronize on the next batch.
	Feed(batch *edge.Batch) (matched bool, info TagInfo)
	// End drops any partial state, as on a mode transition away from Read.
	End()
	// EdgesConsumed reports the number of edge events observed since the
	// last Begin or successful match — the resync-accounting counter
	// exposed by Registry.Stats for "signal present but not decoded" UI
	// feedback.
	EdgesConsumed() int
}

// Registry dispatches each incoming batch to every registered decoder, in
// registration order, stopping at the first match. Spec-chosen resolution
// for the multi-bitrate ambiguity: first-match-wins in registration order,
// never "most confident" or "all matches".
type Registry struct {
	decoders []Decoder
}

// NewRegistry constructs a registry dispatching to decoders in the given
// order. The order is significant: it is the tie-break when more than one
// decoder could match the same batch.
func NewRegistry(decoders ...Decoder) *Registry {
	return &Registry{decoders: decoders}
}

// Begin resets every registered decoder.
func (r *Registry) Begin() {
	for _, d := range r.decoders {
		d.Begin()
	}
}

// End drops partial state in every registered decoder.
func (r *Registry) End() {
	for _, d := range r.decoders {
		d.End()
	}
}

// Feed presents batch to each decoder in turn. It returns the first match,
// if any; decoders that did not match keep their partial state for the
// next batch.
func (r *Registry) Feed(batch *edge.Batch) (matched bool, info TagInfo) {
	for _, d := range r.decoders {
		if m, ti := d.Feed(batch); m {
			return true, ti
		}
	}
	return false, TagInfo{}
}

// Stats returns the current resync-accounting counters for every
// registered decoder, in registration order.
func (r *Registry) Stats() []int {
	stats := make([]int, len(r.decoders))
	for i, d := range r.decoders {
		stats[i] = d.EdgesConsumed()
	}
	return stats
}
