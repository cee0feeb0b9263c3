package catalog

import "sync"

// DefaultRecorderLimit bounds how much change history a Recorder keeps.
const DefaultRecorderLimit = 256

// SeqChange is a change event with its position in the store's history.
type SeqChange struct {
	Seq uint64 `json:"seq"`
	Change
}

// Recorder subscribes to a store and keeps a bounded, sequence-numbered
// history of its change events, so pull-based clients can ask "what
// happened since seq N".
type Recorder struct {
	mu      sync.Mutex
	entries []SeqChange
	nextSeq uint64
	limit   int

	cancel func()
	done   chan struct{}
}

// NewRecorder attaches a recorder to the store's event bus.
func NewRecorder(s *Store, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultRecorderLimit
	}

	events, cancel := s.Subscribe()
	r := &Recorder{
		nextSeq: 1,
		limit:   limit,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		for c := range events {
			r.mu.Lock()
			r.entries = append(r.entries, SeqChange{Seq: r.nextSeq, Change: c})
			r.nextSeq++
			if len(r.entries) > r.limit {
				r.entries = r.entries[len(r.entries)-r.limit:]
			}
			r.mu.Unlock()
		}
	}()

	return r
}

// Since returns all recorded changes with Seq > since, plus the sequence
// number a caller should pass next time.
func (r *Recorder) Since(since uint64) ([]SeqChange, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SeqChange, 0)
	for _, e := range r.entries {
		if e.Seq > since {
			out = append(out, e)
		}
	}
	return out, r.nextSeq - 1
}

// Close detaches the recorder from the bus.
func (r *Recorder) Close() {
	r.cancel()
	<-r.done
}
