package ingest

import (
	"context"

	"github.com/tote-app/tote/internal/domain"
)

// State tracks an ingestion through its lifecycle.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateWriting
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateWriting:
		return "writing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ticket is the in-memory coordination object for one in-flight
// ingestion. All waiters for the same bookmark share it: the done
// channel is the one-shot result broadcast, closed exactly once after
// result and err are set.
//
// state transitions happen only under the coordinator's mutex; result
// and err are written once, before done is closed, and read only after.
type ticket struct {
	id     string
	url    string
	state  State
	cancel context.CancelFunc

	done   chan struct{}
	result domain.IngestResult
	err    error
}

func newTicket(id, url string, cancel context.CancelFunc) *ticket {
	return &ticket{
		id:     id,
		url:    url,
		state:  StateInFlight,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// supersede cancels the job behind this ticket. Idempotent.
// Called under the coordinator's mutex.
func (t *ticket) supersede() {
	if t.state == StateCancelled {
		return
	}
	t.state = StateCancelled
	t.cancel()
}
