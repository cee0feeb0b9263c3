package catalog

import "sync"

// Entity identifies what kind of row a change event refers to.
type Entity string

const (
	EntityBookmark Entity = "bookmark"
	EntityCategory Entity = "category"
)

// ChangeKind identifies the mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is published to subscribers after every successful mutation.
type Change struct {
	Entity Entity     `json:"entity"`
	ID     string     `json:"id"`
	Kind   ChangeKind `json:"kind"`
}

// Bus fans catalog change events out to subscribers. Publishing never
// blocks: a subscriber that stops draining its channel loses events
// rather than stalling mutations.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Change)}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the subscription.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Change, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a change to all current subscribers, best effort.
func (b *Bus) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub <- c:
		default:
		}
	}
}
