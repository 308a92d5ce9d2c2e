// Package statestream fans out state snapshots to subscribers that must never
// block the producer. A Hub is not safe for concurrent use on its own; owners
// call it while holding their own lock.
package statestream

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 8

type Hub[T any] struct {
	buffer int
	subs   map[int]chan T
	next   int
	closed bool
}

func NewHub[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub[T]{buffer: buffer, subs: make(map[int]chan T)}
}

// Add registers a subscriber and queues initial as its first value. On a
// closed hub the returned channel is already closed.
func (h *Hub[T]) Add(initial T) (<-chan T, int) {
	ch := make(chan T, h.buffer)
	if h.closed {
		close(ch)
		return ch, -1
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	ch <- initial
	return ch, id
}

// Remove closes and forgets subscriber id. Unknown ids are ignored.
func (h *Hub[T]) Remove(id int) {
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber. A full channel drops its oldest
// value so readers always end on the latest state.
func (h *Hub[T]) Publish(v T) {
	for _, ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub[T]) Len() int {
	return len(h.subs)
}

// Close closes every subscriber channel. Later Adds get closed channels.
func (h *Hub[T]) Close() {
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
