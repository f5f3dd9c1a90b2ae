// Package watch provides a single-slot, latest-value channel.
//
// A Source publishes values; its Receiver observes only the most recent one.
// If the receiver is slow, intermediate values are coalesced: the signal on
// Changes says "something changed", the payload is read through Latest.
package watch

import "sync"

// Source is the writing half of a watch channel.
type Source[T any] struct {
	mu      sync.Mutex
	latest  T
	closed  bool
	changes chan struct{}
}

// Receiver is the reading half of a watch channel.
type Receiver[T any] struct {
	src *Source[T]
}

// New creates a watch channel holding initial.
func New[T any](initial T) (*Source[T], *Receiver[T]) {
	s := &Source[T]{
		latest:  initial,
		changes: make(chan struct{}, 1),
	}
	return s, &Receiver[T]{src: s}
}

// Send stores v as the latest value and signals the receiver. If a previous
// signal has not been consumed yet, the two collapse into one. The signal is
// sent under the same lock that guards Close, so Send never races the channel
// close.
func (s *Source[T]) Send(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.latest = v
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Close marks the source as dead. The receiver observes the closed channel
// once any pending signal has been drained.
func (s *Source[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changes)
}

// Changes signals that Latest may hold a new value. A receive with ok ==
// false means the source is gone.
func (r *Receiver[T]) Changes() <-chan struct{} {
	return r.src.changes
}

// Latest returns the most recently sent value.
func (r *Receiver[T]) Latest() T {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	return r.src.latest
}
