package test_utils

import "time"

type ChanResult[V any] struct {
	Value   V
	Closed  bool
	Timeout bool
}

// RequireChan receives one value from ch, reporting a timeout instead of
// blocking the test forever.
func RequireChan[V any](ch <-chan V, timeout time.Duration) ChanResult[V] {
	var v V
	select {
	case v, ok := <-ch:
		return ChanResult[V]{Value: v, Closed: !ok}
	case <-time.After(timeout):
		return ChanResult[V]{Value: v, Timeout: true}
	}
}

// RequireNoChan reports whether ch stayed silent for the full window.
func RequireNoChan[V any](ch <-chan V, window time.Duration) bool {
	select {
	case <-ch:
		return false
	case <-time.After(window):
		return true
	}
}

// RequireClosed reports whether ch is closed within the timeout.
func RequireClosed[V any](ch <-chan V, timeout time.Duration) bool {
	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(timeout):
		return false
	}
}
