package orderpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astriaorg/auctioneer/bundle"
)

// ErrPoolClosed is returned by Sender.Send when the orderpool shut down
// before replying.
var ErrPoolClosed = errors.New("orderpool is not accepting requests")

// Cancellation requests removal of a live order. Its timestamp is taken at
// receipt of the cancellation and is compared against the stored bundle's
// timestamp: only strictly older bundles are removed.
type Cancellation struct {
	UUID      uuid.UUID
	Timestamp time.Time
}

// Order is a request to mutate the orderpool: either a new (or replacement)
// bundle, or a cancellation.
type Order interface {
	isOrder()
}

// NewOrder inserts a bundle or replaces the bundle stored under its UUID.
type NewOrder struct {
	Bundle *bundle.Bundle
}

// CancelOrder removes the bundle stored under the cancellation's UUID.
type CancelOrder struct {
	Cancellation Cancellation
}

func (NewOrder) isOrder()    {}
func (CancelOrder) isOrder() {}

// Response describes whether an order mutated the orderpool's storage.
type Response interface {
	isResponse()
}

// OrderResponse is the reply to a NewOrder.
type OrderResponse struct {
	UUID   uuid.UUID
	Result InsertResult
}

// CancellationResponse is the reply to a CancelOrder.
type CancellationResponse struct {
	UUID      uuid.UUID
	Timestamp time.Time
	Result    RemoveResult
}

func (OrderResponse) isResponse()        {}
func (CancellationResponse) isResponse() {}

type request struct {
	order Order
	reply chan Response
}

// Sender submits orders to a running orderpool. It is safe for concurrent
// use, except that Close must not race an in-flight Send.
type Sender struct {
	requests  chan request
	closeOnce sync.Once
}

func newRequestChannel(size int) (*Sender, chan request) {
	ch := make(chan request, size)
	return &Sender{requests: ch}, ch
}

// Send submits the order and awaits the orderpool's reply. It blocks while
// the request queue is at capacity; ctx bounds both the enqueue and the wait
// for the reply.
func (s *Sender) Send(ctx context.Context, order Order) (Response, error) {
	req := request{order: order, reply: make(chan Response, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rsp, ok := <-req.reply:
		if !ok {
			return nil, ErrPoolClosed
		}
		return rsp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the orderpool's request intake. The supervisor treats a closed
// request channel as "all senders are dead" and exits.
func (s *Sender) Close() {
	s.closeOnce.Do(func() { close(s.requests) })
}
