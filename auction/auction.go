// Package auction implements the top-of-block auction: one auction per
// proposed sequencer block, collecting bids from the orderpool through a
// bidpipe and selecting a winner when its timer expires.
package auction

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// bidChannelSize bounds how many bids a pipe can buffer ahead of the auction
// loop.
const bidChannelSize = 256

// Auction collects bids for one optimistic block and selects a winner once
// the latency margin elapses.
type Auction struct {
	pipe          *Bidpipe
	bids          <-chan *Bid
	latencyMargin time.Duration
}

// New creates an auction for the optimistic block identified by hash and
// number. The latency margin is how long the auction stays open for bids
// after Run starts.
func New(id ID, optimisticBlockHash common.Hash, optimisticBlockNumber uint64, latencyMargin time.Duration) *Auction {
	bids := make(chan *Bid, bidChannelSize)
	return &Auction{
		pipe: &Bidpipe{
			AuctionID:             id,
			OptimisticBlockHash:   optimisticBlockHash,
			OptimisticBlockNumber: optimisticBlockNumber,
			bids:                  bids,
			closed:                make(chan struct{}),
		},
		bids:          bids,
		latencyMargin: latencyMargin,
	}
}

// Bidpipe returns the handle through which bids are offered to this auction.
func (a *Auction) Bidpipe() *Bidpipe { return a.pipe }

// Run collects bids until the latency margin elapses, then closes the pipe
// and fires the winning bid's notifier. It returns the winner, or nil if the
// auction closed without bids. Cancelling ctx closes the pipe without
// selecting a winner.
func (a *Auction) Run(ctx context.Context) (*Bid, error) {
	timer := time.NewTimer(a.latencyMargin)
	defer timer.Stop()

	rule := new(FirstPrice)
loop:
	for {
		select {
		case <-ctx.Done():
			close(a.pipe.closed)
			return nil, ctx.Err()
		case <-timer.C:
			break loop
		case bid := <-a.bids:
			rule.Consider(bid)
		}
	}
	close(a.pipe.closed)

	// consider offers that raced the timer into the pipe
	for {
		select {
		case bid := <-a.bids:
			rule.Consider(bid)
		default:
			winner := rule.Winner()
			if winner != nil {
				close(winner.won)
			}
			return winner, nil
		}
	}
}
