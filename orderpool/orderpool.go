// Package orderpool receives and executes order requests.
//
// The orderpool is a long-lived supervisor that accepts two kinds of inputs:
// order requests (new bundles, replacements, cancellations) and a watch of
// the currently active auction. On a new auction it snapshots its bundle
// store, simulates every stored bundle against the tip of the rollup chain,
// and forwards the resulting bids into the auction's bidpipe. When the
// downstream auction picks a winner, the winning bundle is evicted from
// storage.
package orderpool

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/astriaorg/auctioneer/auction"
	"github.com/astriaorg/auctioneer/bundle"
	"github.com/astriaorg/auctioneer/internal/watch"
	"github.com/astriaorg/auctioneer/simulator"
)

// DefaultRequestQueueSize bounds the request channel when the config leaves
// it unset.
const DefaultRequestQueueSize = 64

// Config holds the orderpool's runtime knobs.
type Config struct {
	// RequestQueueSize bounds the request channel; senders block once it is
	// full.
	RequestQueueSize int
	// MaxInflightSimulations caps concurrent simulate RPCs across the live
	// auction; zero means no cap.
	MaxInflightSimulations int
}

// Orderpool is the handle to a running orderpool supervisor.
type Orderpool struct {
	cancel context.CancelFunc
	sender *Sender
	done   chan struct{}
	err    error
}

// Spawn starts the orderpool supervisor.
//
// The supervisor exclusively owns the bundle store. It multiplexes auction
// changes from activeAuction, order requests arriving through the handle's
// Sender, and winner reports from auction runners, until its context is
// cancelled or an upstream channel dies.
func Spawn(ctx context.Context, activeAuction *watch.Receiver[*auction.Bidpipe], client simulator.Client, cfg Config) *Orderpool {
	ctx, cancel := context.WithCancel(ctx)

	queueSize := cfg.RequestQueueSize
	if queueSize <= 0 {
		queueSize = DefaultRequestQueueSize
	}
	sender, requests := newRequestChannel(queueSize)

	var sem *semaphore.Weighted
	if cfg.MaxInflightSimulations > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxInflightSimulations))
	}

	pool := &Orderpool{
		cancel: cancel,
		sender: sender,
		done:   make(chan struct{}),
	}
	in := &inner{
		activeAuction: activeAuction,
		client:        client,
		requests:      requests,
		store:         NewStore(),
		winners:       make(chan winnerReport, 8),
		sem:           sem,
	}
	go func() {
		defer close(pool.done)
		defer cancel()
		pool.err = in.run(ctx)
	}()
	return pool
}

// Cancel requests shutdown. In-flight simulations are abandoned and pending
// requesters observe closed reply channels.
func (p *Orderpool) Cancel() { p.cancel() }

// Sender returns a producer handle for submitting orders.
func (p *Orderpool) Sender() *Sender { return p.sender }

// Done is closed once the supervisor has exited.
func (p *Orderpool) Done() <-chan struct{} { return p.done }

// Wait blocks until the supervisor has exited and reports why. A cancelled
// orderpool resolves to nil; dead upstream channels and panics resolve to an
// error.
func (p *Orderpool) Wait() error {
	<-p.done
	return p.err
}

type inner struct {
	activeAuction *watch.Receiver[*auction.Bidpipe]
	client        simulator.Client
	requests      chan request
	store         *Store
	winners       chan winnerReport
	sem           *semaphore.Weighted
	runner        *runnerHandle
}

// runnerHandle is the supervisor's grip on the live auction runner.
type runnerHandle struct {
	pipe   *auction.Bidpipe
	cancel context.CancelFunc
}

func (in *inner) run(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("orderpool panicked: %v", rec)
		}
	}()
	defer in.shutdown()

	for {
		// auction changes take priority over requests and winner reports
		select {
		case _, ok := <-in.activeAuction.Changes():
			if err := in.handleAuctionChange(ctx, ok); err != nil {
				return err
			}
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-in.activeAuction.Changes():
			if err := in.handleAuctionChange(ctx, ok); err != nil {
				return err
			}
		case req, ok := <-in.requests:
			if !ok {
				return errors.New("all senders of orderpool requests are dead; the orderpool can no longer receive requests; exiting")
			}
			in.handleRequest(req)
		case w := <-in.winners:
			in.handleWinner(w)
		}
	}
}

// shutdown aborts the live runner and fails pending requesters by closing
// their reply channels.
func (in *inner) shutdown() {
	in.abortRunner()
	for {
		select {
		case req, ok := <-in.requests:
			if !ok {
				return
			}
			close(req.reply)
		default:
			return
		}
	}
}

func (in *inner) handleAuctionChange(ctx context.Context, ok bool) error {
	if !ok {
		return errors.New("all senders of auction changes are dead; the orderpool can no longer receive notifications of new auctions; exiting")
	}
	in.abortRunner()
	pipe := in.activeAuction.Latest()
	if pipe == nil {
		return nil
	}
	in.runner = in.startSimulationsForAuction(ctx, pipe)
	return nil
}

// abortRunner tears down the previous auction's runner: its simulations and
// notifier waits are cancelled and any still-outstanding results discarded.
func (in *inner) abortRunner() {
	if in.runner == nil {
		return
	}
	log.Debug("aborting auction runner", "auction_id", in.runner.pipe.AuctionID)
	in.runner.cancel()
	in.runner = nil
}

// startSimulationsForAuction snapshots the store and spawns one simulation
// task per stored bundle, all feeding the new auction's runner. Bundles
// inserted after this snapshot are not retroactively simulated.
func (in *inner) startSimulationsForAuction(ctx context.Context, pipe *auction.Bidpipe) *runnerHandle {
	runnerCtx, cancel := context.WithCancel(ctx)

	bundles := in.store.Snapshot()
	runner := newAuctionRunner(pipe, len(bundles), in.winners)
	for _, b := range bundles {
		b := b
		key := simKey{uuid: b.UUID(), timestamp: b.Timestamp()}
		go in.simulate(runnerCtx, key, b, runner.results)
	}
	go runner.run(runnerCtx)

	auctionsStartedCounter.Inc(1)
	log.Info("started simulations for auction",
		"auction_id", pipe.AuctionID,
		"optimistic_block_hash", pipe.OptimisticBlockHash,
		"optimistic_block_number", pipe.OptimisticBlockNumber,
		"bundles", len(bundles))
	return &runnerHandle{pipe: pipe, cancel: cancel}
}

func (in *inner) handleRequest(req request) {
	var rsp Response
	switch order := req.order.(type) {
	case NewOrder:
		rsp = in.processNewOrder(order.Bundle)
	case CancelOrder:
		rsp = in.processCancellation(order.Cancellation)
	default:
		log.Error("received order of unknown type", "type", fmt.Sprintf("%T", req.order))
		close(req.reply)
		return
	}
	select {
	case req.reply <- rsp:
	default:
		log.Warn("requester went away before the orderpool could reply")
	}
}

func (in *inner) processNewOrder(b *bundle.Bundle) Response {
	res := in.store.InsertOrReplace(b)
	switch res.Action {
	case Inserted:
		bundlesInsertedCounter.Inc(1)
		log.Info("bundle inserted into orderpool",
			"uuid", b.UUID(), "bundle_hash", b.Hash(), "timestamp", b.Timestamp())
	case Replaced:
		bundlesReplacedCounter.Inc(1)
		log.Info("bundle replaced in orderpool",
			"uuid", b.UUID(), "old_bundle_hash", res.Prior.Hash(), "new_bundle_hash", b.Hash())
	case NotReplaced:
		bundlesRejectedCounter.Inc(1)
		log.Info("bundle not replaced; stored bundle is not older",
			"uuid", b.UUID(), "stored_timestamp", res.Prior.Timestamp(), "request_timestamp", b.Timestamp())
	}
	return OrderResponse{UUID: b.UUID(), Result: res}
}

func (in *inner) processCancellation(c Cancellation) Response {
	res := in.store.Remove(c.UUID, c.Timestamp)
	switch res.Action {
	case Removed:
		bundlesCancelledCounter.Inc(1)
		log.Info("bundle cancelled", "uuid", c.UUID, "bundle_hash", res.Bundle.Hash())
	case NotFound:
		log.Info("cancellation for unknown bundle", "uuid", c.UUID)
	case Aborted:
		log.Info("cancellation aborted; stored bundle is not older",
			"uuid", c.UUID, "stored_timestamp", res.Bundle.Timestamp(), "request_timestamp", c.Timestamp)
	}
	return CancellationResponse{UUID: c.UUID, Timestamp: c.Timestamp, Result: res}
}

// handleWinner evicts the auction winner from storage. A newer bundle that
// replaced the winner after its simulation started survives.
func (in *inner) handleWinner(w winnerReport) {
	auctionsWonCounter.Inc(1)
	res := in.store.Evict(w.key.uuid, w.key.timestamp)
	switch res.Action {
	case Removed:
		bundlesEvictedCounter.Inc(1)
		log.Info("winning bundle evicted from orderpool",
			"auction_id", w.auctionID, "uuid", w.key.uuid, "bundle_hash", res.Bundle.Hash())
	case NotFound:
		log.Info("winning bundle no longer in orderpool",
			"auction_id", w.auctionID, "uuid", w.key.uuid)
	case Aborted:
		log.Info("winning bundle was replaced after simulation started; keeping the newer bundle",
			"auction_id", w.auctionID, "uuid", w.key.uuid, "stored_timestamp", res.Bundle.Timestamp())
	}
}
