package orderpool

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/astriaorg/auctioneer/auction"
	"github.com/astriaorg/auctioneer/bundle"
	"github.com/astriaorg/auctioneer/simulator"
)

// simKey identifies one simulation within an auction: the bundle that was
// simulated and the timestamp under which it was stored when the auction
// started.
type simKey struct {
	uuid      uuid.UUID
	timestamp time.Time
}

// simResult is the completion of one simulation task. Either processed or err
// is set; a panicked simulation surfaces as err.
type simResult struct {
	key       simKey
	processed *simulator.ProcessedSimulation
	err       error
}

// winnerReport tells the supervisor which bundle won an auction so it can be
// evicted from storage.
type winnerReport struct {
	auctionID auction.ID
	key       simKey
}

// auctionRunner fans one auction's simulation results into its bidpipe and
// watches the returned notifiers for the winning bid. The runner does not
// terminate on its own; the supervisor cancels its context on auction change
// or shutdown.
type auctionRunner struct {
	pipe     *auction.Bidpipe
	results  chan simResult
	won      chan simKey
	notify   chan<- winnerReport
	notified bool
}

func newAuctionRunner(pipe *auction.Bidpipe, numSimulations int, notify chan<- winnerReport) *auctionRunner {
	return &auctionRunner{
		pipe: pipe,
		// buffered so simulation tasks never block on a busy runner
		results: make(chan simResult, numSimulations),
		won:     make(chan simKey, 1),
		notify:  notify,
	}
}

func (r *auctionRunner) run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("auction runner panicked", "auction_id", r.pipe.AuctionID, "panic", rec)
		}
	}()

	// notifier waits are cancelled as a group once a winner is known
	notifyCtx, cancelNotifiers := context.WithCancel(ctx)
	defer cancelNotifiers()

	for {
		// winner detection takes priority over simulation completions
		select {
		case key := <-r.won:
			r.reportWinner(ctx, key, cancelNotifiers)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return
		case key := <-r.won:
			r.reportWinner(ctx, key, cancelNotifiers)
		case res := <-r.results:
			r.handleResult(notifyCtx, res)
		}
	}
}

func (r *auctionRunner) reportWinner(ctx context.Context, key simKey, cancelNotifiers context.CancelFunc) {
	if r.notified {
		return
	}
	r.notified = true
	cancelNotifiers()
	select {
	case r.notify <- winnerReport{auctionID: r.pipe.AuctionID, key: key}:
	case <-ctx.Done():
		log.Warn("orderpool went away before the auction winner could be reported",
			"auction_id", r.pipe.AuctionID, "uuid", key.uuid)
	}
}

func (r *auctionRunner) handleResult(notifyCtx context.Context, res simResult) {
	if res.err != nil {
		simulationFailedMeter.Mark(1)
		log.Info("bundle simulation failed; dropping it for this auction",
			"auction_id", r.pipe.AuctionID, "uuid", res.key.uuid, "err", res.err)
		return
	}
	payload, err := res.processed.Payload()
	if err != nil {
		log.Error("failed to encode bid payload",
			"auction_id", r.pipe.AuctionID, "uuid", res.key.uuid, "err", err)
		return
	}
	notifier, err := r.pipe.Send(res.processed.TotalFee, payload)
	if err != nil {
		bidsAfterCloseMeter.Mark(1)
		log.Info("bid arrived after auction close",
			"auction_id", r.pipe.AuctionID, "uuid", res.key.uuid)
		return
	}
	bidsSentMeter.Mark(1)
	log.Debug("bid submitted to auction",
		"auction_id", r.pipe.AuctionID, "uuid", res.key.uuid, "total_fee", res.processed.TotalFee)

	if r.notified {
		// a winner is already chosen; further completions only drain
		return
	}
	key := res.key
	go func() {
		select {
		case <-notifier.Won():
			select {
			case r.won <- key:
			case <-notifyCtx.Done():
			}
		case <-notifyCtx.Done():
		}
	}()
}

// simulate runs one bundle's simulation and delivers the outcome to the
// runner. A panic inside the simulation is caught and reported like an error.
func (in *inner) simulate(ctx context.Context, key simKey, b *bundle.Bundle, results chan<- simResult) {
	defer func() {
		if rec := recover(); rec != nil {
			simulationPanicMeter.Mark(1)
			select {
			case results <- simResult{key: key, err: fmt.Errorf("simulation panicked: %v", rec)}:
			case <-ctx.Done():
			}
		}
	}()

	if in.sem != nil {
		if err := in.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer in.sem.Release(1)
	}

	start := time.Now()
	processed, err := simulator.SimulateAndEstimateBid(ctx, in.client, b)
	simulationTimer.UpdateSince(start)

	select {
	case results <- simResult{key: key, processed: processed, err: err}:
	case <-ctx.Done():
	}
}
