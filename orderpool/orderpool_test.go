package orderpool

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/astriaorg/auctioneer/auction"
	"github.com/astriaorg/auctioneer/internal/watch"
	"github.com/astriaorg/auctioneer/simulator"
)

// stubClient answers every simulation with one successful call per submitted
// transaction, charging gasPrice per unit over 21000 gas. An optional gate
// holds the response until released; started signals each simulation entry.
type stubClient struct {
	gasPrice *big.Int
	gate     chan struct{}
	started  chan struct{}
}

func (c *stubClient) SimulateV1(ctx context.Context, payload *simulator.SimulatePayload) ([]*simulator.SimulatedBlock, error) {
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	calls := payload.BlockStateCalls[0].Calls
	txs := make([]simulator.BlockTransaction, len(calls))
	results := make([]simulator.SimCallResult, len(calls))
	for i := range calls {
		txs[i] = simulator.BlockTransaction{Full: &simulator.RPCTransaction{
			GasPrice: (*hexutil.Big)(c.gasPrice),
		}}
		results[i] = simulator.SimCallResult{GasUsed: 21_000, Status: 1}
	}
	return []*simulator.SimulatedBlock{{Transactions: txs, Calls: results}}, nil
}

func (c *stubClient) Close() {}

func spawnTestPool(t *testing.T, client simulator.Client) (*Orderpool, *watch.Source[*auction.Bidpipe]) {
	t.Helper()
	src, rcv := watch.New[*auction.Bidpipe](nil)
	pool := Spawn(context.Background(), rcv, client, Config{})
	t.Cleanup(func() {
		pool.Cancel()
		pool.Wait()
	})
	return pool, src
}

// probeStored reports whether a bundle is stored under id, using a
// cancellation with the zero timestamp: it can never delete anything, and its
// outcome distinguishes a stored bundle from an absent one.
func probeStored(t *testing.T, pool *Orderpool, id uuid.UUID) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rsp, err := pool.Sender().Send(ctx, CancelOrder{Cancellation: Cancellation{UUID: id}})
	require.NoError(t, err)
	cr, ok := rsp.(CancellationResponse)
	require.True(t, ok)
	switch cr.Result.Action {
	case Aborted:
		return true
	case NotFound:
		return false
	default:
		t.Fatalf("probe cancellation mutated the store: %s", cr.Result.Action)
		return false
	}
}

func sendOrder(t *testing.T, pool *Orderpool, order Order) Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rsp, err := pool.Sender().Send(ctx, order)
	require.NoError(t, err)
	return rsp
}

func TestInsertReplaceAndCancel(t *testing.T) {
	pool, _ := spawnTestPool(t, &stubClient{gasPrice: big.NewInt(1)})

	id := uuid.New()
	t0 := time.Now()
	first := newTestBundle(t, id, t0, 0)

	rsp := sendOrder(t, pool, NewOrder{Bundle: first})
	or, ok := rsp.(OrderResponse)
	require.True(t, ok)
	require.Equal(t, id, or.UUID)
	require.Equal(t, Inserted, or.Result.Action)

	second := newTestBundle(t, id, t0.Add(time.Millisecond), 1)
	or = sendOrder(t, pool, NewOrder{Bundle: second}).(OrderResponse)
	require.Equal(t, Replaced, or.Result.Action)
	require.Equal(t, first.Hash(), or.Result.Prior.Hash())

	stale := newTestBundle(t, id, t0, 2)
	or = sendOrder(t, pool, NewOrder{Bundle: stale}).(OrderResponse)
	require.Equal(t, NotReplaced, or.Result.Action)

	cr := sendOrder(t, pool, CancelOrder{Cancellation: Cancellation{UUID: id, Timestamp: t0.Add(time.Second)}}).(CancellationResponse)
	require.Equal(t, Removed, cr.Result.Action)
	require.Equal(t, second.Hash(), cr.Result.Bundle.Hash())

	require.False(t, probeStored(t, pool, id))
}

func TestWinningBundleIsEvicted(t *testing.T) {
	pool, auctions := spawnTestPool(t, &stubClient{gasPrice: big.NewInt(1)})

	b := newTestBundle(t, uuid.New(), time.Now(), 0)
	or := sendOrder(t, pool, NewOrder{Bundle: b}).(OrderResponse)
	require.Equal(t, Inserted, or.Result.Action)

	a := auction.New(auction.ID{1}, common.HexToHash("0xab"), 1, 200*time.Millisecond)
	auctions.Send(a.Bidpipe())

	winner, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, winner)
	require.Equal(t, uint256.NewInt(21_000), winner.Fee)
	require.Len(t, winner.Payload, 1)

	// the winner notification propagates asynchronously
	require.Eventually(t, func() bool {
		return !probeStored(t, pool, b.UUID())
	}, time.Second, 10*time.Millisecond)
}

func TestWinnerEvictionSparesNewerReplacement(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	pool, auctions := spawnTestPool(t, &stubClient{gasPrice: big.NewInt(1), gate: gate, started: started})

	id := uuid.New()
	t0 := time.Now()
	b := newTestBundle(t, id, t0, 0)
	sendOrder(t, pool, NewOrder{Bundle: b})

	a := auction.New(auction.ID{2}, common.Hash{}, 2, 300*time.Millisecond)
	auctions.Send(a.Bidpipe())
	<-started

	// replace the bundle while its simulation is still held at the gate
	replacement := newTestBundle(t, id, t0.Add(time.Millisecond), 1)
	or := sendOrder(t, pool, NewOrder{Bundle: replacement}).(OrderResponse)
	require.Equal(t, Replaced, or.Result.Action)

	close(gate)
	winner, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, winner)

	// the old snapshot won, but eviction must not take the replacement down
	time.Sleep(100 * time.Millisecond)
	require.True(t, probeStored(t, pool, id))
}

func TestCancellationDuringSimulation(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	pool, auctions := spawnTestPool(t, &stubClient{gasPrice: big.NewInt(1), gate: gate, started: started})

	id := uuid.New()
	t0 := time.Now()
	b := newTestBundle(t, id, t0, 0)
	sendOrder(t, pool, NewOrder{Bundle: b})

	a := auction.New(auction.ID{3}, common.Hash{}, 3, 300*time.Millisecond)
	auctions.Send(a.Bidpipe())
	<-started

	// cancel while the simulation is held at the gate
	cr := sendOrder(t, pool, CancelOrder{Cancellation: Cancellation{UUID: id, Timestamp: t0.Add(time.Millisecond)}}).(CancellationResponse)
	require.Equal(t, Removed, cr.Result.Action)

	// the in-flight simulation still feeds the running auction
	close(gate)
	winner, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, winner)
	require.Equal(t, uint256.NewInt(21_000), winner.Fee)

	require.False(t, probeStored(t, pool, id))
}

func TestAuctionChangeAbortsPendingSimulations(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	pool, auctions := spawnTestPool(t, &stubClient{gasPrice: big.NewInt(1), gate: gate, started: started})

	sendOrder(t, pool, NewOrder{Bundle: newTestBundle(t, uuid.New(), time.Now(), 0)})

	first := auction.New(auction.ID{4}, common.Hash{}, 4, 200*time.Millisecond)
	auctions.Send(first.Bidpipe())
	<-started

	// withdrawing the auction cancels its held simulation
	auctions.Send(nil)
	close(gate)

	winner, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, winner)
}

func TestClosedSenderShutsDownPool(t *testing.T) {
	src, rcv := watch.New[*auction.Bidpipe](nil)
	defer src.Close()
	pool := Spawn(context.Background(), rcv, &stubClient{gasPrice: big.NewInt(1)}, Config{})

	pool.Sender().Close()
	err := pool.Wait()
	require.ErrorContains(t, err, "all senders of orderpool requests are dead")
}

func TestClosedAuctionWatchShutsDownPool(t *testing.T) {
	src, rcv := watch.New[*auction.Bidpipe](nil)
	pool := Spawn(context.Background(), rcv, &stubClient{gasPrice: big.NewInt(1)}, Config{})

	src.Close()
	err := pool.Wait()
	require.ErrorContains(t, err, "all senders of auction changes are dead")
}

func TestCancelledPoolResolvesCleanly(t *testing.T) {
	src, rcv := watch.New[*auction.Bidpipe](nil)
	defer src.Close()
	pool := Spawn(context.Background(), rcv, &stubClient{gasPrice: big.NewInt(1)}, Config{})

	sendOrder(t, pool, NewOrder{Bundle: newTestBundle(t, uuid.New(), time.Now(), 0)})

	pool.Cancel()
	require.NoError(t, pool.Wait())

	select {
	case <-pool.Done():
	default:
		t.Fatal("done channel not closed after shutdown")
	}
}
