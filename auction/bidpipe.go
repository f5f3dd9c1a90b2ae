package auction

import (
	"encoding/base64"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ID uniquely identifies one top-of-block auction. It is minted by the
// sequencer for each proposed block.
type ID [32]byte

func (id ID) String() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// ErrAuctionClosed is returned by Bidpipe.Send once the auction no longer
// accepts bids.
var ErrAuctionClosed = errors.New("auction is no longer accepting bids")

// Bid is one (fee, payload) offer placed into an auction. The payload is the
// ordered sequence of 2718-encoded transactions retained after filtering.
type Bid struct {
	Fee     *uint256.Int
	Payload [][]byte

	won chan struct{}
}

// Notifier resolves when its bid is selected as the auction winner. It never
// resolves otherwise; callers abandon the wait together with their auction
// context.
type Notifier struct {
	won <-chan struct{}
}

// Won is closed if and only if the notifier's bid won its auction.
func (n *Notifier) Won() <-chan struct{} { return n.won }

// Bidpipe is the handle through which the orderpool offers bids into one
// running auction.
type Bidpipe struct {
	AuctionID             ID
	OptimisticBlockHash   common.Hash
	OptimisticBlockNumber uint64

	bids   chan *Bid
	closed chan struct{}
}

// Send offers a bid without blocking. The returned notifier resolves if this
// bid ends up winning the auction. A pipe that has fallen too far behind to
// buffer the bid reports ErrAuctionClosed like a closed one.
func (p *Bidpipe) Send(fee *uint256.Int, payload [][]byte) (*Notifier, error) {
	select {
	case <-p.closed:
		return nil, ErrAuctionClosed
	default:
	}
	bid := &Bid{Fee: fee, Payload: payload, won: make(chan struct{})}
	select {
	case p.bids <- bid:
		return &Notifier{won: bid.won}, nil
	case <-p.closed:
		return nil, ErrAuctionClosed
	default:
		return nil, ErrAuctionClosed
	}
}
