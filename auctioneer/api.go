package auctioneer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/astriaorg/auctioneer/bundle"
	"github.com/astriaorg/auctioneer/orderpool"
)

// Actions reported by the bundle API.
const (
	actionOrderPlaced       = "order placed"
	actionOrderReplaced     = "order replaced"
	actionOrderNotReplaced  = "order not replaced"
	actionOrderCancelled    = "order cancelled"
	actionOrderNotFound     = "order not found"
	actionOrderNotCancelled = "order not cancelled"
)

var errTooManySubmissions = errors.New("submission rate exceeded")

// SendBundleArgs is the parameter object of eth_sendBundle.
type SendBundleArgs struct {
	Txs               []hexutil.Bytes `json:"txs"`
	ReplacementUUID   string          `json:"replacementUuid,omitempty"`
	RevertingTxHashes []common.Hash   `json:"revertingTxHashes,omitempty"`
	DroppingTxHashes  []common.Hash   `json:"droppingTxHashes,omitempty"`
}

// CancelBundleArgs is the parameter object of eth_cancelBundle.
type CancelBundleArgs struct {
	ReplacementUUID string `json:"replacementUuid"`
}

// BundleResponse reports how a submission changed the orderpool.
type BundleResponse struct {
	Action           string       `json:"action"`
	UUID             uuid.UUID    `json:"uuid"`
	Timestamp        time.Time    `json:"timestamp"`
	BundleHash       *common.Hash `json:"bundleHash,omitempty"`
	StoredTimestamp  *time.Time   `json:"storedTimestamp,omitempty"`
	StoredBundleHash *common.Hash `json:"storedBundleHash,omitempty"`
}

// BundleAPI is the JSON-RPC surface through which searchers submit and cancel
// bundles. Registered under the "eth" namespace it serves eth_sendBundle and
// eth_cancelBundle.
type BundleAPI struct {
	pool    *orderpool.Orderpool
	limiter *rate.Limiter
}

func NewBundleAPI(pool *orderpool.Orderpool, limiter *rate.Limiter) *BundleAPI {
	return &BundleAPI{pool: pool, limiter: limiter}
}

// SendBundle inserts a bundle into the orderpool, or replaces the bundle
// stored under the provided replacement UUID. A submission without a
// replacement UUID mints a fresh one. The ingestion timestamp is taken at
// receipt and decides replacement conflicts.
func (api *BundleAPI) SendBundle(ctx context.Context, args SendBundleArgs) (*BundleResponse, error) {
	if !api.limiter.Allow() {
		return nil, errTooManySubmissions
	}
	id := uuid.New()
	if args.ReplacementUUID != "" {
		parsed, err := uuid.Parse(args.ReplacementUUID)
		if err != nil {
			return nil, fmt.Errorf("invalid replacementUuid: %w", err)
		}
		id = parsed
	}
	raw := make([][]byte, len(args.Txs))
	for i, tx := range args.Txs {
		raw[i] = tx
	}
	b, err := bundle.Decode(id, time.Now(), raw, args.RevertingTxHashes, args.DroppingTxHashes)
	if err != nil {
		return nil, err
	}
	rsp, err := api.pool.Sender().Send(ctx, orderpool.NewOrder{Bundle: b})
	if err != nil {
		return nil, err
	}
	or, ok := rsp.(orderpool.OrderResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected orderpool response of type %T", rsp)
	}
	return newOrderBundleResponse(b, or), nil
}

// CancelBundle removes the bundle stored under the replacement UUID, provided
// no newer replacement raced the cancellation.
func (api *BundleAPI) CancelBundle(ctx context.Context, args CancelBundleArgs) (*BundleResponse, error) {
	if !api.limiter.Allow() {
		return nil, errTooManySubmissions
	}
	id, err := uuid.Parse(args.ReplacementUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid replacementUuid: %w", err)
	}
	cancellation := orderpool.Cancellation{UUID: id, Timestamp: time.Now()}
	rsp, err := api.pool.Sender().Send(ctx, orderpool.CancelOrder{Cancellation: cancellation})
	if err != nil {
		return nil, err
	}
	cr, ok := rsp.(orderpool.CancellationResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected orderpool response of type %T", rsp)
	}
	return newCancellationBundleResponse(cr), nil
}

func newOrderBundleResponse(b *bundle.Bundle, or orderpool.OrderResponse) *BundleResponse {
	h := b.Hash()
	rsp := &BundleResponse{
		UUID:       or.UUID,
		Timestamp:  b.Timestamp(),
		BundleHash: &h,
	}
	switch or.Result.Action {
	case orderpool.Inserted:
		rsp.Action = actionOrderPlaced
	case orderpool.Replaced:
		rsp.Action = actionOrderReplaced
		ts := or.Result.Prior.Timestamp()
		ph := or.Result.Prior.Hash()
		rsp.StoredTimestamp = &ts
		rsp.StoredBundleHash = &ph
	case orderpool.NotReplaced:
		rsp.Action = actionOrderNotReplaced
		ts := or.Result.Prior.Timestamp()
		ph := or.Result.Prior.Hash()
		rsp.StoredTimestamp = &ts
		rsp.StoredBundleHash = &ph
	}
	return rsp
}

func newCancellationBundleResponse(cr orderpool.CancellationResponse) *BundleResponse {
	rsp := &BundleResponse{
		UUID:      cr.UUID,
		Timestamp: cr.Timestamp,
	}
	switch cr.Result.Action {
	case orderpool.Removed:
		rsp.Action = actionOrderCancelled
	case orderpool.NotFound:
		rsp.Action = actionOrderNotFound
		return rsp
	case orderpool.Aborted:
		rsp.Action = actionOrderNotCancelled
	}
	ts := cr.Result.Bundle.Timestamp()
	h := cr.Result.Bundle.Hash()
	rsp.StoredTimestamp = &ts
	rsp.StoredBundleHash = &h
	return rsp
}
