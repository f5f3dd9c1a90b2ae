// Package simulator speculatively executes bundles against the tip of the
// rollup chain and prices their bids.
//
// One bundle maps to one eth_simulateV1 call carrying a single block-state
// call. The response is validated, the bundle's drop and revert allow-lists
// are applied per transaction, and the effective fees of the retained
// transactions are summed into the bid.
package simulator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/astriaorg/auctioneer/bundle"
)

// MaxBidFee is the ceiling of a bid's total fee, 2^128 - 1. Fee accumulation
// saturates here instead of wrapping.
var MaxBidFee = new(uint256.Int).SubUint64(
	new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1,
)

// ProcessedSimulation is the outcome of simulating one bundle.
type ProcessedSimulation struct {
	// TotalFee is the summed effective fee over the retained transactions,
	// saturating at MaxBidFee.
	TotalFee *uint256.Int
	// TransactionsConsidered are the retained transactions in simulated
	// order; they form the bid payload.
	TransactionsConsidered types.Transactions
	// Bundle is the bundle the simulation was run for.
	Bundle *bundle.Bundle
}

// Payload re-encodes the retained transactions for submission on a bidpipe.
func (p *ProcessedSimulation) Payload() ([][]byte, error) {
	raw := make([][]byte, len(p.TransactionsConsidered))
	for i, tx := range p.TransactionsConsidered {
		enc, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction %s: %w", tx.Hash(), err)
		}
		raw[i] = enc
	}
	return raw, nil
}

// SimulateAndEstimateBid simulates the bundle on top of the pending block and
// prices the resulting bid.
//
// A failed transaction on the bundle's dropping list is skipped without
// charge; one on the reverting list is tolerated and excluded from the bid; a
// failure on neither list rejects the whole bundle with ErrBundleTxReverted.
// All errors are terminal for this bundle only.
func SimulateAndEstimateBid(ctx context.Context, client Client, b *bundle.Bundle) (*ProcessedSimulation, error) {
	txs := b.Txs()
	calls := make([]TransactionArgs, len(txs))
	for i, tx := range txs {
		args, err := newTransactionArgs(tx)
		if err != nil {
			return nil, err
		}
		calls[i] = args
	}
	payload := &SimulatePayload{
		BlockStateCalls:        []BlockStateCall{{Calls: calls}},
		TraceTransfers:         true,
		Validation:             true,
		ReturnFullTransactions: true,
	}

	blocks, err := client.SimulateV1(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("eth_simulateV1 call failed: %w", err)
	}
	switch {
	case len(blocks) == 0:
		return nil, ErrNoSimulatedBlocks
	case len(blocks) > 1:
		return nil, NewErrTooManySimulatedBlocks(len(blocks))
	}
	block := blocks[0]
	if len(block.Transactions) != len(block.Calls) {
		return nil, NewErrResultCountMismatch(len(block.Transactions), len(block.Calls))
	}
	if len(block.Calls) != len(txs) {
		return nil, NewErrResultCountMismatch(len(txs), len(block.Calls))
	}

	totalFee := new(uint256.Int)
	considered := make(types.Transactions, 0, len(txs))
	for i, res := range block.Calls {
		returned := block.Transactions[i]
		if returned.Full == nil {
			return nil, NewErrNotFullTransactions(i)
		}
		if res.Succeeded() {
			addEffectiveFee(totalFee, uint64(res.GasUsed), returned.Full.GasPrice)
			considered = append(considered, txs[i])
			continue
		}
		txHash := returned.Full.Hash
		switch {
		case b.IsDropping(txHash):
			// dropped from the bid without failing the bundle
		case b.IsReverting(txHash):
			// tolerable revert, excluded from the bid
		default:
			reason := ""
			if res.Error != nil {
				reason = res.Error.Message
			}
			return nil, NewErrBundleTxReverted(b.Hash(), txHash, i, reason)
		}
	}
	return &ProcessedSimulation{
		TotalFee:               totalFee,
		TransactionsConsidered: considered,
		Bundle:                 b,
	}, nil
}

// addEffectiveFee accumulates gasUsed times effectiveGasPrice into total,
// saturating at MaxBidFee.
func addEffectiveFee(total *uint256.Int, gasUsed uint64, effectiveGasPrice *hexutil.Big) {
	if effectiveGasPrice == nil {
		return
	}
	price, overflow := uint256.FromBig((*big.Int)(effectiveGasPrice))
	if overflow {
		total.Set(MaxBidFee)
		return
	}
	fee, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(gasUsed))
	if overflow {
		total.Set(MaxBidFee)
		return
	}
	if _, overflow := total.AddOverflow(total, fee); overflow || total.Gt(MaxBidFee) {
		total.Set(MaxBidFee)
	}
}
