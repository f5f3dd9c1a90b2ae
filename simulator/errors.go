package simulator

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoSimulatedBlocks is returned when the node's response carries no
// simulated block at all.
var ErrNoSimulatedBlocks = errors.New("eth_simulateV1 returned no simulated blocks")

// ErrTooManySimulatedBlocks is returned when the node simulated more blocks
// than the single block requested.
type ErrTooManySimulatedBlocks struct {
	Actual int
}

func NewErrTooManySimulatedBlocks(actual int) *ErrTooManySimulatedBlocks {
	return &ErrTooManySimulatedBlocks{Actual: actual}
}

func (e *ErrTooManySimulatedBlocks) Error() string {
	return fmt.Sprintf("expected exactly one simulated block, got %d", e.Actual)
}

// ErrNotFullTransactions is returned when a transaction in the simulated
// block came back as a bare hash instead of the full object.
type ErrNotFullTransactions struct {
	// Index of the offending transaction in the simulated block
	Index int
}

func NewErrNotFullTransactions(index int) *ErrNotFullTransactions {
	return &ErrNotFullTransactions{Index: index}
}

func (e *ErrNotFullTransactions) Error() string {
	return fmt.Sprintf("transaction at index %d of the simulated block is not in full form", e.Index)
}

// ErrResultCountMismatch is returned when the number of call results differs
// from the number of transactions being priced.
type ErrResultCountMismatch struct {
	Transactions int
	Results      int
}

func NewErrResultCountMismatch(transactions, results int) *ErrResultCountMismatch {
	return &ErrResultCountMismatch{Transactions: transactions, Results: results}
}

func (e *ErrResultCountMismatch) Error() string {
	return fmt.Sprintf("number of simulation results does not match transactions: txs=%d, results=%d", e.Transactions, e.Results)
}

// ErrBundleTxReverted is returned when a transaction reverted that is on
// neither of the bundle's allow-lists.
type ErrBundleTxReverted struct {
	BundleHash common.Hash
	TxHash     common.Hash
	// Index of the tx in the bundle
	TxIndex int
	Reason  string
}

func NewErrBundleTxReverted(bundleHash, txHash common.Hash, txIndex int, reason string) *ErrBundleTxReverted {
	return &ErrBundleTxReverted{
		BundleHash: bundleHash,
		TxHash:     txHash,
		TxIndex:    txIndex,
		Reason:     reason,
	}
}

func (e *ErrBundleTxReverted) Error() string {
	return fmt.Sprintf("tx from simulated bundle reverted tx_hash=%s, bundle_hash=%s, tx_bundle_index=%d, reason=%q", e.TxHash.Hex(), e.BundleHash.Hex(), e.TxIndex, e.Reason)
}
