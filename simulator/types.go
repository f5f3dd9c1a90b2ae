package simulator

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// SimulatePayload is the parameter object of eth_simulateV1.
type SimulatePayload struct {
	BlockStateCalls        []BlockStateCall `json:"blockStateCalls"`
	TraceTransfers         bool             `json:"traceTransfers"`
	Validation             bool             `json:"validation"`
	ReturnFullTransactions bool             `json:"returnFullTransactions"`
}

// BlockStateCall is one simulated block: a list of calls plus optional block
// and state overrides.
type BlockStateCall struct {
	BlockOverrides *BlockOverrides                    `json:"blockOverrides,omitempty"`
	StateOverrides map[common.Address]OverrideAccount `json:"stateOverrides,omitempty"`
	Calls          []TransactionArgs                  `json:"calls"`
}

// BlockOverrides adjusts the header fields of a simulated block.
type BlockOverrides struct {
	Number        *hexutil.Big    `json:"number,omitempty"`
	Time          *hexutil.Uint64 `json:"time,omitempty"`
	GasLimit      *hexutil.Uint64 `json:"gasLimit,omitempty"`
	FeeRecipient  *common.Address `json:"feeRecipient,omitempty"`
	BaseFeePerGas *hexutil.Big    `json:"baseFeePerGas,omitempty"`
}

// OverrideAccount adjusts the state of an account before simulation.
type OverrideAccount struct {
	Nonce   *hexutil.Uint64             `json:"nonce,omitempty"`
	Code    *hexutil.Bytes              `json:"code,omitempty"`
	Balance *hexutil.Big                `json:"balance,omitempty"`
	State   map[common.Hash]common.Hash `json:"state,omitempty"`
}

// TransactionArgs is the call form of a transaction submitted for simulation.
type TransactionArgs struct {
	From                 *common.Address `json:"from,omitempty"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	Data                 *hexutil.Bytes  `json:"data,omitempty"`
}

// newTransactionArgs converts a signed transaction into its call form,
// recovering the sender from the signature.
func newTransactionArgs(tx *types.Transaction) (TransactionArgs, error) {
	signer := types.LatestSignerForChainID(tx.ChainId())
	from, err := types.Sender(signer, tx)
	if err != nil {
		return TransactionArgs{}, fmt.Errorf("failed to recover sender of transaction %s: %w", tx.Hash(), err)
	}
	gas := hexutil.Uint64(tx.Gas())
	nonce := hexutil.Uint64(tx.Nonce())
	data := hexutil.Bytes(tx.Data())
	args := TransactionArgs{
		From:  &from,
		To:    tx.To(),
		Gas:   &gas,
		Value: (*hexutil.Big)(tx.Value()),
		Nonce: &nonce,
		Data:  &data,
	}
	switch tx.Type() {
	case types.DynamicFeeTxType, types.BlobTxType:
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	default:
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}
	return args, nil
}

// SimulatedBlock is one block entry of an eth_simulateV1 response.
type SimulatedBlock struct {
	Number        hexutil.Uint64     `json:"number"`
	Hash          common.Hash        `json:"hash"`
	GasUsed       hexutil.Uint64     `json:"gasUsed"`
	BaseFeePerGas *hexutil.Big       `json:"baseFeePerGas"`
	Transactions  []BlockTransaction `json:"transactions"`
	Calls         []SimCallResult    `json:"calls"`
}

// BlockTransaction is one transaction entry of a simulated block. Depending
// on the request flags the node returns either a bare hash or the full
// transaction object; only the full form carries the fields needed to price a
// bid, so Full is nil for hash-form entries.
type BlockTransaction struct {
	Full *RPCTransaction
}

func (t *BlockTransaction) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		t.Full = nil
		return nil
	}
	full := new(RPCTransaction)
	if err := json.Unmarshal(data, full); err != nil {
		return err
	}
	t.Full = full
	return nil
}

func (t BlockTransaction) MarshalJSON() ([]byte, error) {
	if t.Full == nil {
		return json.Marshal(common.Hash{})
	}
	return json.Marshal(t.Full)
}

// RPCTransaction is the subset of the transaction object the simulator reads.
// GasPrice is the effective per-gas price charged in the simulated block.
type RPCTransaction struct {
	Hash     common.Hash    `json:"hash"`
	From     common.Address `json:"from"`
	Gas      hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big   `json:"gasPrice"`
}

// SimCallResult is the per-call outcome within a simulated block.
type SimCallResult struct {
	ReturnData hexutil.Bytes  `json:"returnData"`
	GasUsed    hexutil.Uint64 `json:"gasUsed"`
	Status     hexutil.Uint64 `json:"status"`
	Error      *CallError     `json:"error,omitempty"`
}

// Succeeded reports whether the call executed without reverting.
func (c *SimCallResult) Succeeded() bool { return c.Status == 1 }

// CallError carries the node's failure description for one call.
type CallError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
