// Package bundle defines the immutable unit of work flowing through the
// auctioneer: a collection of transactions a user wants executed in order at
// the top of a rollup block.
package bundle

import (
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Bundle is an ordered collection of transactions submitted for inclusion at
// the top of a rollup block. A bundle is immutable once constructed; the
// orderpool replaces rather than mutates.
type Bundle struct {
	id        uuid.UUID
	timestamp time.Time
	txs       types.Transactions
	reverting mapset.Set[common.Hash]
	dropping  mapset.Set[common.Hash]
	hash      common.Hash
}

// New constructs a bundle from decoded transactions. The timestamp is the
// wall-clock time of ingestion and drives conflict resolution in the
// orderpool. Hashes in reverting may revert without failing the bundle;
// hashes in dropping may be silently omitted from the bid.
func New(id uuid.UUID, timestamp time.Time, txs types.Transactions, reverting, dropping []common.Hash) (*Bundle, error) {
	if len(txs) == 0 {
		return nil, errors.New("bundle contains no transactions")
	}
	return &Bundle{
		id:        id,
		timestamp: timestamp,
		txs:       txs,
		reverting: mapset.NewThreadUnsafeSet(reverting...),
		dropping:  mapset.NewThreadUnsafeSet(dropping...),
		hash:      digest(txs),
	}, nil
}

// Decode constructs a bundle from 2718-encoded transaction envelopes.
func Decode(id uuid.UUID, timestamp time.Time, rawTxs [][]byte, reverting, dropping []common.Hash) (*Bundle, error) {
	txs := make(types.Transactions, len(rawTxs))
	for i, raw := range rawTxs {
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("invalid transaction at index %d: %w", i, err)
		}
		txs[i] = tx
	}
	return New(id, timestamp, txs, reverting, dropping)
}

// UUID is the external identifier of the bundle. It is stable across
// replacements: a newer bundle submitted under the same UUID overwrites this
// one.
func (b *Bundle) UUID() uuid.UUID { return b.id }

// Timestamp is the wall-clock time the bundle was ingested.
func (b *Bundle) Timestamp() time.Time { return b.timestamp }

// Txs returns the bundle's transactions in submission order. Callers must not
// modify the returned slice.
func (b *Bundle) Txs() types.Transactions { return b.txs }

// Hash is the content digest of the bundle: the keccak of the concatenated
// transaction hashes. It identifies bundle contents in logs and indices.
func (b *Bundle) Hash() common.Hash { return b.hash }

// IsReverting reports whether the transaction with hash h is allowed to
// revert without failing the bundle.
func (b *Bundle) IsReverting(h common.Hash) bool { return b.reverting.Contains(h) }

// IsDropping reports whether the transaction with hash h may be silently
// dropped from the bundle.
func (b *Bundle) IsDropping(h common.Hash) bool { return b.dropping.Contains(h) }

// RawTxs re-encodes the bundle's transactions as 2718 envelopes.
func (b *Bundle) RawTxs() ([][]byte, error) {
	raw := make([][]byte, len(b.txs))
	for i, tx := range b.txs {
		enc, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction %s: %w", tx.Hash(), err)
		}
		raw[i] = enc
	}
	return raw, nil
}

func digest(txs types.Transactions) common.Hash {
	data := make([]byte, 0, len(txs)*common.HashLength)
	for _, tx := range txs {
		data = append(data, tx.Hash().Bytes()...)
	}
	return crypto.Keccak256Hash(data)
}
