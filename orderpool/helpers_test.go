package orderpool

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/astriaorg/auctioneer/bundle"
)

var testChainID = big.NewInt(1)

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func newTestTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, gasPrice *big.Int) *types.Transaction {
	t.Helper()
	to := common.HexToAddress("0x000000000000000000000000000000000000dead")
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(testChainID), &types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      21_000,
		To:       &to,
		Value:    big.NewInt(0),
	})
	require.NoError(t, err)
	return tx
}

func newTestBundle(t *testing.T, id uuid.UUID, ts time.Time, nonce uint64) *bundle.Bundle {
	t.Helper()
	key := newTestKey(t)
	b, err := bundle.New(id, ts, types.Transactions{newTestTx(t, key, nonce, big.NewInt(1))}, nil, nil)
	require.NoError(t, err)
	return b
}
