package testing

import (
	"context"
	"math/big"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raisefunds/chain"
)

func TestMockChain(t *testing.T) {
	mock := NewMockChain(114)
	server := httptest.NewServer(mock.Handler())
	defer server.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")

	mined, err := mock.SignedTransfer(key, 0, &to, big.NewInt(1_500_000_000))
	require.NoError(t, err)
	minedHash := mock.AddTransaction(mined, from, types.ReceiptStatusSuccessful)

	queued, err := mock.SignedTransfer(key, 1, &to, big.NewInt(1))
	require.NoError(t, err)
	queuedHash := mock.AddPendingTransaction(queued, from)

	nodeURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	for _, chainType := range []chain.ChainType{chain.ChainTypeEth, chain.ChainTypeAvax} {
		t.Run(chainType.String(), func(t *testing.T) {
			ctx := context.Background()

			client, err := chain.DialRPCNode(nodeURL, chainType)
			require.NoError(t, err)
			defer client.Close()

			chainID, err := client.ChainID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(114), chainID.Int64())

			receipt, err := client.TransactionReceipt(ctx, minedHash)
			require.NoError(t, err)
			assert.True(t, receipt.Successful())
			assert.Equal(t, uint64(1001), receipt.BlockNumber().Uint64())

			tx, isPending, err := client.TransactionByHash(ctx, minedHash)
			require.NoError(t, err)
			assert.False(t, isPending)
			assert.Equal(t, minedHash, tx.Hash())
			assert.Equal(t, to, *tx.To())
			assert.Equal(t, int64(1_500_000_000), tx.Value().Int64())

			sender, err := tx.FromAddress()
			require.NoError(t, err)
			assert.Equal(t, from, sender)

			_, isPending, err = client.TransactionByHash(ctx, queuedHash)
			require.NoError(t, err)
			assert.True(t, isPending)

			_, err = client.TransactionReceipt(ctx, queuedHash)
			assert.True(t, chain.IsNotFound(err), "got %v", err)

			_, _, err = client.TransactionByHash(ctx, common.HexToHash("0xdead"))
			assert.True(t, chain.IsNotFound(err), "got %v", err)
		})
	}
}
