package archive

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/types"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func records(start, end uint64) []*types.Transaction {
	txs := make([]*types.Transaction, 0, end-start)
	for i := start; i < end; i++ {
		txs = append(txs, &types.Transaction{
			Index:     i,
			Timestamp: 1000 + i,
			Kind:      types.TxKindMint,
			Mint: &types.Mint{
				To:     types.Account{Owner: types.Principal("alice")},
				Amount: uint256.NewInt(i + 1),
			},
		})
	}
	return txs
}

func newNode(t *testing.T, provider db.DatabaseProvider, maxLength uint64) *Node {
	t.Helper()
	node, err := NewNode(provider, maxLength)
	require.NoError(t, err)
	return node
}

func memProvider(t *testing.T) *db.LevelDBProvider {
	t.Helper()
	provider, err := db.NewMemLevelDBProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestNode_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	node := newNode(t, memProvider(t), 0)

	require.NoError(t, node.AppendTransactions(ctx, records(0, 5)))
	start, end := node.Range()
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(5), end)

	rng, err := node.GetTransactions(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, rng.Transactions, 3)
	assert.Equal(t, uint64(1), rng.Transactions[0].Index)
	assert.Equal(t, "4", rng.Transactions[2].Mint.Amount.Dec())

	// ranges past the archived end are truncated
	rng, err = node.GetTransactions(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, rng.Transactions, 1)

	rng, err = node.GetTransactions(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, rng.Transactions)

	rng, err = node.Query()(ctx, 0, ^uint64(0))
	require.NoError(t, err)
	assert.Len(t, rng.Transactions, 5)
}

func TestNode_RejectsGaps(t *testing.T) {
	ctx := context.Background()
	node := newNode(t, memProvider(t), 0)

	require.NoError(t, node.AppendTransactions(ctx, records(0, 2)))
	err := node.AppendTransactions(ctx, records(3, 4))
	require.Error(t, err)

	_, end := node.Range()
	assert.Equal(t, uint64(2), end)
}

func TestNode_ReappendSkipsArchivedIndices(t *testing.T) {
	ctx := context.Background()
	node := newNode(t, memProvider(t), 0)

	require.NoError(t, node.AppendTransactions(ctx, records(0, 3)))
	require.NoError(t, node.AppendTransactions(ctx, records(1, 5)))

	start, end := node.Range()
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(5), end)
}

func TestNode_StartsAtFirstAppendedIndex(t *testing.T) {
	ctx := context.Background()
	node := newNode(t, memProvider(t), 0)

	require.NoError(t, node.AppendTransactions(ctx, records(10, 12)))
	start, end := node.Range()
	assert.Equal(t, uint64(10), start)
	assert.Equal(t, uint64(12), end)

	rng, err := node.GetTransactions(ctx, 0, 11)
	require.NoError(t, err)
	require.Len(t, rng.Transactions, 1)
	assert.Equal(t, uint64(10), rng.Transactions[0].Index)
}

func TestNode_MaxLengthCapsResponses(t *testing.T) {
	ctx := context.Background()
	node := newNode(t, memProvider(t), 2)

	require.NoError(t, node.AppendTransactions(ctx, records(0, 5)))
	rng, err := node.GetTransactions(ctx, 0, 5)
	require.NoError(t, err)
	assert.Len(t, rng.Transactions, 2)
}

func TestNode_RangeSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	provider := memProvider(t)

	require.NoError(t, newNode(t, provider, 0).AppendTransactions(ctx, records(0, 3)))

	reopened := newNode(t, provider, 0)
	start, end := reopened.Range()
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(3), end)

	rng, err := reopened.GetTransactions(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, rng.Transactions, 1)
	assert.Equal(t, uint64(2), rng.Transactions[0].Index)
}

func TestNode_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	node := newNode(t, memProvider(t), 0)

	require.ErrorIs(t, node.AppendTransactions(ctx, records(0, 1)), context.Canceled)
	_, err := node.GetTransactions(ctx, 0, 1)
	require.ErrorIs(t, err, context.Canceled)
}
