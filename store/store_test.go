package store

import (
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

var (
	alice = types.Account{Owner: types.Principal("alice")}
	bob   = types.Account{Owner: types.Principal("bob")}
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := CreateStore(&StoreConfig{Type: MemoryStoreType})
	require.NoError(t, err)
	t.Cleanup(stores.MustClose)
	return stores
}

func TestBalanceStore_StageSetAndGet(t *testing.T) {
	stores := newTestStores(t)

	zero, err := stores.Balances.Get(alice)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	err = stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := stores.Balances.StageSet(batch, alice, uint256.NewInt(700)); err != nil {
			return err
		}
		return stores.Balances.StageSet(batch, bob, uint256.NewInt(30))
	})
	require.NoError(t, err)

	// an explicit zero subaccount names the same account
	sub := types.DefaultSubaccount
	got, err := stores.Balances.Get(types.NewAccount(alice.Owner, &sub))
	require.NoError(t, err)
	assert.Equal(t, "700", got.Dec())

	balances, err := stores.Balances.GetBatch([]types.Account{alice, bob, {Owner: "carol"}})
	require.NoError(t, err)
	assert.Equal(t, "700", balances[alice.Key()].Dec())
	assert.Equal(t, "30", balances[bob.Key()].Dec())
	assert.True(t, balances[types.Account{Owner: "carol"}.Key()].IsZero())

	seen := make(map[string]string)
	require.NoError(t, stores.Balances.Iterate(func(account types.Account, balance *uint256.Int) bool {
		seen[account.Key()] = balance.Dec()
		return true
	}))
	assert.Equal(t, map[string]string{alice.Key(): "700", bob.Key(): "30"}, seen)

	// a zero balance removes the entry
	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return stores.Balances.StageSet(batch, bob, uint256.NewInt(0))
	}))
	present, err := stores.Provider.Has([]byte(PrefixBalance + bob.Key()))
	require.NoError(t, err)
	assert.False(t, present)
}

func TestBatch_AbortedWritesNothing(t *testing.T) {
	stores := newTestStores(t)

	err := stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := stores.Balances.StageSet(batch, alice, uint256.NewInt(5)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := stores.Balances.Get(alice)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAllowanceStore(t *testing.T) {
	stores := newTestStores(t)

	missing, err := stores.Allowances.Get(alice, bob)
	require.NoError(t, err)
	assert.Nil(t, missing)

	expires := uint64(12345)
	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return stores.Allowances.StageSet(batch, alice, bob, &types.Allowance{Allowance: uint256.NewInt(90), ExpiresAt: &expires})
	}))

	got, err := stores.Allowances.Get(alice, bob)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "90", got.Allowance.Dec())
	assert.Equal(t, expires, *got.ExpiresAt)

	// allowances are directional
	reverse, err := stores.Allowances.Get(bob, alice)
	require.NoError(t, err)
	assert.Nil(t, reverse)

	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		stores.Allowances.StageDelete(batch, alice, bob)
		return nil
	}))
	got, err = stores.Allowances.Get(alice, bob)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTxStore_RangeIsOrderedAndSkipsMissing(t *testing.T) {
	stores := newTestStores(t)

	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		for i := uint64(0); i < 300; i++ {
			tx := &types.Transaction{
				Index: i,
				Kind:  types.TxKindBurn,
				Burn:  &types.Burn{From: alice, Amount: uint256.NewInt(i)},
			}
			if err := stores.Txs.StageAppend(batch, tx); err != nil {
				return err
			}
		}
		stores.Txs.StageDelete(batch, 0)
		return nil
	}))

	txs, err := stores.Txs.GetRange(0, 300)
	require.NoError(t, err)
	require.Len(t, txs, 299)
	for i, tx := range txs {
		assert.Equal(t, uint64(i+1), tx.Index)
	}

	tx, err := stores.Txs.Get(256)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "256", tx.Burn.Amount.Dec())

	empty, err := stores.Txs.GetRange(5, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMetaStore(t *testing.T) {
	stores := newTestStores(t)

	meta, err := stores.Meta.GetLedgerMeta()
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		stores.Meta.StageFreeze(batch, alice.Owner)
		stores.Meta.StageFreeze(batch, bob.Owner)
		return stores.Meta.StageLedgerMeta(batch, &LedgerMeta{
			LogLength:    7,
			FirstIndex:   2,
			TotalSupply:  uint256.NewInt(1000),
			BurnedTokens: uint256.NewInt(40),
		})
	}))

	meta, err = stores.Meta.GetLedgerMeta()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, uint64(7), meta.LogLength)
	assert.Equal(t, uint64(2), meta.FirstIndex)
	assert.Equal(t, "1000", meta.TotalSupply.Dec())
	assert.Equal(t, "40", meta.BurnedTokens.Dec())

	clone := meta.Clone()
	clone.TotalSupply.SetUint64(1)
	assert.Equal(t, "1000", meta.TotalSupply.Dec())

	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		stores.Meta.StageUnfreeze(batch, bob.Owner)
		return nil
	}))
	frozen, err := stores.Meta.FrozenOwners()
	require.NoError(t, err)
	assert.Equal(t, []types.Principal{alice.Owner}, frozen)
}

func TestStoreConfig_Validate(t *testing.T) {
	assert.Error(t, (&StoreConfig{}).Validate())
	assert.Error(t, (&StoreConfig{Type: LevelDBStoreType}).Validate())
	assert.Error(t, (&StoreConfig{Type: RedisStoreType}).Validate())
	assert.Error(t, (&StoreConfig{Type: "rocksdb"}).Validate())
	assert.NoError(t, (&StoreConfig{Type: MemoryStoreType}).Validate())
	assert.NoError(t, (&StoreConfig{Type: LevelDBStoreType, Directory: t.TempDir()}).Validate())
}

func TestCreateStore_LevelDBPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := &StoreConfig{Type: LevelDBStoreType, Directory: dir}

	stores, err := CreateStore(cfg)
	require.NoError(t, err)
	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return stores.Balances.StageSet(batch, alice, uint256.NewInt(11))
	}))
	stores.MustClose()

	stores, err = CreateStore(cfg)
	require.NoError(t, err)
	defer stores.MustClose()
	got, err := stores.Balances.Get(alice)
	require.NoError(t, err)
	assert.Equal(t, "11", got.Dec())
}
