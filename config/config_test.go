package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/store"
	"github.com/mezonai/tokenledger/types"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var (
	minter = base58.Encode([]byte("minter"))
	alice  = base58.Encode([]byte("alice"))
	admin  = base58.Encode([]byte("admin"))
)

func TestLoadGenesisConfig(t *testing.T) {
	path := writeFile(t, "genesis.yml", `
token:
  name: Test Token
  symbol: TST
  decimals: 8
  fee: "10"
  minting_account:
    owner: `+minter+`
  initial_balances:
    - account:
        owner: `+alice+`
        subaccount: "0000000000000000000000000000000000000000000000000000000000000001"
      amount: "1000"
  min_burn_amount: "10"
  max_supply: "1000000"
  admins:
    - `+admin+`
  advanced_settings:
    permitted_drift: 30s
    transaction_window: 1h
`)

	cfg, err := LoadGenesisConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Token", cfg.Name)
	assert.Equal(t, "TST", cfg.Symbol)
	assert.Equal(t, uint8(8), cfg.Decimals)
	assert.Equal(t, uint256.NewInt(10), cfg.Fee)
	require.NotNil(t, cfg.MintingAccount)
	assert.Equal(t, types.Principal("minter"), cfg.MintingAccount.Owner)
	assert.Nil(t, cfg.FeeCollector)

	require.Len(t, cfg.InitialBalances, 1)
	ib := cfg.InitialBalances[0]
	assert.Equal(t, types.Principal("alice"), ib.Account.Owner)
	require.NotNil(t, ib.Account.Subaccount)
	assert.Equal(t, byte(1), ib.Account.Subaccount[31])
	assert.Equal(t, uint256.NewInt(1000), ib.Amount)

	assert.Equal(t, uint256.NewInt(10), cfg.MinBurnAmount)
	assert.Equal(t, uint256.NewInt(1000000), cfg.MaxSupply)
	assert.Equal(t, 30*time.Second, cfg.Advanced.PermittedDrift)
	assert.Equal(t, time.Hour, cfg.Advanced.TransactionWindow)
	assert.True(t, cfg.Advanced.BurnedTokens.IsZero())
	assert.Equal(t, DefaultMaxMemoLength, cfg.MaxMemoLength)
	assert.True(t, cfg.IsAdmin(types.Principal("admin")))
	assert.False(t, cfg.IsAdmin(types.Principal("alice")))
}

func TestParseTokenConfig_Defaults(t *testing.T) {
	cfg, err := ParseTokenConfig(&TokenFileConfig{Name: "T", Symbol: "T"})
	require.NoError(t, err)

	assert.True(t, cfg.Fee.IsZero())
	assert.True(t, cfg.MaxSupply.IsZero())
	assert.Nil(t, cfg.MintingAccount)
	assert.Equal(t, DefaultTransactionWindow, cfg.Advanced.TransactionWindow)
	assert.Equal(t, DefaultPermittedDrift, cfg.Advanced.PermittedDrift)
}

func TestParseTokenConfig_Rejects(t *testing.T) {
	cases := map[string]TokenFileConfig{
		"missing name":   {Symbol: "T"},
		"bad fee":        {Name: "T", Symbol: "T", Fee: "ten"},
		"bad duration":   {Name: "T", Symbol: "T", AdvancedSettings: AdvancedSettingsConfig{TransactionWindow: "soon"}},
		"bad subaccount": {Name: "T", Symbol: "T", MintingAccount: &AccountConfig{Owner: minter, Subaccount: "00ff"}},
		"empty owner":    {Name: "T", Symbol: "T", FeeCollector: &AccountConfig{}},
		"over max supply": {
			Name: "T", Symbol: "T", MaxSupply: "100",
			InitialBalances: []InitialBalanceConfig{{Account: AccountConfig{Owner: alice}, Amount: "101"}},
		},
		"over 128 bits": {Name: "T", Symbol: "T", Fee: "340282366920938463463374607431768211456"},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTokenConfig(&fc)
			require.Error(t, err)
		})
	}
}

func TestLoadNodeConfig(t *testing.T) {
	path := writeFile(t, "node.ini", `
[store]
type = leveldb
directory = /var/lib/tokenledger

[archive]
type = memory
trigger_threshold = 500
num_blocks_to_archive = 100
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	assert.Equal(t, store.LevelDBStoreType, cfg.Store.Type)
	assert.Equal(t, "/var/lib/tokenledger", cfg.Store.Directory)
	assert.Equal(t, store.MemoryStoreType, cfg.Archive.Store.Type)
	assert.Equal(t, uint64(500), cfg.Archive.Options.TriggerThreshold)
	assert.Equal(t, uint64(100), cfg.Archive.Options.NumBlocksToArchive)
	assert.Equal(t, uint64(DefaultMaxTransactionsPerResponse), cfg.Archive.Options.MaxTransactionsPerResponse)
}

func TestLoadNodeConfig_InvalidStore(t *testing.T) {
	path := writeFile(t, "node.ini", `
[store]
type = leveldb
`)
	_, err := LoadNodeConfig(path)
	require.Error(t, err)
}
