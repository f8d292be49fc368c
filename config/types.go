package config

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/store"
	"github.com/mezonai/tokenledger/types"
)

// AccountConfig is an account as written in genesis.yml
type AccountConfig struct {
	Owner      string `yaml:"owner"`
	Subaccount string `yaml:"subaccount,omitempty"`
}

type InitialBalanceConfig struct {
	Account AccountConfig `yaml:"account"`
	Amount  string        `yaml:"amount"`
}

type AdvancedSettingsConfig struct {
	PermittedDrift    string `yaml:"permitted_drift"`
	TransactionWindow string `yaml:"transaction_window"`
	BurnedTokens      string `yaml:"burned_tokens"`
}

// TokenFileConfig holds the token init args from genesis.yml
type TokenFileConfig struct {
	Name             string                 `yaml:"name"`
	Symbol           string                 `yaml:"symbol"`
	Decimals         uint8                  `yaml:"decimals"`
	Fee              string                 `yaml:"fee"`
	MintingAccount   *AccountConfig         `yaml:"minting_account"`
	FeeCollector     *AccountConfig         `yaml:"fee_collector"`
	InitialBalances  []InitialBalanceConfig `yaml:"initial_balances"`
	MinBurnAmount    string                 `yaml:"min_burn_amount"`
	MaxSupply        string                 `yaml:"max_supply"`
	MaxMemoLength    int                    `yaml:"max_memo_length"`
	Admins           []string               `yaml:"admins"`
	AdvancedSettings AdvancedSettingsConfig `yaml:"advanced_settings"`
}

// ConfigFile is the top-level structure for genesis.yml
type ConfigFile struct {
	Token TokenFileConfig `yaml:"token"`
}

type InitialBalance struct {
	Account types.Account
	Amount  *uint256.Int
}

type AdvancedSettings struct {
	PermittedDrift    time.Duration
	TransactionWindow time.Duration
	// BurnedTokens seeds the burned counter of a ledger migrated from elsewhere
	BurnedTokens *uint256.Int
}

// TokenConfig is the parsed, validated token configuration the ledger is initialized with
type TokenConfig struct {
	Name           string
	Symbol         string
	Decimals       uint8
	Fee            *uint256.Int
	MintingAccount *types.Account
	// FeeCollector receives transfer and approve fees; fees are burned when nil
	FeeCollector    *types.Account
	InitialBalances []InitialBalance
	MinBurnAmount   *uint256.Int
	// MaxSupply of zero means unlimited
	MaxSupply     *uint256.Int
	MaxMemoLength int
	Admins        []types.Principal
	Advanced      AdvancedSettings
}

// ArchiveOptions controls when and how much of the hot log moves to the archive
type ArchiveOptions struct {
	TriggerThreshold           uint64 `ini:"trigger_threshold"`
	NumBlocksToArchive         uint64 `ini:"num_blocks_to_archive"`
	MaxTransactionsPerResponse uint64 `ini:"max_transactions_per_response"`
}

// ArchiveConfig is the [archive] section of the node ini file
type ArchiveConfig struct {
	// Store is where the archive node keeps records; an empty type disables archiving
	Store   store.StoreConfig
	Options ArchiveOptions
}

// NodeConfig holds the node settings from the ini file
type NodeConfig struct {
	Store   store.StoreConfig
	Archive ArchiveConfig
}
