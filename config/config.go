package config

import (
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/types"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTransactionWindow = 24 * time.Hour
	DefaultPermittedDrift    = 2 * time.Minute
	DefaultMaxMemoLength     = types.MaxMemoLength

	DefaultTriggerThreshold           = 2000
	DefaultNumBlocksToArchive         = 1000
	DefaultMaxTransactionsPerResponse = 2000
)

// LoadGenesisConfig reads genesis.yml and returns the validated token configuration
func LoadGenesisConfig(path string) (*TokenConfig, error) {
	logx.Info("CONFIG", fmt.Sprintf("Loading genesis config from %s", path))
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open genesis config: %w", err)
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode genesis config: %w", err)
	}

	cfg, err := ParseTokenConfig(&cfgFile.Token)
	if err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded token %s (%s): decimals=%d, fee=%s, initial_balances=%d",
		cfg.Name, cfg.Symbol, cfg.Decimals, cfg.Fee.Dec(), len(cfg.InitialBalances)))
	return cfg, nil
}

// ParseTokenConfig converts the textual genesis form, applying defaults for unset settings
func ParseTokenConfig(fc *TokenFileConfig) (*TokenConfig, error) {
	cfg := &TokenConfig{
		Name:          fc.Name,
		Symbol:        fc.Symbol,
		Decimals:      fc.Decimals,
		MaxMemoLength: fc.MaxMemoLength,
	}

	var err error
	if cfg.Fee, err = parseAmount("fee", fc.Fee); err != nil {
		return nil, err
	}
	if cfg.MinBurnAmount, err = parseAmount("min_burn_amount", fc.MinBurnAmount); err != nil {
		return nil, err
	}
	if cfg.MaxSupply, err = parseAmount("max_supply", fc.MaxSupply); err != nil {
		return nil, err
	}
	if fc.MintingAccount != nil {
		if cfg.MintingAccount, err = parseAccount(*fc.MintingAccount); err != nil {
			return nil, fmt.Errorf("invalid minting_account: %w", err)
		}
	}
	if fc.FeeCollector != nil {
		if cfg.FeeCollector, err = parseAccount(*fc.FeeCollector); err != nil {
			return nil, fmt.Errorf("invalid fee_collector: %w", err)
		}
	}

	for i, ib := range fc.InitialBalances {
		account, err := parseAccount(ib.Account)
		if err != nil {
			return nil, fmt.Errorf("invalid initial_balances[%d] account: %w", i, err)
		}
		amount, err := parseAmount(fmt.Sprintf("initial_balances[%d] amount", i), ib.Amount)
		if err != nil {
			return nil, err
		}
		cfg.InitialBalances = append(cfg.InitialBalances, InitialBalance{Account: *account, Amount: amount})
	}

	for _, admin := range fc.Admins {
		p, err := types.PrincipalFromText(admin)
		if err != nil {
			return nil, fmt.Errorf("invalid admin %q: %w", admin, err)
		}
		cfg.Admins = append(cfg.Admins, p)
	}

	adv := fc.AdvancedSettings
	if cfg.Advanced.PermittedDrift, err = parseDuration("permitted_drift", adv.PermittedDrift, DefaultPermittedDrift); err != nil {
		return nil, err
	}
	if cfg.Advanced.TransactionWindow, err = parseDuration("transaction_window", adv.TransactionWindow, DefaultTransactionWindow); err != nil {
		return nil, err
	}
	if cfg.Advanced.BurnedTokens, err = parseAmount("burned_tokens", adv.BurnedTokens); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the token configuration, filling defaults for zero values
func (c *TokenConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("token name cannot be empty")
	}
	if c.Symbol == "" {
		return fmt.Errorf("token symbol cannot be empty")
	}
	if c.Fee == nil {
		c.Fee = new(uint256.Int)
	}
	if c.MinBurnAmount == nil {
		c.MinBurnAmount = new(uint256.Int)
	}
	if c.MaxSupply == nil {
		c.MaxSupply = new(uint256.Int)
	}
	if c.Advanced.BurnedTokens == nil {
		c.Advanced.BurnedTokens = new(uint256.Int)
	}
	if c.MaxMemoLength == 0 {
		c.MaxMemoLength = DefaultMaxMemoLength
	}
	if c.MaxMemoLength < 0 {
		return fmt.Errorf("max_memo_length cannot be negative")
	}
	if c.Advanced.TransactionWindow <= 0 {
		c.Advanced.TransactionWindow = DefaultTransactionWindow
	}
	if c.Advanced.PermittedDrift < 0 {
		return fmt.Errorf("permitted_drift cannot be negative")
	}

	for name, v := range map[string]*uint256.Int{
		"fee":             c.Fee,
		"min_burn_amount": c.MinBurnAmount,
		"max_supply":      c.MaxSupply,
		"burned_tokens":   c.Advanced.BurnedTokens,
	} {
		if !types.InBalanceRange(v) {
			return fmt.Errorf("%s exceeds the 128-bit range", name)
		}
	}

	minted := c.Advanced.BurnedTokens.Clone()
	for i, ib := range c.InitialBalances {
		if ib.Amount == nil {
			return fmt.Errorf("initial_balances[%d] has no amount", i)
		}
		if _, overflow := minted.AddOverflow(minted, ib.Amount); overflow || !types.InBalanceRange(minted) {
			return fmt.Errorf("initial balances exceed the 128-bit range")
		}
	}
	if !c.MaxSupply.IsZero() && minted.Cmp(c.MaxSupply) > 0 {
		return fmt.Errorf("initial balances %s exceed max_supply %s", minted.Dec(), c.MaxSupply.Dec())
	}
	return nil
}

// IsAdmin reports whether p may freeze and unfreeze accounts
func (c *TokenConfig) IsAdmin(p types.Principal) bool {
	for _, admin := range c.Admins {
		if admin == p {
			return true
		}
	}
	return false
}

// LoadNodeConfig reads the [store] and [archive] sections of the node ini file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load node config: %w", err)
	}

	nodeCfg := &NodeConfig{
		Archive: ArchiveConfig{
			Options: ArchiveOptions{
				TriggerThreshold:           DefaultTriggerThreshold,
				NumBlocksToArchive:         DefaultNumBlocksToArchive,
				MaxTransactionsPerResponse: DefaultMaxTransactionsPerResponse,
			},
		},
	}
	if err := cfg.Section("store").MapTo(&nodeCfg.Store); err != nil {
		return nil, fmt.Errorf("failed to map [store] section: %w", err)
	}
	if err := nodeCfg.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [store] section: %w", err)
	}

	archiveSection := cfg.Section("archive")
	if err := archiveSection.MapTo(&nodeCfg.Archive.Store); err != nil {
		return nil, fmt.Errorf("failed to map [archive] store settings: %w", err)
	}
	if err := archiveSection.MapTo(&nodeCfg.Archive.Options); err != nil {
		return nil, fmt.Errorf("failed to map [archive] options: %w", err)
	}
	if nodeCfg.Archive.Store.Type != "" {
		if err := nodeCfg.Archive.Store.Validate(); err != nil {
			return nil, fmt.Errorf("invalid [archive] section: %w", err)
		}
	}
	if nodeCfg.Archive.Options.NumBlocksToArchive == 0 {
		return nil, fmt.Errorf("num_blocks_to_archive must be positive")
	}

	logx.Info("CONFIG", fmt.Sprintf("Loaded node config: store=%s, archive=%s, trigger_threshold=%d",
		nodeCfg.Store.Type, nodeCfg.Archive.Store.Type, nodeCfg.Archive.Options.TriggerThreshold))
	return nodeCfg, nil
}

func parseAmount(name, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

func parseAccount(ac AccountConfig) (*types.Account, error) {
	if ac.Owner == "" {
		return nil, fmt.Errorf("owner cannot be empty")
	}
	owner, err := types.PrincipalFromText(ac.Owner)
	if err != nil {
		return nil, err
	}
	var sub *types.Subaccount
	if ac.Subaccount != "" {
		if sub, err = types.SubaccountFromHex(ac.Subaccount); err != nil {
			return nil, err
		}
	}
	account := types.NewAccount(owner, sub)
	return &account, nil
}
