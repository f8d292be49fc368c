package store

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/types"
)

// BalanceStore persists account balances. Writes are staged into a batch owned by the caller
// so a ledger operation commits all of its balance changes together.
type BalanceStore interface {
	// Get returns the balance of account, zero when it was never credited
	Get(account types.Account) (*uint256.Int, error)
	GetBatch(accounts []types.Account) (map[string]*uint256.Int, error)
	// StageSet writes balance into batch; a zero balance removes the entry
	StageSet(batch db.DatabaseBatch, account types.Account, balance *uint256.Int) error
	// Iterate visits every non-zero balance
	Iterate(fn func(account types.Account, balance *uint256.Int) bool) error
	MustClose()
}

type balanceRecord struct {
	Account types.Account `json:"account"`
	Balance string        `json:"balance"`
}

type GenericBalanceStore struct {
	dbProvider db.IterableProvider
}

func NewGenericBalanceStore(dbProvider db.IterableProvider) (*GenericBalanceStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericBalanceStore{
		dbProvider: dbProvider,
	}, nil
}

func (bs *GenericBalanceStore) Get(account types.Account) (*uint256.Int, error) {
	data, err := bs.dbProvider.Get(bs.getDbKey(account))
	if err != nil {
		return nil, fmt.Errorf("could not get balance of %s from db: %w", account, err)
	}
	if data == nil {
		return uint256.NewInt(0), nil
	}

	return decodeBalance(account, data)
}

// GetBatch returns balances keyed by Account.Key(); unknown accounts map to zero
func (bs *GenericBalanceStore) GetBatch(accounts []types.Account) (map[string]*uint256.Int, error) {
	keys := make([][]byte, len(accounts))
	for i, account := range accounts {
		keys[i] = bs.getDbKey(account)
	}

	values, err := bs.dbProvider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("could not get balances from db: %w", err)
	}

	result := make(map[string]*uint256.Int, len(accounts))
	for i, account := range accounts {
		data, ok := values[string(keys[i])]
		if !ok {
			result[account.Key()] = uint256.NewInt(0)
			continue
		}
		balance, err := decodeBalance(account, data)
		if err != nil {
			return nil, err
		}
		result[account.Key()] = balance
	}
	return result, nil
}

func (bs *GenericBalanceStore) StageSet(batch db.DatabaseBatch, account types.Account, balance *uint256.Int) error {
	key := bs.getDbKey(account)
	if balance.IsZero() {
		batch.Delete(key)
		return nil
	}

	data, err := encode(balanceRecord{Account: account, Balance: balance.Dec()})
	if err != nil {
		return fmt.Errorf("failed to marshal balance of %s: %w", account, err)
	}
	batch.Put(key, data)
	return nil
}

func (bs *GenericBalanceStore) Iterate(fn func(account types.Account, balance *uint256.Int) bool) error {
	var decodeErr error
	err := bs.dbProvider.IteratePrefix([]byte(PrefixBalance), func(_, value []byte) bool {
		var rec balanceRecord
		if err := decode(value, &rec); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal balance record: %w", err)
			return false
		}
		balance, err := uint256.FromDecimal(rec.Balance)
		if err != nil {
			decodeErr = fmt.Errorf("invalid balance for %s: %w", rec.Account, err)
			return false
		}
		return fn(rec.Account, balance)
	})
	if err != nil {
		return fmt.Errorf("failed to iterate balances: %w", err)
	}
	return decodeErr
}

func (bs *GenericBalanceStore) MustClose() {
	if err := bs.dbProvider.Close(); err != nil {
		logx.Error("BALANCE_STORE", "Failed to close db provider: ", err.Error())
	}
}

func (bs *GenericBalanceStore) getDbKey(account types.Account) []byte {
	return []byte(PrefixBalance + account.Key())
}

func decodeBalance(account types.Account, data []byte) (*uint256.Int, error) {
	var rec balanceRecord
	if err := decode(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance of %s: %w", account, err)
	}
	balance, err := uint256.FromDecimal(rec.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance for %s: %w", account, err)
	}
	return balance, nil
}
