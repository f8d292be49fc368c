package store

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/types"
)

// AllowanceStore persists (owner, spender) allowances. Expiry is interpreted by the ledger;
// the store only keeps what it was given.
type AllowanceStore interface {
	// Get returns the stored allowance, nil when absent
	Get(owner, spender types.Account) (*types.Allowance, error)
	// StageSet writes allowance into batch; a zero allowance removes the entry
	StageSet(batch db.DatabaseBatch, owner, spender types.Account, allowance *types.Allowance) error
	StageDelete(batch db.DatabaseBatch, owner, spender types.Account)
}

type allowanceRecord struct {
	Owner     types.Account `json:"owner"`
	Spender   types.Account `json:"spender"`
	Allowance string        `json:"allowance"`
	ExpiresAt *uint64       `json:"expires_at,omitempty"`
}

type GenericAllowanceStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericAllowanceStore(dbProvider db.DatabaseProvider) (*GenericAllowanceStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericAllowanceStore{dbProvider: dbProvider}, nil
}

func (as *GenericAllowanceStore) Get(owner, spender types.Account) (*types.Allowance, error) {
	data, err := as.dbProvider.Get(as.getDbKey(owner, spender))
	if err != nil {
		return nil, fmt.Errorf("could not get allowance %s -> %s from db: %w", owner, spender, err)
	}
	if data == nil {
		return nil, nil
	}

	var rec allowanceRecord
	if err := decode(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allowance %s -> %s: %w", owner, spender, err)
	}
	amount, err := uint256.FromDecimal(rec.Allowance)
	if err != nil {
		return nil, fmt.Errorf("invalid allowance %s -> %s: %w", owner, spender, err)
	}
	return &types.Allowance{Allowance: amount, ExpiresAt: rec.ExpiresAt}, nil
}

func (as *GenericAllowanceStore) StageSet(batch db.DatabaseBatch, owner, spender types.Account, allowance *types.Allowance) error {
	if allowance == nil || allowance.Allowance == nil || allowance.Allowance.IsZero() {
		as.StageDelete(batch, owner, spender)
		return nil
	}

	data, err := encode(allowanceRecord{
		Owner:     owner,
		Spender:   spender,
		Allowance: allowance.Allowance.Dec(),
		ExpiresAt: allowance.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal allowance %s -> %s: %w", owner, spender, err)
	}
	batch.Put(as.getDbKey(owner, spender), data)
	return nil
}

func (as *GenericAllowanceStore) StageDelete(batch db.DatabaseBatch, owner, spender types.Account) {
	batch.Delete(as.getDbKey(owner, spender))
}

func (as *GenericAllowanceStore) getDbKey(owner, spender types.Account) []byte {
	return []byte(PrefixAllowance + owner.Key() + "|" + spender.Key())
}
