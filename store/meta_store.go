package store

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/types"
)

// LedgerMeta holds the counters that move together with every commit.
// Keys:
// - MetaKeyLedger => JSON encoded ledgerMetaRecord
// - PrefixFrozen + <base58 owner> => empty value
type LedgerMeta struct {
	// LogLength is the index the next transaction will receive
	LogLength uint64
	// FirstIndex is the first index still held in hot storage
	FirstIndex   uint64
	TotalSupply  *uint256.Int
	BurnedTokens *uint256.Int
}

func (m *LedgerMeta) Clone() *LedgerMeta {
	return &LedgerMeta{
		LogLength:    m.LogLength,
		FirstIndex:   m.FirstIndex,
		TotalSupply:  m.TotalSupply.Clone(),
		BurnedTokens: m.BurnedTokens.Clone(),
	}
}

type ledgerMetaRecord struct {
	LogLength    uint64 `json:"log_length"`
	FirstIndex   uint64 `json:"first_index"`
	TotalSupply  string `json:"total_supply"`
	BurnedTokens string `json:"burned_tokens"`
}

type MetaStore interface {
	// GetLedgerMeta returns nil when the ledger was never initialized on this provider
	GetLedgerMeta() (*LedgerMeta, error)
	StageLedgerMeta(batch db.DatabaseBatch, meta *LedgerMeta) error
	// FrozenOwners lists every frozen owner principal
	FrozenOwners() ([]types.Principal, error)
	StageFreeze(batch db.DatabaseBatch, owner types.Principal)
	StageUnfreeze(batch db.DatabaseBatch, owner types.Principal)
}

type GenericMetaStore struct {
	provider db.IterableProvider
}

func NewGenericMetaStore(provider db.IterableProvider) (*GenericMetaStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericMetaStore{provider: provider}, nil
}

func (s *GenericMetaStore) GetLedgerMeta() (*LedgerMeta, error) {
	value, err := s.provider.Get([]byte(MetaKeyLedger))
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger meta: %w", err)
	}
	if len(value) == 0 {
		return nil, nil
	}

	var rec ledgerMetaRecord
	if err := decode(value, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger meta: %w", err)
	}
	supply, err := uint256.FromDecimal(rec.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("invalid total supply in ledger meta: %w", err)
	}
	burned, err := uint256.FromDecimal(rec.BurnedTokens)
	if err != nil {
		return nil, fmt.Errorf("invalid burned tokens in ledger meta: %w", err)
	}
	return &LedgerMeta{
		LogLength:    rec.LogLength,
		FirstIndex:   rec.FirstIndex,
		TotalSupply:  supply,
		BurnedTokens: burned,
	}, nil
}

func (s *GenericMetaStore) StageLedgerMeta(batch db.DatabaseBatch, meta *LedgerMeta) error {
	data, err := encode(ledgerMetaRecord{
		LogLength:    meta.LogLength,
		FirstIndex:   meta.FirstIndex,
		TotalSupply:  meta.TotalSupply.Dec(),
		BurnedTokens: meta.BurnedTokens.Dec(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ledger meta: %w", err)
	}
	batch.Put([]byte(MetaKeyLedger), data)
	return nil
}

func (s *GenericMetaStore) FrozenOwners() ([]types.Principal, error) {
	owners := make([]types.Principal, 0)
	var parseErr error
	err := s.provider.IteratePrefix([]byte(PrefixFrozen), func(key, _ []byte) bool {
		owner, err := types.PrincipalFromText(string(key[len(PrefixFrozen):]))
		if err != nil {
			parseErr = err
			return false
		}
		owners = append(owners, owner)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate frozen owners: %w", err)
	}
	return owners, parseErr
}

func (s *GenericMetaStore) StageFreeze(batch db.DatabaseBatch, owner types.Principal) {
	batch.Put(s.frozenKey(owner), []byte{1})
}

func (s *GenericMetaStore) StageUnfreeze(batch db.DatabaseBatch, owner types.Principal) {
	batch.Delete(s.frozenKey(owner))
}

func (s *GenericMetaStore) frozenKey(owner types.Principal) []byte {
	return []byte(PrefixFrozen + owner.String())
}
