package store

import (
	"fmt"

	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/types"
)

// TxStore persists transaction records keyed by their log index
type TxStore interface {
	// StageAppend writes tx under tx.Index into batch
	StageAppend(batch db.DatabaseBatch, tx *types.Transaction) error
	StageDelete(batch db.DatabaseBatch, index uint64)
	// Get returns the record at index, nil when not held by this store
	Get(index uint64) (*types.Transaction, error)
	// GetRange returns the records with index in [start, end) that this store holds, in index order
	GetRange(start, end uint64) ([]*types.Transaction, error)
}

// GenericTxStore stores records under a key prefix, so the hot log and an archive
// can share one implementation
type GenericTxStore struct {
	dbProvider db.DatabaseProvider
	prefix     string
}

func NewGenericTxStore(dbProvider db.DatabaseProvider, prefix string) (*GenericTxStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if prefix == "" {
		return nil, fmt.Errorf("key prefix cannot be empty")
	}

	return &GenericTxStore{
		dbProvider: dbProvider,
		prefix:     prefix,
	}, nil
}

func (ts *GenericTxStore) StageAppend(batch db.DatabaseBatch, tx *types.Transaction) error {
	txData, err := encode(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction %d: %w", tx.Index, err)
	}
	batch.Put(ts.getDbKey(tx.Index), txData)
	return nil
}

func (ts *GenericTxStore) StageDelete(batch db.DatabaseBatch, index uint64) {
	batch.Delete(ts.getDbKey(index))
}

func (ts *GenericTxStore) Get(index uint64) (*types.Transaction, error) {
	data, err := ts.dbProvider.Get(ts.getDbKey(index))
	if err != nil {
		return nil, fmt.Errorf("could not get transaction %d from db: %w", index, err)
	}
	if data == nil {
		return nil, nil
	}

	var tx types.Transaction
	if err := decode(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction %d: %w", index, err)
	}
	return &tx, nil
}

func (ts *GenericTxStore) GetRange(start, end uint64) ([]*types.Transaction, error) {
	if end <= start {
		return []*types.Transaction{}, nil
	}

	keys := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		keys = append(keys, ts.getDbKey(i))
	}
	values, err := ts.dbProvider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("could not get transactions [%d, %d) from db: %w", start, end, err)
	}

	transactions := make([]*types.Transaction, 0, len(values))
	for i, key := range keys {
		data, ok := values[string(key)]
		if !ok {
			continue
		}
		var tx types.Transaction
		if err := decode(data, &tx); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction %d: %w", start+uint64(i), err)
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (ts *GenericTxStore) getDbKey(index uint64) []byte {
	return indexKey(ts.prefix, index)
}
