package db

import (
	"fmt"

	"github.com/mezonai/tokenledger/logx"
)

// DBTxManager runs a group of store writes as one atomic batch on a shared provider
type DBTxManager struct {
	provider DatabaseProvider
}

func NewDBTxManager(provider DatabaseProvider) *DBTxManager {
	return &DBTxManager{provider: provider}
}

// WithBatch executes fn against a fresh batch. The batch is written only when fn returns nil;
// otherwise nothing fn staged becomes visible.
func (tm *DBTxManager) WithBatch(fn func(batch DatabaseBatch) error) error {
	batch := tm.provider.Batch()
	defer func() {
		if err := batch.Close(); err != nil {
			logx.Error("TX_MANAGER", "Failed to close batch: ", err)
		}
	}()

	if err := fn(batch); err != nil {
		batch.Reset()
		return fmt.Errorf("batch aborted: %w", err)
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

func (tm *DBTxManager) Provider() DatabaseProvider {
	return tm.provider
}
