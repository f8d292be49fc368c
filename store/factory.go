package store

import (
	"fmt"

	"github.com/mezonai/tokenledger/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses an on-disk LevelDB database
	LevelDBStoreType StoreType = "leveldb"

	// MemoryStoreType uses LevelDB over in-memory storage; nothing survives a restart
	MemoryStoreType StoreType = "memory"

	// RedisStoreType uses a Redis server
	RedisStoreType StoreType = "redis"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type" ini:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory" ini:"directory"`

	RedisAddr string `json:"redis_addr" yaml:"redis_addr" ini:"redis_addr"`
	RedisDB   int    `json:"redis_db" yaml:"redis_db" ini:"redis_db"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case "":
		return fmt.Errorf("store type cannot be empty")
	case LevelDBStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s store", sc.Type)
		}
	case RedisStoreType:
		if sc.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for %s store", sc.Type)
		}
	case MemoryStoreType:
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
	return nil
}

// Stores bundles the ledger stores sharing one provider, so a single batch can span all of them
type Stores struct {
	Provider   db.IterableProvider
	TxManager  *db.DBTxManager
	Balances   BalanceStore
	Allowances AllowanceStore
	Txs        TxStore
	Meta       MetaStore
}

// MustClose closes the shared provider
func (s *Stores) MustClose() {
	s.Balances.MustClose()
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoreWithProvider creates the ledger stores on top of a freshly opened provider
func (sf *StoreFactory) CreateStoreWithProvider(config *StoreConfig) (*Stores, error) {
	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	stores, err := NewStores(provider)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return stores, nil
}

// NewStores wires every ledger store to provider
func NewStores(provider db.IterableProvider) (*Stores, error) {
	balances, err := NewGenericBalanceStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance store: %w", err)
	}

	allowances, err := NewGenericAllowanceStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create allowance store: %w", err)
	}

	txs, err := NewGenericTxStore(provider, PrefixTx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction store: %w", err)
	}

	meta, err := NewGenericMetaStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create meta store: %w", err)
	}

	return &Stores{
		Provider:   provider,
		TxManager:  db.NewDBTxManager(provider),
		Balances:   balances,
		Allowances: allowances,
		Txs:        txs,
		Meta:       meta,
	}, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case MemoryStoreType:
		return db.NewMemLevelDBProvider()

	case RedisStoreType:
		return db.NewRedisProvider(config.RedisAddr, config.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStore creates new store instances using the global factory
func CreateStore(config *StoreConfig) (*Stores, error) {
	return globalFactory.CreateStoreWithProvider(config)
}
