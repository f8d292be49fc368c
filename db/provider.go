package db

// DatabaseProvider abstracts the low-level key-value operations the ledger stores rely on,
// so balances, allowances and the transaction log can live on any supported backend.
type DatabaseProvider interface {
	// Get retrieves a value by key, returning nil without error when the key is absent
	Get(key []byte) ([]byte, error)

	// GetBatch retrieves multiple values by keys in a single operation. Absent keys are omitted.
	GetBatch(keys [][]byte) (map[string][]byte, error)

	Put(key, value []byte) error

	Delete(key []byte) error

	Has(key []byte) (bool, error)

	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with iteration capabilities
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix iterates over all key-value pairs with the given prefix in key order.
	// key and value are only valid during the callback. The callback should return false to stop iteration.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch collects writes that become visible together on Write
type DatabaseBatch interface {
	Put(key, value []byte)

	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	// Reset clears the batch
	Reset()

	// Close releases batch resources
	Close() error
}
