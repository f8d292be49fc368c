// Package archive holds transaction ranges evicted from the ledger's hot storage.
//
// The ledger only knows the Archive interface. Archived ranges in a GetTransactions
// response carry a QueryArchiveFn, an opaque callback the caller uses to fetch the
// range's records without going through the ledger.
package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/jsonx"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/store"
	"github.com/mezonai/tokenledger/types"
)

// QueryArchiveFn resolves records [start, start+length) from an archive
type QueryArchiveFn func(ctx context.Context, start, length uint64) (*types.TransactionRange, error)

type Archive interface {
	// AppendTransactions stores a contiguous run of records continuing the archived range
	AppendTransactions(ctx context.Context, txs []*types.Transaction) error
	GetTransactions(ctx context.Context, start, length uint64) (*types.TransactionRange, error)
	// Query returns the callback reference handed out in archived range descriptors
	Query() QueryArchiveFn
}

type nodeRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Node is an Archive backed by its own database provider
type Node struct {
	mu        sync.RWMutex
	txs       store.TxStore
	provider  db.DatabaseProvider
	txManager *db.DBTxManager
	rng       nodeRange
	// maxLength caps a single GetTransactions answer; 0 means unlimited
	maxLength uint64
}

func NewNode(provider db.DatabaseProvider, maxLength uint64) (*Node, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	txs, err := store.NewGenericTxStore(provider, store.PrefixArchiveTx)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive transaction store: %w", err)
	}

	n := &Node{
		txs:       txs,
		provider:  provider,
		txManager: db.NewDBTxManager(provider),
		maxLength: maxLength,
	}

	raw, err := provider.Get([]byte(store.MetaKeyArchiveNode))
	if err != nil {
		return nil, fmt.Errorf("failed to load archive range: %w", err)
	}
	if len(raw) > 0 {
		if err := jsonx.Unmarshal(raw, &n.rng); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archive range: %w", err)
		}
	}
	return n, nil
}

// Range returns the archived index range [start, end)
func (n *Node) Range() (uint64, uint64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rng.Start, n.rng.End
}

func (n *Node) AppendTransactions(ctx context.Context, txs []*types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(txs) == 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	next := n.rng
	empty := next.Start == next.End
	if empty {
		next = nodeRange{Start: txs[0].Index, End: txs[0].Index}
	}

	err := n.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		for _, tx := range txs {
			if tx.Index < next.End {
				// already archived by an earlier attempt that did not finish on the ledger side
				continue
			}
			if tx.Index != next.End {
				return fmt.Errorf("archive gap: expected index %d, got %d", next.End, tx.Index)
			}
			if err := n.txs.StageAppend(batch, tx); err != nil {
				return err
			}
			next.End++
		}
		raw, err := jsonx.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal archive range: %w", err)
		}
		batch.Put([]byte(store.MetaKeyArchiveNode), raw)
		return nil
	})
	if err != nil {
		return err
	}

	n.rng = next
	logx.Info("ARCHIVE", fmt.Sprintf("Archived transactions, range now [%d, %d)", next.Start, next.End))
	return nil
}

func (n *Node) GetTransactions(ctx context.Context, start, length uint64) (*types.TransactionRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.maxLength > 0 && length > n.maxLength {
		length = n.maxLength
	}

	n.mu.RLock()
	rng := n.rng
	n.mu.RUnlock()

	from := max(start, rng.Start)
	to := min(start+length, rng.End)
	if start+length < start {
		to = rng.End
	}
	if from >= to {
		return &types.TransactionRange{Transactions: []*types.Transaction{}}, nil
	}

	txs, err := n.txs.GetRange(from, to)
	if err != nil {
		return nil, err
	}
	return &types.TransactionRange{Transactions: txs}, nil
}

func (n *Node) Query() QueryArchiveFn {
	return n.GetTransactions
}

func (n *Node) Close() error {
	return n.provider.Close()
}
