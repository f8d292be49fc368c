package ledger

import (
	"fmt"

	"github.com/mezonai/tokenledger/archive"
	"github.com/mezonai/tokenledger/config"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/store"
)

// Node is a ledger together with the storage it owns
type Node struct {
	*Ledger
	stores      *store.Stores
	archiveNode *archive.Node
}

// Open creates the stores and archive described by node and opens the ledger on them
func Open(token *config.TokenConfig, node *config.NodeConfig, opts ...Option) (*Node, error) {
	if node == nil {
		return nil, fmt.Errorf("node config cannot be nil")
	}

	stores, err := store.CreateStore(&node.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger stores: %w", err)
	}

	n := &Node{stores: stores}
	if node.Archive.Store.Type != "" {
		provider, err := store.NewStoreFactory().CreateProvider(&node.Archive.Store)
		if err != nil {
			stores.MustClose()
			return nil, fmt.Errorf("failed to create archive provider: %w", err)
		}
		n.archiveNode, err = archive.NewNode(provider, node.Archive.Options.MaxTransactionsPerResponse)
		if err != nil {
			_ = provider.Close()
			stores.MustClose()
			return nil, err
		}
		opts = append([]Option{WithArchive(n.archiveNode, node.Archive.Options)}, opts...)
	}

	n.Ledger, err = NewLedger(stores, token, opts...)
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Close waits for background archiving to finish, then releases the stores. No operation
// may be issued once Close has been called.
func (n *Node) Close() {
	if n.Ledger != nil {
		n.waitBackground()
	}
	if n.archiveNode != nil {
		if err := n.archiveNode.Close(); err != nil {
			logx.Error("LEDGER", fmt.Sprintf("Failed to close archive: %v", err))
		}
	}
	n.stores.MustClose()
}
