package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/mezonai/tokenledger/archive"
	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

// ArchivedRange points at records the ledger no longer holds. Callback resolves them
// directly against the archive.
type ArchivedRange struct {
	Callback archive.QueryArchiveFn
	Start    uint64
	Length   uint64
}

type GetTransactionsResponse struct {
	// FirstIndex is the index of the first record in Transactions
	FirstIndex uint64
	LogLength  uint64
	// Transactions is the part of the requested range still in hot storage
	Transactions         []*types.Transaction
	ArchivedTransactions []ArchivedRange
}

func (l *Ledger) BalanceOf(account types.Account) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, err := l.stores.Balances.Get(account)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	return balance, nil
}

// BalancesOf returns the balances of accounts keyed by Account.Key()
func (l *Ledger) BalancesOf(accounts []types.Account) (map[string]*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balances, err := l.stores.Balances.GetBatch(accounts)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	return balances, nil
}

// ForEachBalance visits every account with a non-zero balance until fn returns false
func (l *Ledger) ForEachBalance(fn func(account types.Account, balance *uint256.Int) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.stores.Balances.Iterate(fn); err != nil {
		return lerrors.NewInternalError(err)
	}
	return nil
}

// GetTransaction returns the record at index, resolving archived indices through the
// archive. It returns nil when no record has that index.
func (l *Ledger) GetTransaction(ctx context.Context, index uint64) (*types.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= l.meta.LogLength {
		return nil, nil
	}
	if index >= l.meta.FirstIndex {
		tx, err := l.stores.Txs.Get(index)
		if err != nil {
			return nil, lerrors.NewInternalError(err)
		}
		return tx, nil
	}

	if l.archive == nil {
		return nil, lerrors.NewInternalError(fmt.Errorf("transaction %d was archived but no archive is configured", index))
	}
	rng, err := l.archive.GetTransactions(ctx, index, 1)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	if len(rng.Transactions) == 0 {
		return nil, nil
	}
	return rng.Transactions[0], nil
}

// GetTransactions returns up to length records from start. Records still in hot storage
// come back inline; older ones are described by archived ranges of at most
// max_transactions_per_response records each.
func (l *Ledger) GetTransactions(ctx context.Context, start, length uint64) (*GetTransactionsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	logLength, firstIndex := l.meta.LogLength, l.meta.FirstIndex
	end := start + length
	if end < start || end > logLength {
		end = logLength
	}
	maxResp := l.archiveOpts.MaxTransactionsPerResponse

	resp := &GetTransactionsResponse{
		LogLength:            logLength,
		Transactions:         []*types.Transaction{},
		ArchivedTransactions: []ArchivedRange{},
	}

	hotStart := max(start, firstIndex)
	resp.FirstIndex = min(hotStart, logLength)
	if hotStart < end {
		hotEnd := end
		if maxResp > 0 && hotEnd-hotStart > maxResp {
			hotEnd = hotStart + maxResp
		}
		txs, err := l.stores.Txs.GetRange(hotStart, hotEnd)
		if err != nil {
			return nil, lerrors.NewInternalError(err)
		}
		resp.Transactions = txs
	}

	archivedEnd := min(end, firstIndex)
	if start < archivedEnd && l.archive != nil {
		callback := l.archive.Query()
		for s := start; s < archivedEnd; {
			n := archivedEnd - s
			if maxResp > 0 && n > maxResp {
				n = maxResp
			}
			resp.ArchivedTransactions = append(resp.ArchivedTransactions, ArchivedRange{
				Callback: callback,
				Start:    s,
				Length:   n,
			})
			s += n
		}
	}
	return resp, nil
}

func (l *Ledger) Name() string {
	return l.cfg.Name
}

func (l *Ledger) Symbol() string {
	return l.cfg.Symbol
}

func (l *Ledger) Decimals() uint8 {
	return l.cfg.Decimals
}

func (l *Ledger) Fee() *uint256.Int {
	return l.cfg.Fee.Clone()
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.TotalSupply.Clone()
}

func (l *Ledger) BurnedTokens() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.BurnedTokens.Clone()
}

// LogLength is the number of records ever committed, archived ones included
func (l *Ledger) LogLength() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.LogLength
}

// FirstIndex is the oldest index still held in hot storage
func (l *Ledger) FirstIndex() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.FirstIndex
}

// MintingAccount returns nil when minting and burning are disabled
func (l *Ledger) MintingAccount() *types.Account {
	if l.cfg.MintingAccount == nil {
		return nil
	}
	account := types.NewAccount(l.cfg.MintingAccount.Owner, l.cfg.MintingAccount.Subaccount)
	return &account
}

func (l *Ledger) SupportedStandards() []types.SupportedStandard {
	return []types.SupportedStandard{
		{Name: "ICRC-1", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-1"},
		{Name: "ICRC-2", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-2"},
	}
}

func (l *Ledger) Metadata() []types.MetaDatum {
	return []types.MetaDatum{
		{Key: "icrc1:name", Value: types.TextValue(l.cfg.Name)},
		{Key: "icrc1:symbol", Value: types.TextValue(l.cfg.Symbol)},
		{Key: "icrc1:decimals", Value: types.NatValue(uint256.NewInt(uint64(l.cfg.Decimals)))},
		{Key: "icrc1:fee", Value: types.NatValue(l.cfg.Fee.Clone())},
		{Key: "icrc1:max_memo_length", Value: types.NatValue(uint256.NewInt(uint64(l.cfg.MaxMemoLength)))},
	}
}
