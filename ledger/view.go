package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/tokenledger/db"
	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/store"
	"github.com/mezonai/tokenledger/types"
)

type balanceEntry struct {
	account types.Account
	balance *uint256.Int
	dirty   bool
}

type allowanceEntry struct {
	owner     types.Account
	spender   types.Account
	allowance *types.Allowance
	dirty     bool
}

// stateView is the overlay one operation works on. Reads fall through to the stores,
// writes stay in memory until flush stages them into the commit batch.
type stateView struct {
	stores     *store.Stores
	meta       *store.LedgerMeta
	balances   map[string]*balanceEntry
	allowances map[string]*allowanceEntry
	// order keeps flush deterministic
	balanceOrder   []string
	allowanceOrder []string
}

func newStateView(stores *store.Stores, meta *store.LedgerMeta) *stateView {
	return &stateView{
		stores:     stores,
		meta:       meta.Clone(),
		balances:   make(map[string]*balanceEntry),
		allowances: make(map[string]*allowanceEntry),
	}
}

func (v *stateView) loadBalance(account types.Account) (*balanceEntry, error) {
	key := account.Key()
	if entry, ok := v.balances[key]; ok {
		return entry, nil
	}
	balance, err := v.stores.Balances.Get(account)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	entry := &balanceEntry{account: account, balance: balance.Clone()}
	v.balances[key] = entry
	v.balanceOrder = append(v.balanceOrder, key)
	return entry, nil
}

func (v *stateView) balance(account types.Account) (*uint256.Int, error) {
	entry, err := v.loadBalance(account)
	if err != nil {
		return nil, err
	}
	return entry.balance.Clone(), nil
}

func (v *stateView) credit(account types.Account, amount *uint256.Int) error {
	entry, err := v.loadBalance(account)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(entry.balance, amount)
	if overflow || !types.InBalanceRange(next) {
		return lerrors.NewGenericError(lerrors.ErrCodeOverflow, fmt.Sprintf("balance of %s would overflow", account))
	}
	entry.balance = next
	entry.dirty = true
	return nil
}

func (v *stateView) debit(account types.Account, amount *uint256.Int) error {
	entry, err := v.loadBalance(account)
	if err != nil {
		return err
	}
	if entry.balance.Lt(amount) {
		return lerrors.NewInsufficientFunds(entry.balance)
	}
	entry.balance = new(uint256.Int).Sub(entry.balance, amount)
	entry.dirty = true
	return nil
}

func (v *stateView) loadAllowance(owner, spender types.Account) (*allowanceEntry, error) {
	key := owner.Key() + "|" + spender.Key()
	if entry, ok := v.allowances[key]; ok {
		return entry, nil
	}
	allowance, err := v.stores.Allowances.Get(owner, spender)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	entry := &allowanceEntry{owner: owner, spender: spender, allowance: allowance}
	v.allowances[key] = entry
	v.allowanceOrder = append(v.allowanceOrder, key)
	return entry, nil
}

// allowance returns the effective allowance at now. An expired entry reads as zero
// and is scheduled for removal.
func (v *stateView) allowance(owner, spender types.Account, now uint64) (*types.Allowance, error) {
	entry, err := v.loadAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if entry.allowance == nil {
		return zeroAllowance(), nil
	}
	if entry.allowance.Expired(now) {
		entry.allowance = nil
		entry.dirty = true
		return zeroAllowance(), nil
	}
	return &types.Allowance{Allowance: entry.allowance.Allowance.Clone(), ExpiresAt: entry.allowance.ExpiresAt}, nil
}

func (v *stateView) setAllowance(owner, spender types.Account, allowance *types.Allowance) error {
	entry, err := v.loadAllowance(owner, spender)
	if err != nil {
		return err
	}
	entry.allowance = allowance
	entry.dirty = true
	return nil
}

// flush stages every modified balance and allowance into batch
func (v *stateView) flush(batch db.DatabaseBatch) error {
	for _, key := range v.balanceOrder {
		entry := v.balances[key]
		if !entry.dirty {
			continue
		}
		if err := v.stores.Balances.StageSet(batch, entry.account, entry.balance); err != nil {
			return err
		}
	}
	for _, key := range v.allowanceOrder {
		entry := v.allowances[key]
		if !entry.dirty {
			continue
		}
		if entry.allowance == nil {
			v.stores.Allowances.StageDelete(batch, entry.owner, entry.spender)
			continue
		}
		if err := v.stores.Allowances.StageSet(batch, entry.owner, entry.spender, entry.allowance); err != nil {
			return err
		}
	}
	return nil
}

func zeroAllowance() *types.Allowance {
	return &types.Allowance{Allowance: new(uint256.Int)}
}
