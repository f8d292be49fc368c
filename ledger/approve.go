package ledger

import (
	"bytes"
	"context"

	"github.com/holiman/uint256"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

type ApproveArgs struct {
	FromSubaccount *types.Subaccount
	Spender        types.Account
	Amount         *uint256.Int
	// ExpectedAllowance, when set, must match the current allowance for the approval to apply
	ExpectedAllowance *uint256.Int
	ExpiresAt         *uint64
	Fee               *uint256.Int
	Memo              []byte
	CreatedAtTime     *uint64
}

// Approve replaces the allowance the caller's account grants to Spender. The fee is
// charged to the caller even though no tokens move.
func (l *Ledger) Approve(ctx context.Context, caller types.Principal, args ApproveArgs) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.approveLocked(caller, args)
	if err != nil {
		return 0, l.reject(OpApprove, caller, err)
	}
	return index, nil
}

func (l *Ledger) approveLocked(caller types.Principal, args ApproveArgs) (uint64, error) {
	if err := validateAmount(args.Amount); err != nil {
		return 0, err
	}
	if args.ExpectedAllowance != nil && !types.InBalanceRange(args.ExpectedAllowance) {
		return 0, lerrors.NewBadRequest("expected allowance exceeds the 128-bit range")
	}
	if err := l.validateMemo(args.Memo); err != nil {
		return 0, err
	}

	from := types.NewAccount(caller, args.FromSubaccount)
	spender := args.Spender
	now := l.now()

	if from.Equal(spender) {
		return 0, lerrors.NewBadRequest("an account cannot approve itself")
	}
	if l.isFrozenLocked(from.Owner, spender.Owner) {
		return 0, lerrors.NewFrozenAccount()
	}
	if l.isMintingAccount(from) {
		return 0, lerrors.NewBadRequest("the minting account cannot grant allowances")
	}

	fee := l.cfg.Fee
	if err := checkFee(args.Fee, fee); err != nil {
		return 0, err
	}
	if args.ExpiresAt != nil && *args.ExpiresAt <= now {
		return 0, lerrors.NewExpired(now)
	}
	if err := l.window.Check(from, args.Memo, args.CreatedAtTime, now); err != nil {
		return 0, err
	}

	view := newStateView(l.stores, l.meta)
	balance, err := view.balance(from)
	if err != nil {
		return 0, err
	}
	if balance.Lt(fee) {
		return 0, lerrors.NewInsufficientFunds(balance)
	}

	current, err := view.allowance(from, spender, now)
	if err != nil {
		return 0, err
	}
	if args.ExpectedAllowance != nil && !args.ExpectedAllowance.Eq(current.Allowance) {
		return 0, lerrors.NewAllowanceChanged(current.Allowance)
	}

	if err := l.chargeFee(view, from, fee); err != nil {
		return 0, err
	}
	var next *types.Allowance
	if !args.Amount.IsZero() {
		next = &types.Allowance{Allowance: args.Amount.Clone(), ExpiresAt: args.ExpiresAt}
	}
	if err := view.setAllowance(from, spender, next); err != nil {
		return 0, err
	}

	tx := &types.Transaction{
		Kind: types.TxKindApprove,
		Approve: &types.Approve{
			From:              from,
			Spender:           spender,
			Amount:            args.Amount.Clone(),
			ExpectedAllowance: cloneOrNil(args.ExpectedAllowance),
			ExpiresAt:         cloneTime(args.ExpiresAt),
			Fee:               fee.Clone(),
			Memo:              bytes.Clone(args.Memo),
			CreatedAtTime:     cloneTime(args.CreatedAtTime),
		},
	}
	return l.commit(OpApprove, view, from, tx, now)
}

// consumeAllowance lowers the allowance owner granted spender by amount. An expired or
// short allowance fails with InsufficientAllowance and changes nothing.
func (l *Ledger) consumeAllowance(view *stateView, owner, spender types.Account, amount *uint256.Int, now uint64) error {
	current, err := view.allowance(owner, spender, now)
	if err != nil {
		return err
	}
	if current.Allowance.Lt(amount) {
		return lerrors.NewInsufficientAllowance(current.Allowance)
	}

	remaining := new(uint256.Int).Sub(current.Allowance, amount)
	if remaining.IsZero() {
		return view.setAllowance(owner, spender, nil)
	}
	return view.setAllowance(owner, spender, &types.Allowance{Allowance: remaining, ExpiresAt: current.ExpiresAt})
}

// Allowance returns what owner currently lets spender move. An absent or expired
// allowance reads as zero with no expiry.
func (l *Ledger) Allowance(owner, spender types.Account) (*types.Allowance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	allowance, err := l.stores.Allowances.Get(owner, spender)
	if err != nil {
		return nil, lerrors.NewInternalError(err)
	}
	if allowance == nil || allowance.Expired(l.now()) {
		return zeroAllowance(), nil
	}
	return allowance, nil
}

func cloneTime(t *uint64) *uint64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneOrNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}
