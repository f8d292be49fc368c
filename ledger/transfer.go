package ledger

import (
	"bytes"
	"context"

	"github.com/holiman/uint256"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

type TransferArgs struct {
	FromSubaccount *types.Subaccount
	To             types.Account
	Amount         *uint256.Int
	// Fee, when set, must equal the ledger fee
	Fee           *uint256.Int
	Memo          []byte
	CreatedAtTime *uint64
}

type TransferFromArgs struct {
	SpenderSubaccount *types.Subaccount
	From              types.Account
	To                types.Account
	Amount            *uint256.Int
	Fee               *uint256.Int
	Memo              []byte
	CreatedAtTime     *uint64
}

// Transfer moves Amount from the caller's account to To and returns the new record's index.
// A transfer out of the minting account is a mint; a transfer into it is a burn.
func (l *Ledger) Transfer(ctx context.Context, caller types.Principal, args TransferArgs) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.transferLocked(caller, args)
	if err != nil {
		return 0, l.reject(OpTransfer, caller, err)
	}
	return index, nil
}

func (l *Ledger) transferLocked(caller types.Principal, args TransferArgs) (uint64, error) {
	if err := validateAmount(args.Amount); err != nil {
		return 0, err
	}
	if err := l.validateMemo(args.Memo); err != nil {
		return 0, err
	}

	from := types.NewAccount(caller, args.FromSubaccount)
	to := args.To
	now := l.now()

	if l.isFrozenLocked(from.Owner, to.Owner) {
		return 0, lerrors.NewFrozenAccount()
	}

	fromMinter, toMinter := l.isMintingAccount(from), l.isMintingAccount(to)
	switch {
	case fromMinter && toMinter:
		return 0, lerrors.NewBadRequest("the minting account cannot transfer to itself")
	case fromMinter:
		return l.mintLocked(from, to, args.Amount, args.Fee, args.Memo, args.CreatedAtTime, now)
	case toMinter:
		return l.burnLocked(from, args.Amount, args.Fee, args.Memo, args.CreatedAtTime, now)
	}

	fee := l.cfg.Fee
	if err := checkFee(args.Fee, fee); err != nil {
		return 0, err
	}
	if err := l.window.Check(from, args.Memo, args.CreatedAtTime, now); err != nil {
		return 0, err
	}

	view := newStateView(l.stores, l.meta)
	if err := l.debitWithFee(view, from, args.Amount, fee); err != nil {
		return 0, err
	}
	if err := view.credit(to, args.Amount); err != nil {
		return 0, err
	}

	tx := &types.Transaction{
		Kind: types.TxKindTransfer,
		Transfer: &types.Transfer{
			From:          from,
			To:            to,
			Amount:        args.Amount.Clone(),
			Fee:           fee.Clone(),
			Memo:          bytes.Clone(args.Memo),
			CreatedAtTime: cloneTime(args.CreatedAtTime),
		},
	}
	return l.commit(OpTransfer, view, from, tx, now)
}

// TransferFrom moves Amount from From to To on behalf of the caller, consuming the
// allowance From granted to the caller's account. The fee is paid by From.
func (l *Ledger) TransferFrom(ctx context.Context, caller types.Principal, args TransferFromArgs) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.transferFromLocked(caller, args)
	if err != nil {
		return 0, l.reject(OpTransferFrom, caller, err)
	}
	return index, nil
}

func (l *Ledger) transferFromLocked(caller types.Principal, args TransferFromArgs) (uint64, error) {
	if err := validateAmount(args.Amount); err != nil {
		return 0, err
	}
	if err := l.validateMemo(args.Memo); err != nil {
		return 0, err
	}

	spender := types.NewAccount(caller, args.SpenderSubaccount)
	from, to := args.From, args.To
	now := l.now()

	if l.isFrozenLocked(from.Owner, to.Owner, spender.Owner) {
		return 0, lerrors.NewFrozenAccount()
	}
	if l.isMintingAccount(from) {
		return 0, lerrors.NewBadRequest("the minting account cannot be spent from")
	}

	toMinter := l.isMintingAccount(to)
	fee := l.cfg.Fee
	if toMinter {
		if args.Fee != nil && !args.Fee.IsZero() {
			return 0, lerrors.NewBadFee(new(uint256.Int))
		}
		fee = new(uint256.Int)
		if args.Amount.Lt(l.cfg.MinBurnAmount) {
			return 0, lerrors.NewBadBurn(l.cfg.MinBurnAmount)
		}
	} else if err := checkFee(args.Fee, fee); err != nil {
		return 0, err
	}

	if err := l.window.Check(spender, args.Memo, args.CreatedAtTime, now); err != nil {
		return 0, err
	}

	view := newStateView(l.stores, l.meta)
	// spending your own account needs no allowance
	selfSpend := spender.Equal(from)
	if !selfSpend {
		if err := l.consumeAllowance(view, from, spender, args.Amount, now); err != nil {
			return 0, err
		}
	}
	if err := l.debitWithFee(view, from, args.Amount, fee); err != nil {
		return 0, err
	}

	var recordSpender *types.Account
	if !selfSpend {
		recordSpender = &spender
	}

	if toMinter {
		view.meta.TotalSupply.Sub(view.meta.TotalSupply, args.Amount)
		view.meta.BurnedTokens.Add(view.meta.BurnedTokens, args.Amount)
		tx := &types.Transaction{
			Kind: types.TxKindBurn,
			Burn: &types.Burn{
				From:          from,
				Spender:       recordSpender,
				Amount:        args.Amount.Clone(),
				Memo:          bytes.Clone(args.Memo),
				CreatedAtTime: cloneTime(args.CreatedAtTime),
			},
		}
		return l.commit(OpTransferFrom, view, spender, tx, now)
	}

	if err := view.credit(to, args.Amount); err != nil {
		return 0, err
	}
	tx := &types.Transaction{
		Kind: types.TxKindTransfer,
		Transfer: &types.Transfer{
			From:          from,
			To:            to,
			Spender:       recordSpender,
			Amount:        args.Amount.Clone(),
			Fee:           fee.Clone(),
			Memo:          bytes.Clone(args.Memo),
			CreatedAtTime: cloneTime(args.CreatedAtTime),
		},
	}
	return l.commit(OpTransferFrom, view, spender, tx, now)
}

// debitWithFee takes amount plus fee from account, failing as a whole when the balance does not cover both
func (l *Ledger) debitWithFee(view *stateView, account types.Account, amount, fee *uint256.Int) error {
	total, overflow := new(uint256.Int).AddOverflow(amount, fee)
	balance, err := view.balance(account)
	if err != nil {
		return err
	}
	if overflow || balance.Lt(total) {
		return lerrors.NewInsufficientFunds(balance)
	}
	if err := view.debit(account, amount); err != nil {
		return err
	}
	return l.chargeFee(view, account, fee)
}
