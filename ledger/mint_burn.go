package ledger

import (
	"bytes"
	"context"

	"github.com/holiman/uint256"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

type MintArgs struct {
	To            types.Account
	Amount        *uint256.Int
	Memo          []byte
	CreatedAtTime *uint64
}

type BurnArgs struct {
	FromSubaccount *types.Subaccount
	Amount         *uint256.Int
	Memo           []byte
	CreatedAtTime  *uint64
}

// Mint creates Amount new tokens in To. Only the owner of the minting account may mint.
func (l *Ledger) Mint(ctx context.Context, caller types.Principal, args MintArgs) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.mintByCaller(caller, args)
	if err != nil {
		return 0, l.reject(OpMint, caller, err)
	}
	return index, nil
}

func (l *Ledger) mintByCaller(caller types.Principal, args MintArgs) (uint64, error) {
	if l.cfg.MintingAccount == nil {
		return 0, lerrors.NewTemporarilyUnavailable()
	}
	if caller != l.cfg.MintingAccount.Owner {
		return 0, lerrors.NewUnauthorized("only the minting account owner can mint")
	}
	if err := validateAmount(args.Amount); err != nil {
		return 0, err
	}
	if err := l.validateMemo(args.Memo); err != nil {
		return 0, err
	}
	if l.isFrozenLocked(args.To.Owner) {
		return 0, lerrors.NewFrozenAccount()
	}
	if l.isMintingAccount(args.To) {
		return 0, lerrors.NewBadRequest("cannot mint to the minting account")
	}
	return l.mintLocked(*l.cfg.MintingAccount, args.To, args.Amount, nil, args.Memo, args.CreatedAtTime, l.now())
}

// mintLocked credits to with fresh tokens, deduplicated under the minting account submitter
func (l *Ledger) mintLocked(submitter, to types.Account, amount, fee *uint256.Int, memo []byte, createdAtTime *uint64, now uint64) (uint64, error) {
	if fee != nil && !fee.IsZero() {
		return 0, lerrors.NewBadFee(new(uint256.Int))
	}
	if err := l.window.Check(submitter, memo, createdAtTime, now); err != nil {
		return 0, err
	}

	view := newStateView(l.stores, l.meta)
	minted, overflow := new(uint256.Int).AddOverflow(view.meta.TotalSupply, view.meta.BurnedTokens)
	if !overflow {
		_, overflow = minted.AddOverflow(minted, amount)
	}
	if overflow || !types.InBalanceRange(minted) {
		return 0, lerrors.NewGenericError(lerrors.ErrCodeOverflow, "total supply would overflow")
	}
	if !l.cfg.MaxSupply.IsZero() && minted.Gt(l.cfg.MaxSupply) {
		return 0, lerrors.NewGenericError(lerrors.ErrCodeMaxSupplyExceeded, "mint would exceed max supply "+l.cfg.MaxSupply.Dec())
	}

	if err := view.credit(to, amount); err != nil {
		return 0, err
	}
	view.meta.TotalSupply.Add(view.meta.TotalSupply, amount)

	tx := &types.Transaction{
		Kind: types.TxKindMint,
		Mint: &types.Mint{
			To:            to,
			Amount:        amount.Clone(),
			Memo:          bytes.Clone(memo),
			CreatedAtTime: cloneTime(createdAtTime),
		},
	}
	return l.commit(OpMint, view, submitter, tx, now)
}

// Burn destroys Amount tokens from the caller's account. No fee is charged.
func (l *Ledger) Burn(ctx context.Context, caller types.Principal, args BurnArgs) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.burnByCaller(caller, args)
	if err != nil {
		return 0, l.reject(OpBurn, caller, err)
	}
	return index, nil
}

func (l *Ledger) burnByCaller(caller types.Principal, args BurnArgs) (uint64, error) {
	if l.cfg.MintingAccount == nil {
		return 0, lerrors.NewTemporarilyUnavailable()
	}
	if err := validateAmount(args.Amount); err != nil {
		return 0, err
	}
	if err := l.validateMemo(args.Memo); err != nil {
		return 0, err
	}

	from := types.NewAccount(caller, args.FromSubaccount)
	if l.isFrozenLocked(from.Owner) {
		return 0, lerrors.NewFrozenAccount()
	}
	if l.isMintingAccount(from) {
		return 0, lerrors.NewBadRequest("the minting account holds no balance to burn")
	}
	return l.burnLocked(from, args.Amount, nil, args.Memo, args.CreatedAtTime, l.now())
}

func (l *Ledger) burnLocked(from types.Account, amount, fee *uint256.Int, memo []byte, createdAtTime *uint64, now uint64) (uint64, error) {
	if fee != nil && !fee.IsZero() {
		return 0, lerrors.NewBadFee(new(uint256.Int))
	}
	if amount.Lt(l.cfg.MinBurnAmount) {
		return 0, lerrors.NewBadBurn(l.cfg.MinBurnAmount)
	}
	if err := l.window.Check(from, memo, createdAtTime, now); err != nil {
		return 0, err
	}

	view := newStateView(l.stores, l.meta)
	if err := view.debit(from, amount); err != nil {
		return 0, err
	}
	view.meta.TotalSupply.Sub(view.meta.TotalSupply, amount)
	view.meta.BurnedTokens.Add(view.meta.BurnedTokens, amount)

	tx := &types.Transaction{
		Kind: types.TxKindBurn,
		Burn: &types.Burn{
			From:          from,
			Amount:        amount.Clone(),
			Memo:          bytes.Clone(memo),
			CreatedAtTime: cloneTime(createdAtTime),
		},
	}
	return l.commit(OpBurn, view, from, tx, now)
}
