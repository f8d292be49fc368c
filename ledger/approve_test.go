package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

func (tl *testLedger) approve(t *testing.T, owner, spender types.Account, amount uint64) uint64 {
	t.Helper()
	index, err := tl.Approve(context.Background(), owner.Owner, ApproveArgs{
		FromSubaccount: owner.Subaccount,
		Spender:        spender,
		Amount:         u(amount),
	})
	require.NoError(t, err)
	return index
}

func (tl *testLedger) allowance(t *testing.T, owner, spender types.Account) *types.Allowance {
	t.Helper()
	a, err := tl.Allowance(owner, spender)
	require.NoError(t, err)
	return a
}

func TestApprove_TransferFromConsumesAllowance(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()

	approveIndex := tl.approve(t, alice, bob, 200)
	assert.Equal(t, uint64(990), tl.balance(t, alice))

	tx, err := tl.GetTransaction(ctx, approveIndex)
	require.NoError(t, err)
	require.Equal(t, types.TxKindApprove, tx.Kind)
	assert.True(t, tx.Approve.Spender.Equal(bob))

	index, err := tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: alice, To: carol, Amount: u(150)})
	require.NoError(t, err)

	assert.Equal(t, u(50), tl.allowance(t, alice, bob).Allowance)
	assert.Equal(t, uint64(830), tl.balance(t, alice))
	assert.Equal(t, uint64(150), tl.balance(t, carol))
	assert.Equal(t, uint64(0), tl.balance(t, bob))

	tx, err = tl.GetTransaction(ctx, index)
	require.NoError(t, err)
	require.Equal(t, types.TxKindTransfer, tx.Kind)
	require.NotNil(t, tx.Transfer.Spender)
	assert.True(t, tx.Transfer.Spender.Equal(bob))
	requireConserved(t, tl)
}

func TestApprove_ReplacesAllowance(t *testing.T) {
	tl := newTestLedger(t, nil)

	tl.approve(t, alice, bob, 200)
	tl.approve(t, alice, bob, 70)
	assert.Equal(t, u(70), tl.allowance(t, alice, bob).Allowance)

	tl.approve(t, alice, bob, 0)
	assert.True(t, tl.allowance(t, alice, bob).Allowance.IsZero())
}

func TestApprove_ExpectedAllowanceMismatch(t *testing.T) {
	tl := newTestLedger(t, nil)

	_, err := tl.Approve(context.Background(), alice.Owner, ApproveArgs{
		Spender:           bob,
		Amount:            u(300),
		ExpectedAllowance: u(100),
	})
	require.ErrorIs(t, err, lerrors.ErrAllowanceChanged)
	assert.True(t, lerrors.AsLedgerError(err).CurrentAllowance.IsZero())

	assert.True(t, tl.allowance(t, alice, bob).Allowance.IsZero())
	assert.Equal(t, uint64(1000), tl.balance(t, alice))

	_, err = tl.Approve(context.Background(), alice.Owner, ApproveArgs{
		Spender:           bob,
		Amount:            u(300),
		ExpectedAllowance: u(0),
	})
	require.NoError(t, err)
	assert.Equal(t, u(300), tl.allowance(t, alice, bob).Allowance)
}

func TestApprove_Rejections(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()
	now := tl.nowNanos()

	_, err := tl.Approve(ctx, alice.Owner, ApproveArgs{Spender: alice, Amount: u(10)})
	require.ErrorIs(t, err, lerrors.ErrGenericError)
	assert.Equal(t, lerrors.ErrCodeBadRequest, lerrors.AsLedgerError(err).ErrorCode)

	_, err = tl.Approve(ctx, alice.Owner, ApproveArgs{Spender: bob, Amount: u(10), ExpiresAt: ptr(now)})
	require.ErrorIs(t, err, lerrors.ErrExpired)
	assert.Equal(t, now, *lerrors.AsLedgerError(err).LedgerTime)

	_, err = tl.Approve(ctx, alice.Owner, ApproveArgs{Spender: bob, Amount: u(10), Fee: u(1)})
	require.ErrorIs(t, err, lerrors.ErrBadFee)

	// the fee must be covered even though the allowance itself may exceed the balance
	_, err = tl.Approve(ctx, carol.Owner, ApproveArgs{Spender: bob, Amount: u(10)})
	require.ErrorIs(t, err, lerrors.ErrInsufficientFunds)
	tl.approve(t, alice, bob, 1_000_000)

	assert.Equal(t, uint64(990), tl.balance(t, alice))
}

func TestApprove_ExpiredAllowanceReadsAsZero(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()

	expiresAt := tl.nowNanos() + uint64(time.Hour)
	_, err := tl.Approve(ctx, alice.Owner, ApproveArgs{Spender: bob, Amount: u(200), ExpiresAt: &expiresAt})
	require.NoError(t, err)

	a := tl.allowance(t, alice, bob)
	assert.Equal(t, u(200), a.Allowance)
	require.NotNil(t, a.ExpiresAt)
	assert.Equal(t, expiresAt, *a.ExpiresAt)

	tl.clock.Add(2 * time.Hour)
	a = tl.allowance(t, alice, bob)
	assert.True(t, a.Allowance.IsZero())
	assert.Nil(t, a.ExpiresAt)

	_, err = tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: alice, To: carol, Amount: u(10)})
	require.ErrorIs(t, err, lerrors.ErrInsufficientAllowance)
	assert.True(t, lerrors.AsLedgerError(err).Allowance.IsZero())
}

func TestTransferFrom_AllowanceCheckedBeforeFunds(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()

	tl.transfer(t, alice, carol, 15)
	tl.approve(t, carol, bob, 100)

	// carol holds 5 after paying the approve fee: the short allowance is reported first
	_, err := tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: carol, To: bob, Amount: u(150)})
	require.ErrorIs(t, err, lerrors.ErrInsufficientAllowance)
	assert.Equal(t, u(100), lerrors.AsLedgerError(err).Allowance)

	_, err = tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: carol, To: bob, Amount: u(50)})
	require.ErrorIs(t, err, lerrors.ErrInsufficientFunds)
	assert.Equal(t, u(5), lerrors.AsLedgerError(err).Balance)

	assert.Equal(t, u(100), tl.allowance(t, carol, bob).Allowance)
}

func TestTransferFrom_ExhaustedAllowanceIsRemoved(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()

	tl.approve(t, alice, bob, 40)
	_, err := tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: alice, To: carol, Amount: u(40)})
	require.NoError(t, err)

	stored, err := tl.stores.Allowances.Get(alice, bob)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTransferFrom_Deduplication(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()
	tl.approve(t, alice, bob, 500)

	args := TransferFromArgs{From: alice, To: carol, Amount: u(100), CreatedAtTime: ptr(tl.nowNanos())}
	first, err := tl.TransferFrom(ctx, bob.Owner, args)
	require.NoError(t, err)

	_, err = tl.TransferFrom(ctx, bob.Owner, args)
	require.ErrorIs(t, err, lerrors.ErrDuplicate)
	assert.Equal(t, first, *lerrors.AsLedgerError(err).DuplicateOf)
	assert.Equal(t, u(400), tl.allowance(t, alice, bob).Allowance)
}

func TestTransferFrom_ToMintingAccountBurns(t *testing.T) {
	tl := newTestLedger(t, nil)
	ctx := context.Background()
	tl.approve(t, alice, bob, 100)

	index, err := tl.TransferFrom(ctx, bob.Owner, TransferFromArgs{From: alice, To: minter, Amount: u(60)})
	require.NoError(t, err)

	tx, err := tl.GetTransaction(ctx, index)
	require.NoError(t, err)
	require.Equal(t, types.TxKindBurn, tx.Kind)
	require.NotNil(t, tx.Burn.Spender)
	assert.True(t, tx.Burn.Spender.Equal(bob))
	assert.Equal(t, uint64(930), tl.balance(t, alice))
	assert.Equal(t, u(40), tl.allowance(t, alice, bob).Allowance)
	requireConserved(t, tl)
}
