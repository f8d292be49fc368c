package types

import (
	"github.com/holiman/uint256"
)

type TxKind string

const (
	TxKindMint     TxKind = "mint"
	TxKindBurn     TxKind = "burn"
	TxKindTransfer TxKind = "transfer"
	TxKindApprove  TxKind = "approve"
)

// MaxMemoLength is the default memo limit in bytes
const MaxMemoLength = 32

type Mint struct {
	To            Account      `json:"to"`
	Amount        *uint256.Int `json:"amount"`
	Memo          []byte       `json:"memo,omitempty"`
	CreatedAtTime *uint64      `json:"created_at_time,omitempty"`
}

// Burn destroys Amount from From. Spender is set when the burn went through an allowance.
type Burn struct {
	From          Account      `json:"from"`
	Spender       *Account     `json:"spender,omitempty"`
	Amount        *uint256.Int `json:"amount"`
	Memo          []byte       `json:"memo,omitempty"`
	CreatedAtTime *uint64      `json:"created_at_time,omitempty"`
}

// Transfer moves Amount from From to To. Spender is set when the transfer
// was made through an allowance.
type Transfer struct {
	From          Account      `json:"from"`
	To            Account      `json:"to"`
	Spender       *Account     `json:"spender,omitempty"`
	Amount        *uint256.Int `json:"amount"`
	Fee           *uint256.Int `json:"fee,omitempty"`
	Memo          []byte       `json:"memo,omitempty"`
	CreatedAtTime *uint64      `json:"created_at_time,omitempty"`
}

type Approve struct {
	From              Account      `json:"from"`
	Spender           Account      `json:"spender"`
	Amount            *uint256.Int `json:"amount"`
	ExpectedAllowance *uint256.Int `json:"expected_allowance,omitempty"`
	ExpiresAt         *uint64      `json:"expires_at,omitempty"`
	Fee               *uint256.Int `json:"fee,omitempty"`
	Memo              []byte       `json:"memo,omitempty"`
	CreatedAtTime     *uint64      `json:"created_at_time,omitempty"`
}

// Transaction is a settled ledger record. Exactly one payload matching Kind is set.
type Transaction struct {
	Index     uint64    `json:"index"`
	Timestamp uint64    `json:"timestamp"`
	Kind      TxKind    `json:"kind"`
	Mint      *Mint     `json:"mint,omitempty"`
	Burn      *Burn     `json:"burn,omitempty"`
	Transfer  *Transfer `json:"transfer,omitempty"`
	Approve   *Approve  `json:"approve,omitempty"`
}

func (tx *Transaction) Memo() []byte {
	switch tx.Kind {
	case TxKindMint:
		return tx.Mint.Memo
	case TxKindBurn:
		return tx.Burn.Memo
	case TxKindTransfer:
		return tx.Transfer.Memo
	case TxKindApprove:
		return tx.Approve.Memo
	}
	return nil
}

func (tx *Transaction) CreatedAtTime() *uint64 {
	switch tx.Kind {
	case TxKindMint:
		return tx.Mint.CreatedAtTime
	case TxKindBurn:
		return tx.Burn.CreatedAtTime
	case TxKindTransfer:
		return tx.Transfer.CreatedAtTime
	case TxKindApprove:
		return tx.Approve.CreatedAtTime
	}
	return nil
}

// TransactionRange is what an archive returns for a range query
type TransactionRange struct {
	Transactions []*Transaction `json:"transactions"`
}
