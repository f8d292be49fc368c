package events

import (
	"time"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventTransactionCommitted EventType = "TransactionCommitted"
	EventOperationRejected    EventType = "OperationRejected"
	EventTransactionsArchived EventType = "TransactionsArchived"
	EventAccountFreezeToggled EventType = "AccountFreezeToggled"
)

// LedgerEvent represents anything observable that the ledger did
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
}

// TransactionCommitted event when a transaction is appended to the log
type TransactionCommitted struct {
	tx        *types.Transaction
	timestamp time.Time
}

func NewTransactionCommitted(tx *types.Transaction, timestamp time.Time) *TransactionCommitted {
	return &TransactionCommitted{tx: tx, timestamp: timestamp}
}

func (e *TransactionCommitted) Type() EventType {
	return EventTransactionCommitted
}

func (e *TransactionCommitted) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionCommitted) Transaction() *types.Transaction {
	return e.tx
}

// OperationRejected event when an operation fails validation or commit
type OperationRejected struct {
	operation string
	caller    types.Principal
	err       *lerrors.LedgerError
	timestamp time.Time
}

func NewOperationRejected(operation string, caller types.Principal, err *lerrors.LedgerError, timestamp time.Time) *OperationRejected {
	return &OperationRejected{
		operation: operation,
		caller:    caller,
		err:       err,
		timestamp: timestamp,
	}
}

func (e *OperationRejected) Type() EventType {
	return EventOperationRejected
}

func (e *OperationRejected) Timestamp() time.Time {
	return e.timestamp
}

func (e *OperationRejected) Operation() string {
	return e.operation
}

func (e *OperationRejected) Caller() types.Principal {
	return e.caller
}

func (e *OperationRejected) Err() *lerrors.LedgerError {
	return e.err
}

// TransactionsArchived event when a range of records leaves hot storage
type TransactionsArchived struct {
	start     uint64
	length    uint64
	timestamp time.Time
}

func NewTransactionsArchived(start, length uint64, timestamp time.Time) *TransactionsArchived {
	return &TransactionsArchived{start: start, length: length, timestamp: timestamp}
}

func (e *TransactionsArchived) Type() EventType {
	return EventTransactionsArchived
}

func (e *TransactionsArchived) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionsArchived) Start() uint64 {
	return e.start
}

func (e *TransactionsArchived) Length() uint64 {
	return e.length
}

// AccountFreezeToggled event when an admin freezes or unfreezes an owner
type AccountFreezeToggled struct {
	owner     types.Principal
	frozen    bool
	timestamp time.Time
}

func NewAccountFreezeToggled(owner types.Principal, frozen bool, timestamp time.Time) *AccountFreezeToggled {
	return &AccountFreezeToggled{owner: owner, frozen: frozen, timestamp: timestamp}
}

func (e *AccountFreezeToggled) Type() EventType {
	return EventAccountFreezeToggled
}

func (e *AccountFreezeToggled) Timestamp() time.Time {
	return e.timestamp
}

func (e *AccountFreezeToggled) Owner() types.Principal {
	return e.owner
}

func (e *AccountFreezeToggled) Frozen() bool {
	return e.frozen
}
