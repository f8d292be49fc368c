package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ErrorKind names a variant of the ledger error union
type ErrorKind string

const (
	KindGenericError           ErrorKind = "GenericError"
	KindTemporarilyUnavailable ErrorKind = "TemporarilyUnavailable"
	KindDuplicate              ErrorKind = "Duplicate"
	KindBadFee                 ErrorKind = "BadFee"
	KindAllowanceChanged       ErrorKind = "AllowanceChanged"
	KindCreatedInFuture        ErrorKind = "CreatedInFuture"
	KindTooOld                 ErrorKind = "TooOld"
	KindExpired                ErrorKind = "Expired"
	KindInsufficientFunds      ErrorKind = "InsufficientFunds"
	KindInsufficientAllowance  ErrorKind = "InsufficientAllowance"
	KindFrozenAccount          ErrorKind = "FrozenAccount"
	KindBadBurn                ErrorKind = "BadBurn"
)

// Error codes carried by GenericError
const (
	ErrCodeInternal          uint64 = 1
	ErrCodeUnauthorized      uint64 = 2
	ErrCodeBadRequest        uint64 = 3
	ErrCodeMaxSupplyExceeded uint64 = 4
	ErrCodeOverflow          uint64 = 5
)

// LedgerError is the typed result of a rejected ledger operation. Kind selects the
// variant; only the context fields belonging to that variant are set.
type LedgerError struct {
	Kind ErrorKind `json:"kind"`

	Message   string `json:"message,omitempty"`
	ErrorCode uint64 `json:"error_code,omitempty"`

	DuplicateOf      *uint64      `json:"duplicate_of,omitempty"`
	ExpectedFee      *uint256.Int `json:"expected_fee,omitempty"`
	CurrentAllowance *uint256.Int `json:"current_allowance,omitempty"`
	Allowance        *uint256.Int `json:"allowance,omitempty"`
	Balance          *uint256.Int `json:"balance,omitempty"`
	MinBurnAmount    *uint256.Int `json:"min_burn_amount,omitempty"`
	LedgerTime       *uint64      `json:"ledger_time,omitempty"`
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	fields := make([]string, 0, 2)
	if e.Message != "" {
		fields = append(fields, fmt.Sprintf("message=%q", e.Message))
	}
	if e.ErrorCode != 0 {
		fields = append(fields, fmt.Sprintf("error_code=%d", e.ErrorCode))
	}
	if e.DuplicateOf != nil {
		fields = append(fields, fmt.Sprintf("duplicate_of=%d", *e.DuplicateOf))
	}
	if e.ExpectedFee != nil {
		fields = append(fields, "expected_fee="+e.ExpectedFee.Dec())
	}
	if e.CurrentAllowance != nil {
		fields = append(fields, "current_allowance="+e.CurrentAllowance.Dec())
	}
	if e.Allowance != nil {
		fields = append(fields, "allowance="+e.Allowance.Dec())
	}
	if e.Balance != nil {
		fields = append(fields, "balance="+e.Balance.Dec())
	}
	if e.MinBurnAmount != nil {
		fields = append(fields, "min_burn_amount="+e.MinBurnAmount.Dec())
	}
	if e.LedgerTime != nil {
		fields = append(fields, fmt.Sprintf("ledger_time=%d", *e.LedgerTime))
	}
	if len(fields) > 0 {
		b.WriteString("{")
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("}")
	}
	return b.String()
}

// Is matches any LedgerError of the same kind, so the sentinels below work with errors.Is
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is. They carry no context and must not be returned directly.
var (
	ErrGenericError           = &LedgerError{Kind: KindGenericError}
	ErrTemporarilyUnavailable = &LedgerError{Kind: KindTemporarilyUnavailable}
	ErrDuplicate              = &LedgerError{Kind: KindDuplicate}
	ErrBadFee                 = &LedgerError{Kind: KindBadFee}
	ErrAllowanceChanged       = &LedgerError{Kind: KindAllowanceChanged}
	ErrCreatedInFuture        = &LedgerError{Kind: KindCreatedInFuture}
	ErrTooOld                 = &LedgerError{Kind: KindTooOld}
	ErrExpired                = &LedgerError{Kind: KindExpired}
	ErrInsufficientFunds      = &LedgerError{Kind: KindInsufficientFunds}
	ErrInsufficientAllowance  = &LedgerError{Kind: KindInsufficientAllowance}
	ErrFrozenAccount          = &LedgerError{Kind: KindFrozenAccount}
	ErrBadBurn                = &LedgerError{Kind: KindBadBurn}
)

func NewGenericError(code uint64, message string) *LedgerError {
	return &LedgerError{Kind: KindGenericError, ErrorCode: code, Message: message}
}

// NewInternalError reports a storage or other unrecoverable failure as GenericError
func NewInternalError(err error) *LedgerError {
	return NewGenericError(ErrCodeInternal, err.Error())
}

func NewUnauthorized(message string) *LedgerError {
	return NewGenericError(ErrCodeUnauthorized, message)
}

func NewBadRequest(format string, args ...interface{}) *LedgerError {
	return NewGenericError(ErrCodeBadRequest, fmt.Sprintf(format, args...))
}

func NewTemporarilyUnavailable() *LedgerError {
	return &LedgerError{Kind: KindTemporarilyUnavailable}
}

func NewDuplicate(duplicateOf uint64) *LedgerError {
	return &LedgerError{Kind: KindDuplicate, DuplicateOf: &duplicateOf}
}

func NewBadFee(expectedFee *uint256.Int) *LedgerError {
	return &LedgerError{Kind: KindBadFee, ExpectedFee: expectedFee.Clone()}
}

func NewAllowanceChanged(current *uint256.Int) *LedgerError {
	return &LedgerError{Kind: KindAllowanceChanged, CurrentAllowance: current.Clone()}
}

func NewCreatedInFuture(ledgerTime uint64) *LedgerError {
	return &LedgerError{Kind: KindCreatedInFuture, LedgerTime: &ledgerTime}
}

func NewTooOld() *LedgerError {
	return &LedgerError{Kind: KindTooOld}
}

func NewExpired(ledgerTime uint64) *LedgerError {
	return &LedgerError{Kind: KindExpired, LedgerTime: &ledgerTime}
}

func NewInsufficientFunds(balance *uint256.Int) *LedgerError {
	return &LedgerError{Kind: KindInsufficientFunds, Balance: balance.Clone()}
}

func NewInsufficientAllowance(allowance *uint256.Int) *LedgerError {
	return &LedgerError{Kind: KindInsufficientAllowance, Allowance: allowance.Clone()}
}

func NewFrozenAccount() *LedgerError {
	return &LedgerError{Kind: KindFrozenAccount}
}

func NewBadBurn(minBurnAmount *uint256.Int) *LedgerError {
	return &LedgerError{Kind: KindBadBurn, MinBurnAmount: minBurnAmount.Clone()}
}

// AsLedgerError unwraps err to a *LedgerError, converting anything else to an internal GenericError
func AsLedgerError(err error) *LedgerError {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le
	}
	return NewInternalError(err)
}
