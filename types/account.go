package types

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// MaxPrincipalLength is the longest owner identity accepted by the ledger
	MaxPrincipalLength = 29

	SubaccountSize = 32
)

// Principal is an opaque owner identity. The underlying string holds raw bytes;
// the textual form is base58.
type Principal string

// Anonymous is the principal of unauthenticated callers
const Anonymous Principal = ""

func PrincipalFromBytes(b []byte) (Principal, error) {
	if len(b) > MaxPrincipalLength {
		return Anonymous, fmt.Errorf("principal too long: %d bytes", len(b))
	}
	return Principal(b), nil
}

// PrincipalFromText decodes the base58 textual form of a principal
func PrincipalFromText(text string) (Principal, error) {
	if text == "" {
		return Anonymous, nil
	}
	raw, err := base58.Decode(text)
	if err != nil {
		return Anonymous, fmt.Errorf("failed to decode principal %q: %w", text, err)
	}
	return PrincipalFromBytes(raw)
}

func MustPrincipalFromText(text string) Principal {
	p, err := PrincipalFromText(text)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Principal) Bytes() []byte {
	return []byte(p)
}

func (p Principal) IsAnonymous() bool {
	return p == Anonymous
}

func (p Principal) String() string {
	return base58.Encode([]byte(p))
}

func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	decoded, err := PrincipalFromText(string(text))
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Subaccount distinguishes sub-wallets under one owner
type Subaccount [SubaccountSize]byte

// DefaultSubaccount is the all-zero subaccount an absent subaccount resolves to
var DefaultSubaccount Subaccount

// SubaccountFromBytes returns nil for empty input and an error unless exactly 32 bytes are given
func SubaccountFromBytes(b []byte) (*Subaccount, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != SubaccountSize {
		return nil, fmt.Errorf("subaccount must be %d bytes, got %d", SubaccountSize, len(b))
	}
	var sub Subaccount
	copy(sub[:], b)
	return &sub, nil
}

func SubaccountFromHex(s string) (*Subaccount, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode subaccount %q: %w", s, err)
	}
	return SubaccountFromBytes(raw)
}

func (s Subaccount) IsDefault() bool {
	return s == DefaultSubaccount
}

func (s Subaccount) String() string {
	return hex.EncodeToString(s[:])
}

func (s Subaccount) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Subaccount) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("failed to decode subaccount: %w", err)
	}
	if len(raw) != SubaccountSize {
		return fmt.Errorf("subaccount must be %d bytes, got %d", SubaccountSize, len(raw))
	}
	copy(s[:], raw)
	return nil
}

// Account is an owner plus an optional subaccount. It is a value type; two accounts
// are equal when their owners match and their effective subaccounts match.
type Account struct {
	Owner      Principal   `json:"owner" yaml:"owner"`
	Subaccount *Subaccount `json:"subaccount,omitempty" yaml:"subaccount,omitempty"`
}

func NewAccount(owner Principal, sub *Subaccount) Account {
	if sub != nil {
		cp := *sub
		sub = &cp
	}
	return Account{Owner: owner, Subaccount: sub}
}

// EffectiveSubaccount resolves an absent subaccount to the all-zero value
func (a Account) EffectiveSubaccount() Subaccount {
	if a.Subaccount == nil {
		return DefaultSubaccount
	}
	return *a.Subaccount
}

func (a Account) Equal(other Account) bool {
	return a.Owner == other.Owner && a.EffectiveSubaccount() == other.EffectiveSubaccount()
}

// Key is the canonical identity of the account, stable across absent and all-zero subaccounts
func (a Account) Key() string {
	sub := a.EffectiveSubaccount()
	var buf bytes.Buffer
	buf.WriteString(a.Owner.String())
	buf.WriteByte('.')
	buf.WriteString(hex.EncodeToString(sub[:]))
	return buf.String()
}

func (a Account) String() string {
	if a.Subaccount == nil || a.Subaccount.IsDefault() {
		return a.Owner.String()
	}
	return a.Owner.String() + "." + a.Subaccount.String()
}
