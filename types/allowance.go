package types

import "github.com/holiman/uint256"

type Allowance struct {
	Allowance *uint256.Int `json:"allowance"`
	ExpiresAt *uint64      `json:"expires_at,omitempty"`
}

// Expired reports whether the allowance no longer applies at ledger time now
func (a *Allowance) Expired(now uint64) bool {
	return a.ExpiresAt != nil && *a.ExpiresAt <= now
}

// MaxBalance bounds balances, allowances and supply to the 128-bit range
var MaxBalance = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// InBalanceRange reports whether v fits in the 128-bit balance range
func InBalanceRange(v *uint256.Int) bool {
	return v.Cmp(MaxBalance) <= 0
}
