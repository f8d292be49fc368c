package types

import (
	"math/big"

	"github.com/holiman/uint256"
)

type ValueKind string

const (
	ValueInt  ValueKind = "Int"
	ValueNat  ValueKind = "Nat"
	ValueBlob ValueKind = "Blob"
	ValueText ValueKind = "Text"
)

// Value is a tagged metadata value. Only the field matching Kind is meaningful.
type Value struct {
	Kind ValueKind
	Int  *big.Int
	Nat  *uint256.Int
	Blob []byte
	Text string
}

func IntValue(v int64) Value {
	return Value{Kind: ValueInt, Int: big.NewInt(v)}
}

func NatValue(v *uint256.Int) Value {
	return Value{Kind: ValueNat, Nat: v.Clone()}
}

func BlobValue(b []byte) Value {
	return Value{Kind: ValueBlob, Blob: append([]byte(nil), b...)}
}

func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// MetaDatum is a single named metadata entry
type MetaDatum struct {
	Key   string
	Value Value
}

type SupportedStandard struct {
	Name string
	URL  string
}
