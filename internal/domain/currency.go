package domain

import (
	"math/big"
	"strings"
)

// CurrencyKind distinguishes the chain-native asset from ERC-20 tokens.
type CurrencyKind string

const (
	CurrencyNative CurrencyKind = "NATIVE"
	CurrencyERC20  CurrencyKind = "ERC20"
)

// Currency is a payable asset accepted by the marketplace. At most one active
// NATIVE row exists at a time (enforced by a partial unique index). Rows are
// immutable once referenced by settled records; administrators add new ERC-20
// rows or toggle Active.
type Currency struct {
	ID           string
	Kind         CurrencyKind
	Symbol       string
	Decimals     int
	TokenAddress *string // nil for NATIVE
	Active       bool
}

// IsNative reports whether this is the chain-native asset.
func (c Currency) IsNative() bool {
	return c.Kind == CurrencyNative
}

// AddressOrZero returns the token address, or the zero address for the native
// asset. Signer requests always carry an address field.
func (c Currency) AddressOrZero() string {
	if c.TokenAddress == nil {
		return "0x0000000000000000000000000000000000000000"
	}
	return strings.ToLower(*c.TokenAddress)
}

// Amount pairs an exact base-unit value with the currency it is denominated
// in. A nil CurrencyID means the chain-native asset. Collapsing the two
// per-kind columns of the legacy schema into this pair makes a wrong-column
// read unrepresentable.
type Amount struct {
	Value      *big.Int
	CurrencyID *string // nil = native
}

// NativeAmount builds a native-denominated Amount.
func NativeAmount(v *big.Int) Amount {
	return Amount{Value: v}
}

// TokenAmount builds a token-denominated Amount.
func TokenAmount(currencyID string, v *big.Int) Amount {
	return Amount{Value: v, CurrencyID: &currencyID}
}

// SameCurrency reports whether two nullable currency ids denote the same
// asset (both nil, or equal ids).
func SameCurrency(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
