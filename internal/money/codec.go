// Package money implements exact integer arithmetic and formatting for
// base-unit token amounts. Amounts are unbounded-precision base-10 integers;
// nothing in this package ever passes through a float.
package money

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseBaseUnits parses a strict base-10 integer string (optional leading
// sign) into a big.Int. It rejects decimals, whitespace and hex.
func ParseBaseUnits(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("money: empty amount")
	}
	body := s
	if body[0] == '+' || body[0] == '-' {
		body = body[1:]
	}
	if body == "" || !isDigits(body) {
		return nil, fmt.Errorf("money: %q is not a base-unit integer", s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("money: %q is not a base-unit integer", s)
	}
	return v, nil
}

// BaseUnitsToDisplay renders a base-unit integer string as a human decimal at
// the given number of decimals. Trailing fractional zeros are stripped;
// "0" stays "0"; the sign of negative inputs is preserved.
func BaseUnitsToDisplay(raw string, decimals int) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("money: negative decimals %d", decimals)
	}
	neg := false
	body := raw
	switch {
	case strings.HasPrefix(raw, "-"):
		neg = true
		body = raw[1:]
	case strings.HasPrefix(raw, "+"):
		body = raw[1:]
	}
	if body == "" || !isDigits(body) {
		return "", fmt.Errorf("money: %q is not a base-unit integer", raw)
	}
	body = strings.TrimLeft(body, "0")
	if body == "" {
		return "0", nil
	}

	// Pad so there is always at least one digit left of the point.
	if len(body) < decimals+1 {
		body = strings.Repeat("0", decimals+1-len(body)) + body
	}

	intPart := body[:len(body)-decimals]
	fracPart := strings.TrimRight(body[len(body)-decimals:], "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out, nil
}

// DisplayToBaseUnits is the inverse of BaseUnitsToDisplay: it rescales a
// decimal display string back to a base-unit integer string. Fractional
// digits beyond the given decimals are rejected, not rounded.
func DisplayToBaseUnits(display string, decimals int) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("money: negative decimals %d", decimals)
	}
	neg := false
	body := display
	switch {
	case strings.HasPrefix(display, "-"):
		neg = true
		body = display[1:]
	case strings.HasPrefix(display, "+"):
		body = display[1:]
	}

	intPart := body
	fracPart := ""
	if i := strings.IndexByte(body, '.'); i >= 0 {
		intPart, fracPart = body[:i], body[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return "", fmt.Errorf("money: %q is not a decimal amount", display)
	}
	if len(fracPart) > decimals {
		return "", fmt.Errorf("money: %q has more than %d fractional digits", display, decimals)
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if neg {
		combined = "-" + combined
	}
	return combined, nil
}

// NormalizeIntegerString canonicalizes numeric input that upstream sources
// (ORM decimal columns, JSON numbers) may serialize in fixed or exponential
// form. Fractional remainders are truncated toward zero. Unparseable or
// sub-unit input yields "0".
func NormalizeIntegerString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	mantissa := s
	exp := 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		expStr := s[i+1:]
		if expStr == "" {
			return "0"
		}
		expNeg := false
		switch expStr[0] {
		case '+':
			expStr = expStr[1:]
		case '-':
			expNeg = true
			expStr = expStr[1:]
		}
		if expStr == "" || !isDigits(expStr) || len(expStr) > 6 {
			return "0"
		}
		for _, c := range expStr {
			exp = exp*10 + int(c-'0')
		}
		if expNeg {
			exp = -exp
		}
	}

	intPart := mantissa
	fracPart := ""
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart, fracPart = mantissa[:i], mantissa[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return "0"
	}

	// Shift the point right by exp: digits before the (virtual) point are
	// intPart plus the first exp fractional digits.
	digits := intPart + fracPart
	pointPos := len(intPart) + exp
	if pointPos <= 0 {
		return "0" // pure fraction, truncates to zero
	}
	if pointPos >= len(digits) {
		digits += strings.Repeat("0", pointPos-len(digits))
	} else {
		digits = digits[:pointPos] // truncate fractional remainder
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0"
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// MulDivFloor returns floor(a*b/div) exactly. Intermediates are arbitrary
// precision; div must be positive.
func MulDivFloor(a, b, div *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	return prod.Div(prod, div) // big.Int.Div floors for positive divisors
}

// MulDivCeil returns ceil(a*b/div) exactly; div must be positive. Used for
// USD-target fee pricing where rounding down would undercharge.
func MulDivCeil(a, b, div *big.Int) *big.Int {
	prod := new(big.Int).Mul(a, b)
	q, m := new(big.Int).DivMod(prod, div, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
