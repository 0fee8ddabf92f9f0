// Package usdc implements the 6-decimal fixed-point stable-value amount used
// for task rewards, bonds, balances and allowances.
package usdc

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Decimals is the number of implied fractional digits.
const Decimals = 6

// Unit is one whole token in micro-units.
const Unit Amount = 1_000_000

var (
	// ErrInvalid is returned by Parse for malformed decimal strings.
	ErrInvalid = errors.New("invalid amount")
	// ErrOutOfRange is returned when a ledger integer does not fit an Amount.
	ErrOutOfRange = errors.New("amount out of range")
)

// Amount is a non-negative quantity in micro-units (10^-6 of a token).
// All arithmetic stays integral; only Format produces a decimal rendering.
type Amount int64

// FromBig converts a ledger integer. Negative values and values above
// math.MaxInt64 are rejected.
func FromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil", ErrOutOfRange)
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, v.String())
	}
	return Amount(v.Int64()), nil
}

// Saturating converts a ledger integer, clamping anything above
// math.MaxInt64 to the maximum. Unlimited approvals (2^256-1) therefore still
// compare as "at least" any reward or bond.
func Saturating(v *big.Int) Amount {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if !v.IsInt64() {
		return Amount(math.MaxInt64)
	}
	return Amount(v.Int64())
}

// Big returns a as a ledger integer.
func (a Amount) Big() *big.Int { return big.NewInt(int64(a)) }

// String implements fmt.Stringer using Format.
func (a Amount) String() string { return Format(a) }

// Format renders a with trailing zero fractional digits removed:
// 10000000 -> "10", 10500000 -> "10.5", 12345678 -> "12.345678".
func Format(a Amount) string {
	neg := a < 0
	u := uint64(a)
	if neg {
		u = uint64(-a)
	}
	whole := u / uint64(Unit)
	frac := u % uint64(Unit)

	s := strconv.FormatUint(whole, 10)
	if frac != 0 {
		fs := fmt.Sprintf("%06d", frac)
		s += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Parse reads a non-negative decimal string with at most six fractional
// digits. Parse(Format(a)) == a for every non-negative a.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if len(frac) > Decimals {
		return 0, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalid, Decimals, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	var w uint64
	if whole != "" {
		var err error
		w, err = strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
		}
	}
	var f uint64
	if frac != "" {
		f, _ = strconv.ParseUint(frac+strings.Repeat("0", Decimals-len(frac)), 10, 64)
	}
	if w > (math.MaxInt64-f)/uint64(Unit) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return Amount(w*uint64(Unit) + f), nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
