// Package address models 20-byte ledger account identifiers.
//
// Ledger addresses are hex strings whose letter case carries no meaning
// (mixed case is only an EIP-55 checksum rendering). Every comparison in this
// module goes through Equal, which lower-cases both sides first.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Zero is the sentinel the ledger uses for "no account" (unassigned task,
// unfilled juror slot).
const Zero Address = "0x0000000000000000000000000000000000000000"

// ErrInvalid is returned by Parse for malformed addresses.
var ErrInvalid = errors.New("invalid address")

// Address is a canonical, lower-case, 0x-prefixed account identifier.
type Address string

// Parse validates s and returns its canonical lower-case form.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	body := strings.ToLower(s[2:])
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return Address("0x" + body), nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Optional parses s and maps the zero sentinel to nil.
func Optional(s string) (*Address, error) {
	a, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if a.IsZero() {
		return nil, nil
	}
	return &a, nil
}

// String returns the address as stored.
func (a Address) String() string { return string(a) }

// IsZero reports whether a is empty or the zero sentinel.
func (a Address) IsZero() bool {
	return a == "" || Equal(string(a), string(Zero))
}

// Equal compares a with b ignoring letter case.
func (a Address) Equal(b Address) bool { return Equal(string(a), string(b)) }

// Equal compares two address strings ignoring letter case. Empty strings
// never match anything, including each other.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.ToLower(a) == strings.ToLower(b)
}

// Checksum renders a in EIP-55 mixed case.
func (a Address) Checksum() string {
	body := strings.TrimPrefix(strings.ToLower(string(a)), "0x")
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(body))
	sum := h.Sum(nil)

	out := []byte(body)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

// Truncate shortens an address for display: 0x1234...abcd.
func Truncate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
