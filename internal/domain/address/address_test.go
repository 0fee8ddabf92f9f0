package address

import (
	"errors"
	"testing"
)

func TestParseCanonicalizes(t *testing.T) {
	a, err := Parse("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" {
		t.Fatalf("got %s", a)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "0x12", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", "0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) = %v, want ErrInvalid", in, err)
		}
	}
}

func TestEqualIgnoresCase(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0xABCDEF0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000001", true},
		{"0xAbCdEf0000000000000000000000000000000001", "0xaBcDeF0000000000000000000000000000000001", true},
		{"0xabcdef0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000002", false},
		{"", "", false},
		{"0xabcdef0000000000000000000000000000000001", "", false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOptionalMapsZeroToNil(t *testing.T) {
	got, err := Optional("0x0000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for zero address, got %v", *got)
	}

	got, err = Optional("0x00000000000000000000000000000000000000A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != "0x00000000000000000000000000000000000000a1" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestChecksum(t *testing.T) {
	// EIP-55 reference vectors.
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		a := MustParse(want)
		if got := a.Checksum(); got != want {
			t.Errorf("Checksum(%s) = %s, want %s", a, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("0xec8419C9F4509d5e83E4329721cFCb9f27f6B649"); got != "0xec84...B649" {
		t.Fatalf("got %s", got)
	}
	if got := Truncate("0x1234"); got != "0x1234" {
		t.Fatalf("short input should pass through, got %s", got)
	}
}
