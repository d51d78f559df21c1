package token

import (
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.5", 18, "500000000000000000"},
		{"100", 6, "100000000"},
		{"97.51", 6, "97510000"},
		{"0.000001", 6, "1"},
		{"42", 0, "42"},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ParseAmount(%q, %d): %v", tc.in, tc.decimals, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseAmount(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestParseAmountRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0", "0.0000001"} {
		if _, err := ParseAmount(in, 6); err == nil {
			t.Fatalf("ParseAmount(%q) should fail", in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"97510000", 6, "97.51"},
		{"500000000000000000", 18, "0.5"},
		{"1", 6, "0.000001"},
		{"42", 0, "42"},
	}
	for _, tc := range cases {
		v, ok := new(big.Int).SetString(tc.in, 10)
		if !ok {
			t.Fatalf("bad test input %q", tc.in)
		}
		if got := FormatAmount(v, tc.decimals); got != tc.want {
			t.Fatalf("FormatAmount(%s, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	v, err := ParseAmount("98", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := FormatAmount(v, 18); got != "98" {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := DefaultRegistry()

	info, err := r.Resolve(1, "usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Decimals != 6 {
		t.Fatalf("mainnet USDC decimals = %d, want 6", info.Decimals)
	}

	if _, err := r.Resolve(1, "NOPE"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
	if _, err := r.Resolve(424242, "USDC"); err == nil {
		t.Fatalf("expected error for unknown chain")
	}
}
