package token

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount converts a human-readable decimal string into base units for a
// token with the given decimals. The conversion is exact; amounts with more
// fractional digits than the token carries are rejected rather than truncated.
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}

	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if rat.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	return new(big.Int).Set(scaled.Num()), nil
}

// FormatAmount renders base units as a human-readable decimal string with
// trailing zeros trimmed.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	sign := ""
	abs := new(big.Int).Abs(amount)
	if amount.Sign() < 0 {
		sign = "-"
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%0*s", decimals, frac.String()), "0")
	return sign + whole.String() + "." + fracStr
}
