package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Classify derives the swap type from the two quantities that decide it.
// A swap is BUY only when token0 went in and token1 came out. Every other
// combination, including both zero, is SELL.
func Classify(amount0In, amount1Out string) (SwapType, error) {
	in0, err := decimal.NewFromString(amount0In)
	if err != nil {
		return "", fmt.Errorf("parse amount0In %q: %w", amount0In, err)
	}
	out1, err := decimal.NewFromString(amount1Out)
	if err != nil {
		return "", fmt.Errorf("parse amount1Out %q: %w", amount1Out, err)
	}

	if in0.IsPositive() && out1.IsPositive() {
		return SwapTypeBuy, nil
	}
	return SwapTypeSell, nil
}

// ValidDecimal reports whether s is decimal text the indexer could have sent.
func ValidDecimal(s string) bool {
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}
