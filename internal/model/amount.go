package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// tokenScale is the fixed 18-decimal scale used for every supported token.
const tokenScale = 18

// ParseAmount converts a human decimal string into wei, truncating toward
// zero so a rounding artifact can never overspend. Non-numeric or
// non-positive inputs fail with InvalidAmount.
func ParseAmount(input string) (*big.Int, error) {
	d, err := decimal.NewFromString(input)
	if err != nil {
		return nil, Errf(KindInvalidAmount, "invalid amount %q", input)
	}
	if d.Sign() <= 0 {
		return nil, Errf(KindInvalidAmount, "amount must be positive, got %s", d)
	}
	wei := d.Shift(tokenScale).Truncate(0).BigInt()
	if wei.Sign() <= 0 {
		return nil, Errf(KindInvalidAmount, "amount %s is below one wei", d)
	}
	return wei, nil
}

// ApplySlippage scales amount by (10000 - bps) / 10000, flooring the result.
func ApplySlippage(amount *big.Int, bps uint) *big.Int {
	if amount == nil {
		return nil
	}
	if bps >= 10000 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(10000-bps)))
	return out.Div(out, big.NewInt(10000))
}

// FormatWei renders a wei amount as a human decimal string.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -tokenScale).String()
}
