// Package money holds the rounding rules for rupee amounts.
package money

import "github.com/shopspring/decimal"

// Places is the currency precision persisted in numeric(12,2) columns.
const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// Round rounds to two places, half away from zero. For the non-negative
// amounts handled here this is half-up.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Percent returns round(amount × pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(hundred))
}

// ToPaise converts a rupee amount into the smallest currency unit used by gateways.
func ToPaise(amount decimal.Decimal) int64 {
	return Round(amount).Mul(hundred).IntPart()
}

// FromPaise converts a gateway amount back into rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(hundred)
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
