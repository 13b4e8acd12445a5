// Package money holds the two-decimal rounding and proportional allocation
// rules shared by the settlement components.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every persisted amount carries.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent returns round2(amount * pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// Sum adds the values and rounds the result to cents.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round2(total)
}

// Allocate splits amount across weights proportionally. Each share is rounded
// to cents and the rounding remainder goes to the largest weight (the first
// one on ties), so the shares always sum to round2(amount). When every weight
// is zero the amount is split evenly.
func Allocate(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	if len(weights) == 0 {
		return nil
	}
	amount = Round2(amount)

	total := decimal.Zero
	largest := 0
	for i, w := range weights {
		total = total.Add(w)
		if w.GreaterThan(weights[largest]) {
			largest = i
		}
	}

	shares := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		var share decimal.Decimal
		if total.IsZero() {
			share = amount.Div(decimal.NewFromInt(int64(len(weights))))
		} else {
			share = amount.Mul(w).Div(total)
		}
		shares[i] = Round2(share)
		allocated = allocated.Add(shares[i])
	}

	shares[largest] = shares[largest].Add(amount.Sub(allocated))
	return shares
}
