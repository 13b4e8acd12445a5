package commission

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/money"
)

var maxPercentage = decimal.NewFromInt(100)

// Breakdown is the split of an amount between the platform and the vendor.
type Breakdown struct {
	OrderTotal       decimal.Decimal `json:"orderTotal"`
	Percentage       decimal.Decimal `json:"percentage"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	VendorAmount     decimal.Decimal `json:"vendorAmount"`
}

// Calculate returns round2(amount * percentage / 100) as commission. The vendor
// amount is derived by subtraction so both parts always sum to round2(amount).
func Calculate(amount, percentage decimal.Decimal) (Breakdown, error) {
	if percentage.IsNegative() || percentage.GreaterThan(maxPercentage) {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrInvalidCommission, "commission percentage must be between 0 and 100").
			WithDetails(map[string]any{"field": "percentage", "value": percentage.String()})
	}
	if amount.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").
			WithDetails(map[string]any{"field": "orderTotal", "value": amount.String()})
	}

	total := money.Round2(amount)
	commissionAmount := money.Percent(amount, percentage)
	return Breakdown{
		OrderTotal:       total,
		Percentage:       percentage,
		CommissionAmount: commissionAmount,
		VendorAmount:     money.Round2(total.Sub(commissionAmount)),
	}, nil
}
