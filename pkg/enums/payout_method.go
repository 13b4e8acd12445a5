package enums

import "fmt"

// PayoutMethod identifies how a payout is delivered to the vendor.
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodPaypal       PayoutMethod = "paypal"
	PayoutMethodStripe       PayoutMethod = "stripe"
	PayoutMethodManual       PayoutMethod = "manual"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBankTransfer,
	PayoutMethodPaypal,
	PayoutMethodStripe,
	PayoutMethodManual,
}

// String implements fmt.Stringer.
func (m PayoutMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PayoutMethod.
func (m PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
