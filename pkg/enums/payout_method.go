package enums

import "fmt"

// PayoutMethod maps to the payout_method enum in Postgres.
type PayoutMethod string

const (
	PayoutMethodBankTransfer  PayoutMethod = "bank_transfer"
	PayoutMethodStripeConnect PayoutMethod = "stripe_connect"
	PayoutMethodPaypal        PayoutMethod = "paypal"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBankTransfer,
	PayoutMethodStripeConnect,
	PayoutMethodPaypal,
}

// String implements fmt.Stringer.
func (m PayoutMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
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
