package enums

import (
	"fmt"
	"time"
)

// PayoutFrequency maps to the payout_frequency enum in Postgres.
type PayoutFrequency string

const (
	PayoutFrequencyDaily   PayoutFrequency = "daily"
	PayoutFrequencyWeekly  PayoutFrequency = "weekly"
	PayoutFrequencyMonthly PayoutFrequency = "monthly"
)

var validPayoutFrequencies = []PayoutFrequency{
	PayoutFrequencyDaily,
	PayoutFrequencyWeekly,
	PayoutFrequencyMonthly,
}

// String implements fmt.Stringer.
func (f PayoutFrequency) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f PayoutFrequency) IsValid() bool {
	for _, candidate := range validPayoutFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// Next returns the next scheduled date one interval after from. Months use
// calendar arithmetic rather than a fixed number of days.
func (f PayoutFrequency) Next(from time.Time) time.Time {
	switch f {
	case PayoutFrequencyDaily:
		return from.AddDate(0, 0, 1)
	case PayoutFrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case PayoutFrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}

// ParsePayoutFrequency converts raw input into a PayoutFrequency.
func ParsePayoutFrequency(value string) (PayoutFrequency, error) {
	for _, candidate := range validPayoutFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout frequency %q", value)
}
