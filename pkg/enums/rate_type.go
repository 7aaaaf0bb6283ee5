package enums

import "fmt"

// RateType maps to the commission_rate_type enum in Postgres.
type RateType string

const (
	RateTypePercentage RateType = "percentage"
	RateTypeFlat       RateType = "flat"
)

var validRateTypes = []RateType{
	RateTypePercentage,
	RateTypeFlat,
}

// String implements fmt.Stringer.
func (r RateType) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RateType) IsValid() bool {
	for _, candidate := range validRateTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRateType converts raw input into a RateType.
func ParseRateType(value string) (RateType, error) {
	for _, candidate := range validRateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rate type %q", value)
}
