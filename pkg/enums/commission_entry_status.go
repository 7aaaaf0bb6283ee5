package enums

import "fmt"

// CommissionEntryStatus maps to the commission_entry_status enum in Postgres.
type CommissionEntryStatus string

const (
	CommissionEntryStatusPending    CommissionEntryStatus = "pending"
	CommissionEntryStatusCalculated CommissionEntryStatus = "calculated"
	CommissionEntryStatusPaid       CommissionEntryStatus = "paid"
)

var validCommissionEntryStatuses = []CommissionEntryStatus{
	CommissionEntryStatusPending,
	CommissionEntryStatusCalculated,
	CommissionEntryStatusPaid,
}

// String implements fmt.Stringer.
func (s CommissionEntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s CommissionEntryStatus) IsValid() bool {
	for _, candidate := range validCommissionEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCommissionEntryStatus converts raw input into a CommissionEntryStatus.
func ParseCommissionEntryStatus(value string) (CommissionEntryStatus, error) {
	for _, candidate := range validCommissionEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission entry status %q", value)
}
