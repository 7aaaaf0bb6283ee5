package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCommissionEntry OutboxAggregateType = "commission_entry"
	AggregatePayout          OutboxAggregateType = "payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCommissionEntry,
	AggregatePayout,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres. One immutable
// audit event is emitted per settlement state transition.
type OutboxEventType string

const (
	EventCommissionRecorded OutboxEventType = "commission_recorded"
	EventPayoutCreated      OutboxEventType = "payout_created"
	EventPayoutProcessing   OutboxEventType = "payout_processing"
	EventPayoutCompleted    OutboxEventType = "payout_completed"
	EventPayoutFailed       OutboxEventType = "payout_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCommissionRecorded,
	EventPayoutCreated,
	EventPayoutProcessing,
	EventPayoutCompleted,
	EventPayoutFailed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
