package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateVendorOrder       OutboxAggregateType = "vendor_order"
	AggregateOrder             OutboxAggregateType = "order"
	AggregatePayout            OutboxAggregateType = "payout"
	AggregateCommissionSetting OutboxAggregateType = "commission_setting"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVendorOrder,
	AggregateOrder,
	AggregatePayout,
	AggregateCommissionSetting,
}

// IsValid reports whether the value matches a known aggregate type.
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

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPayoutRequested    OutboxEventType = "payout_requested"
	EventPayoutCompleted    OutboxEventType = "payout_completed"
	EventPayoutRejected     OutboxEventType = "payout_rejected"
	EventPayoutCancelled    OutboxEventType = "payout_cancelled"
	EventVendorOrdersSplit  OutboxEventType = "vendor_orders_split"
	EventVendorOrderStatus  OutboxEventType = "vendor_order_status_changed"
	EventVendorOrderSettled OutboxEventType = "vendor_order_settled"
	EventCommissionChanged  OutboxEventType = "commission_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPayoutRequested,
	EventPayoutCompleted,
	EventPayoutRejected,
	EventPayoutCancelled,
	EventVendorOrdersSplit,
	EventVendorOrderStatus,
	EventVendorOrderSettled,
	EventCommissionChanged,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
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
	return "", fmt.Errorf("invalid event type %q", value)
}
