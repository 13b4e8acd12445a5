package enums

import "fmt"

// VendorOrderStatus tracks the lifecycle of a vendor order.
type VendorOrderStatus string

const (
	VendorOrderStatusPending    VendorOrderStatus = "pending"
	VendorOrderStatusConfirmed  VendorOrderStatus = "confirmed"
	VendorOrderStatusProcessing VendorOrderStatus = "processing"
	VendorOrderStatusShipped    VendorOrderStatus = "shipped"
	VendorOrderStatusDelivered  VendorOrderStatus = "delivered"
	VendorOrderStatusCompleted  VendorOrderStatus = "completed"
	VendorOrderStatusCancelled  VendorOrderStatus = "cancelled"
	VendorOrderStatusRefunded   VendorOrderStatus = "refunded"
)

var validVendorOrderStatuses = []VendorOrderStatus{
	VendorOrderStatusPending,
	VendorOrderStatusConfirmed,
	VendorOrderStatusProcessing,
	VendorOrderStatusShipped,
	VendorOrderStatusDelivered,
	VendorOrderStatusCompleted,
	VendorOrderStatusCancelled,
	VendorOrderStatusRefunded,
}

// String implements fmt.Stringer.
func (v VendorOrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorOrderStatus.
func (v VendorOrderStatus) IsValid() bool {
	for _, candidate := range validVendorOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (v VendorOrderStatus) IsTerminal() bool {
	switch v {
	case VendorOrderStatusCompleted, VendorOrderStatusCancelled, VendorOrderStatusRefunded:
		return true
	}
	return false
}

// IsSettleable reports whether earnings for the vendor order become payable.
func (v VendorOrderStatus) IsSettleable() bool {
	return v == VendorOrderStatusDelivered || v == VendorOrderStatusCompleted
}

// ParseVendorOrderStatus converts raw input into a VendorOrderStatus.
func ParseVendorOrderStatus(value string) (VendorOrderStatus, error) {
	for _, candidate := range validVendorOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor order status %q", value)
}
