package vendororders

import "github.com/angelmondragon/vendorledger/pkg/enums"

// fulfillment is the forward path; a vendor order may skip ahead on it but
// never move back.
var fulfillment = []enums.VendorOrderStatus{
	enums.VendorOrderStatusPending,
	enums.VendorOrderStatusConfirmed,
	enums.VendorOrderStatusProcessing,
	enums.VendorOrderStatusShipped,
	enums.VendorOrderStatusDelivered,
	enums.VendorOrderStatusCompleted,
}

func rank(status enums.VendorOrderStatus) int {
	for i, candidate := range fulfillment {
		if candidate == status {
			return i
		}
	}
	return -1
}

// canTransition reports whether from → to is allowed. Cancellation is only
// possible before delivery and refunds only from delivered.
func canTransition(from, to enums.VendorOrderStatus) bool {
	if from == to || from.IsTerminal() {
		return false
	}
	switch to {
	case enums.VendorOrderStatusCancelled:
		return rank(from) < rank(enums.VendorOrderStatusDelivered)
	case enums.VendorOrderStatusRefunded:
		return from == enums.VendorOrderStatusDelivered
	}
	return rank(to) > rank(from)
}
