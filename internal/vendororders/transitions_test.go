package vendororders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.VendorOrderStatus
		want     bool
	}{
		{enums.VendorOrderStatusPending, enums.VendorOrderStatusConfirmed, true},
		{enums.VendorOrderStatusPending, enums.VendorOrderStatusShipped, true},
		{enums.VendorOrderStatusShipped, enums.VendorOrderStatusDelivered, true},
		{enums.VendorOrderStatusDelivered, enums.VendorOrderStatusCompleted, true},
		{enums.VendorOrderStatusConfirmed, enums.VendorOrderStatusPending, false},
		{enums.VendorOrderStatusShipped, enums.VendorOrderStatusShipped, false},
		{enums.VendorOrderStatusShipped, enums.VendorOrderStatusCancelled, true},
		{enums.VendorOrderStatusDelivered, enums.VendorOrderStatusCancelled, false},
		{enums.VendorOrderStatusDelivered, enums.VendorOrderStatusRefunded, true},
		{enums.VendorOrderStatusProcessing, enums.VendorOrderStatusRefunded, false},
		{enums.VendorOrderStatusCompleted, enums.VendorOrderStatusRefunded, false},
		{enums.VendorOrderStatusCancelled, enums.VendorOrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, canTransition(tc.from, tc.to))
		})
	}
}
