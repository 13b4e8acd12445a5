package enums

import "testing"

func TestParsePayoutStatus(t *testing.T) {
	got, err := ParsePayoutStatus("completed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PayoutStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if _, err := ParsePayoutStatus("cancelled"); err == nil {
		t.Fatal("expected cancelled to be rejected; cancellation deletes the payout")
	}
}

func TestParsePayoutMethodRejectsUnknown(t *testing.T) {
	if _, err := ParsePayoutMethod("wire"); err == nil {
		t.Fatal("expected unknown payout method to fail")
	}
	if !PayoutMethodPaypal.IsValid() {
		t.Fatal("expected paypal to be valid")
	}
}

func TestVendorOrderStatusClassification(t *testing.T) {
	cases := []struct {
		status     VendorOrderStatus
		terminal   bool
		settleable bool
	}{
		{VendorOrderStatusPending, false, false},
		{VendorOrderStatusShipped, false, false},
		{VendorOrderStatusDelivered, false, true},
		{VendorOrderStatusCompleted, true, true},
		{VendorOrderStatusCancelled, true, false},
		{VendorOrderStatusRefunded, true, false},
	}
	for _, tc := range cases {
		if tc.status.IsTerminal() != tc.terminal {
			t.Fatalf("%s terminal: expected %v", tc.status, tc.terminal)
		}
		if tc.status.IsSettleable() != tc.settleable {
			t.Fatalf("%s settleable: expected %v", tc.status, tc.settleable)
		}
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseRole("buyer"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
