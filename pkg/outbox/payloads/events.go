package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// PayoutRequestedEvent is emitted when a vendor files a payout request.
type PayoutRequestedEvent struct {
	PayoutID    uuid.UUID          `json:"payout_id"`
	VendorID    uuid.UUID          `json:"vendor_id"`
	RequestedBy uuid.UUID          `json:"requested_by"`
	Amount      decimal.Decimal    `json:"amount"`
	Method      enums.PayoutMethod `json:"method"`
}

// PayoutCompletedEvent is emitted once the payout amount has been debited.
type PayoutCompletedEvent struct {
	PayoutID     uuid.UUID       `json:"payout_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ProcessedAt  time.Time       `json:"processed_at"`
	ProcessedBy  uuid.UUID       `json:"processed_by"`
	Bulk         bool            `json:"bulk,omitempty"`
}

// PayoutRejectedEvent is emitted when an admin declines a payout.
type PayoutRejectedEvent struct {
	PayoutID   uuid.UUID `json:"payout_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Reason     string    `json:"reason,omitempty"`
	RejectedAt time.Time `json:"rejected_at"`
}

// PayoutCancelledEvent is emitted when the requester withdraws a payout.
type PayoutCancelledEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	Amount      decimal.Decimal `json:"amount"`
	CancelledBy uuid.UUID       `json:"cancelled_by"`
}

// VendorOrderSlice summarises one vendor order inside a split event.
type VendorOrderSlice struct {
	VendorOrderID uuid.UUID       `json:"vendor_order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
}

// VendorOrdersSplitEvent is emitted when an order is split across vendors.
type VendorOrdersSplitEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderTotal   decimal.Decimal    `json:"order_total"`
	VendorOrders []VendorOrderSlice `json:"vendor_orders"`
}

// VendorOrderStatusChangedEvent is emitted on every vendor order transition.
type VendorOrderStatusChangedEvent struct {
	VendorOrderID uuid.UUID               `json:"vendor_order_id"`
	OrderID       uuid.UUID               `json:"order_id"`
	VendorID      uuid.UUID               `json:"vendor_id"`
	From          enums.VendorOrderStatus `json:"from"`
	To            enums.VendorOrderStatus `json:"to"`
}

// VendorOrderSettledEvent is emitted when a vendor order's earnings are credited.
type VendorOrderSettledEvent struct {
	VendorOrderID    uuid.UUID       `json:"vendor_order_id"`
	VendorID         uuid.UUID       `json:"vendor_id"`
	OrderTotal       decimal.Decimal `json:"order_total"`
	CommissionPct    decimal.Decimal `json:"commission_pct"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	VendorAmount     decimal.Decimal `json:"vendor_amount"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	SettledAt        time.Time       `json:"settled_at"`
}

// CommissionChangedEvent is emitted whenever the platform commission changes.
type CommissionChangedEvent struct {
	SettingID  uuid.UUID       `json:"setting_id"`
	Commission decimal.Decimal `json:"commission"`
	Previous   decimal.Decimal `json:"previous"`
	Reset      bool            `json:"reset,omitempty"`
}
