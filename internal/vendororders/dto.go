package vendororders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
)

type SplitInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

type UpdateStatusInput struct {
	VendorOrderID uuid.UUID
	Status        enums.VendorOrderStatus
	ActorUserID   uuid.UUID
}

type SettleInput struct {
	VendorOrderID uuid.UUID
	ActorUserID   uuid.UUID
}

// VendorOrder is the public view of a vendor's slice of an order.
type VendorOrder struct {
	ID               uuid.UUID               `json:"id"`
	OrderID          uuid.UUID               `json:"orderId"`
	VendorID         uuid.UUID               `json:"vendorId"`
	Status           enums.VendorOrderStatus `json:"status"`
	Subtotal         decimal.Decimal         `json:"subtotal"`
	TaxAmount        decimal.Decimal         `json:"taxAmount"`
	Shipping         decimal.Decimal         `json:"shipping"`
	Discount         decimal.Decimal         `json:"discount"`
	Total            decimal.Decimal         `json:"total"`
	CommissionPct    *decimal.Decimal        `json:"commissionPct,omitempty"`
	CommissionAmount *decimal.Decimal        `json:"commissionAmount,omitempty"`
	VendorAmount     *decimal.Decimal        `json:"vendorAmount,omitempty"`
	SettledAt        *time.Time              `json:"settledAt,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// Settlement is the commission split recorded for a vendor order.
// AlreadySettled marks a repeat call that changed nothing.
type Settlement struct {
	VendorOrderID    uuid.UUID       `json:"vendorOrderId"`
	VendorID         uuid.UUID       `json:"vendorId"`
	OrderTotal       decimal.Decimal `json:"orderTotal"`
	CommissionPct    decimal.Decimal `json:"commissionPct"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	VendorAmount     decimal.Decimal `json:"vendorAmount"`
	BalanceAfter     decimal.Decimal `json:"balanceAfter"`
	SettledAt        time.Time       `json:"settledAt"`
	AlreadySettled   bool            `json:"alreadySettled"`
}

type StatusResult struct {
	VendorOrder *VendorOrder `json:"vendorOrder"`
	Settlement  *Settlement  `json:"settlement,omitempty"`
}

func fromModel(row *models.VendorOrder) *VendorOrder {
	return &VendorOrder{
		ID:               row.ID,
		OrderID:          row.OrderID,
		VendorID:         row.VendorID,
		Status:           row.Status,
		Subtotal:         row.Subtotal,
		TaxAmount:        row.TaxAmount,
		Shipping:         row.Shipping,
		Discount:         row.Discount,
		Total:            row.Total,
		CommissionPct:    row.CommissionPct,
		CommissionAmount: row.CommissionAmount,
		VendorAmount:     row.VendorAmount,
		SettledAt:        row.SettledAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func storedSettlement(row *models.VendorOrder, balance decimal.Decimal) *Settlement {
	settlement := &Settlement{
		VendorOrderID:  row.ID,
		VendorID:       row.VendorID,
		OrderTotal:     row.Total,
		BalanceAfter:   balance,
		AlreadySettled: true,
	}
	if row.CommissionPct != nil {
		settlement.CommissionPct = *row.CommissionPct
	}
	if row.CommissionAmount != nil {
		settlement.CommissionAmount = *row.CommissionAmount
	}
	if row.VendorAmount != nil {
		settlement.VendorAmount = *row.VendorAmount
	}
	if row.SettledAt != nil {
		settlement.SettledAt = *row.SettledAt
	}
	return settlement
}
