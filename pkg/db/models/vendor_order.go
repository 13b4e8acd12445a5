package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// VendorOrder is one vendor's slice of a customer order. The commission
// columns and SettledAt are written once, when the slice settles.
type VendorOrder struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	VendorID         uuid.UUID               `gorm:"column:vendor_id;type:uuid;not null"`
	Status           enums.VendorOrderStatus `gorm:"column:status;type:vendor_order_status;not null;default:'pending'"`
	Subtotal         decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount        decimal.Decimal         `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	Shipping         decimal.Decimal         `gorm:"column:shipping;type:numeric(12,2);not null;default:0"`
	Discount         decimal.Decimal         `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	CommissionPct    *decimal.Decimal        `gorm:"column:commission_pct;type:numeric(5,2)"`
	CommissionAmount *decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2)"`
	VendorAmount     *decimal.Decimal        `gorm:"column:vendor_amount;type:numeric(12,2)"`
	SettledAt        *time.Time              `gorm:"column:settled_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
