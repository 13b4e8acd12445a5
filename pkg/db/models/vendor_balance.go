package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBalance is the running payable balance of a vendor. Only the ledger
// service writes it.
type VendorBalance struct {
	VendorID      uuid.UUID       `gorm:"column:vendor_id;type:uuid;primaryKey"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	TotalCredited decimal.Decimal `gorm:"column:total_credited;type:numeric(12,2);not null;default:0"`
	TotalDebited  decimal.Decimal `gorm:"column:total_debited;type:numeric(12,2);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}
