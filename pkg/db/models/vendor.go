package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// Vendor is the seller account. Catalog and onboarding flows own it; the
// settlement core reads it and manages the commission override.
type Vendor struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID          `gorm:"column:owner_id;type:uuid;not null"`
	Name          string             `gorm:"column:name;not null"`
	Slug          string             `gorm:"column:slug;not null;uniqueIndex"`
	CommissionPct *decimal.Decimal   `gorm:"column:commission_pct;type:numeric(5,2)"`
	Status        enums.VendorStatus `gorm:"column:status;type:vendor_status;not null;default:'pending'"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
