package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// VendorPayout is a vendor's request to withdraw accrued balance.
type VendorPayout struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID        uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	RequestedBy     *uuid.UUID         `gorm:"column:requested_by;type:uuid"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Method          enums.PayoutMethod `gorm:"column:method;type:payout_method;not null"`
	Reference       *string            `gorm:"column:reference"`
	RejectionReason *string            `gorm:"column:rejection_reason"`
	Status          enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at"`
	ProcessedBy     *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	RejectedAt      *time.Time         `gorm:"column:rejected_at"`
	CreatedAt       time.Time          `gorm:"column:created_at"`
	UpdatedAt       time.Time          `gorm:"column:updated_at"`
}
