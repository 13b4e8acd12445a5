package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// LedgerEntry records an immutable balance movement for a vendor.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	Type          enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type;not null"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	VendorOrderID *uuid.UUID            `gorm:"column:vendor_order_id;type:uuid"`
	PayoutID      *uuid.UUID            `gorm:"column:payout_id;type:uuid"`
	Metadata      json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time             `gorm:"column:created_at"`
}
