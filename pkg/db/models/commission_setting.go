package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionSetting is one row of the platform commission log. The latest
// row is the effective rate.
type CommissionSetting struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Commission decimal.Decimal `gorm:"column:commission;type:numeric(5,2);not null"`
	UpdatedBy  *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}
