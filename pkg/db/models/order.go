package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the customer order placed by the storefront. It is read-only here.
type Order struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null"`
	Status     string          `gorm:"column:status;not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount  decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	Shipping   decimal.Decimal `gorm:"column:shipping;type:numeric(12,2);not null;default:0"`
	Discount   decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
