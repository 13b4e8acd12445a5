package commission

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
)

// Setting is the effective commission as exposed to callers.
type Setting struct {
	ID         *uuid.UUID      `json:"id,omitempty"`
	Percentage decimal.Decimal `json:"percentage"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	UpdatedBy  *uuid.UUID      `json:"updatedBy,omitempty"`
	IsDefault  bool            `json:"isDefault"`
}

// SetCurrentInput changes the platform commission.
type SetCurrentInput struct {
	Percentage  decimal.Decimal
	ActorUserID uuid.UUID
}

// HistoryFilter bounds a history query; both ends are optional and inclusive.
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

// CalculateInput asks for a breakdown. Percentage falls back to the current
// platform commission when nil.
type CalculateInput struct {
	OrderTotal decimal.Decimal
	Percentage *decimal.Decimal
}

func defaultSetting() *Setting {
	return &Setting{Percentage: decimal.Zero, IsDefault: true}
}

func fromModel(row *models.CommissionSetting) *Setting {
	id := row.ID
	return &Setting{
		ID:         &id,
		Percentage: row.Commission,
		UpdatedAt:  row.UpdatedAt,
		UpdatedBy:  row.UpdatedBy,
	}
}
