package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// CreditInput credits a settled vendor order's earnings.
type CreditInput struct {
	VendorID      uuid.UUID
	VendorOrderID uuid.UUID
	Amount        decimal.Decimal
	Metadata      map[string]any
}

// CreditResult reports the balance after a credit. AlreadyCredited is set
// when the vendor order had been credited before and nothing changed.
type CreditResult struct {
	Entry           *models.LedgerEntry
	BalanceAfter    decimal.Decimal
	AlreadyCredited bool
}

// PayoutDebit is one payout settled by a debit.
type PayoutDebit struct {
	PayoutID uuid.UUID
	Amount   decimal.Decimal
}

// DebitInput debits one or more payouts of the same vendor with a single
// balance update.
type DebitInput struct {
	VendorID uuid.UUID
	Payouts  []PayoutDebit
	Metadata map[string]any
}

func (in DebitInput) total() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range in.Payouts {
		sum = sum.Add(p.Amount)
	}
	return sum
}

type DebitResult struct {
	Entries      []models.LedgerEntry
	BalanceAfter decimal.Decimal
}

// BalanceView is the public shape of a vendor balance.
type BalanceView struct {
	VendorID      uuid.UUID       `json:"vendorId"`
	Balance       decimal.Decimal `json:"balance"`
	TotalCredited decimal.Decimal `json:"totalCredited"`
	TotalDebited  decimal.Decimal `json:"totalDebited"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

type EntryView struct {
	ID            uuid.UUID             `json:"id"`
	Type          enums.LedgerEntryType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balanceAfter"`
	VendorOrderID *uuid.UUID            `json:"vendorOrderId,omitempty"`
	PayoutID      *uuid.UUID            `json:"payoutId,omitempty"`
	Metadata      json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

type EntryList struct {
	Entries    []EntryView `json:"entries"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func balanceFromModel(row *models.VendorBalance) *BalanceView {
	updated := row.UpdatedAt
	return &BalanceView{
		VendorID:      row.VendorID,
		Balance:       row.Balance,
		TotalCredited: row.TotalCredited,
		TotalDebited:  row.TotalDebited,
		UpdatedAt:     &updated,
	}
}

func entryFromModel(row models.LedgerEntry) EntryView {
	return EntryView{
		ID:            row.ID,
		Type:          row.Type,
		Amount:        row.Amount,
		BalanceAfter:  row.BalanceAfter,
		VendorOrderID: row.VendorOrderID,
		PayoutID:      row.PayoutID,
		Metadata:      row.Metadata,
		CreatedAt:     row.CreatedAt,
	}
}
