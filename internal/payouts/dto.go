package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
)

type CreateInput struct {
	VendorID    uuid.UUID
	Amount      decimal.Decimal
	Method      enums.PayoutMethod
	Reference   *string
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type ApproveInput struct {
	PayoutID    uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type RejectInput struct {
	PayoutID    uuid.UUID
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type CancelInput struct {
	PayoutID    uuid.UUID
	ActorUserID uuid.UUID
}

type BulkApproveInput struct {
	PayoutIDs   []uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type GetInput struct {
	PayoutID    uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// Sort columns accepted by List.
const (
	SortCreatedAt   = "created_at"
	SortAmount      = "amount"
	SortProcessedAt = "processed_at"
)

var sortColumns = map[string]struct{}{
	SortCreatedAt:   {},
	SortAmount:      {},
	SortProcessedAt: {},
}

// Filters narrows a payout listing. Zero values mean "no filter".
type Filters struct {
	VendorID    *uuid.UUID
	Status      *enums.PayoutStatus
	RequestedBy *uuid.UUID
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortDir     string
}

// Payout is the public view of a payout request.
type Payout struct {
	ID              uuid.UUID          `json:"id"`
	VendorID        uuid.UUID          `json:"vendorId"`
	RequestedBy     *uuid.UUID         `json:"requestedBy,omitempty"`
	Amount          decimal.Decimal    `json:"amount"`
	Method          enums.PayoutMethod `json:"method"`
	Reference       *string            `json:"reference,omitempty"`
	RejectionReason *string            `json:"rejectionReason,omitempty"`
	Status          enums.PayoutStatus `json:"status"`
	ProcessedAt     *time.Time         `json:"processedAt,omitempty"`
	ProcessedBy     *uuid.UUID         `json:"processedBy,omitempty"`
	RejectedAt      *time.Time         `json:"rejectedAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type PayoutList struct {
	Payouts    []Payout `json:"payouts"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"total"`
	TotalPages int      `json:"totalPages"`
}

// SkippedPayout is an id bulk approval left alone.
type SkippedPayout struct {
	PayoutID      uuid.UUID           `json:"payoutId"`
	Reason        string              `json:"reason"`
	CurrentStatus *enums.PayoutStatus `json:"currentStatus,omitempty"`
}

type BulkApproveResult struct {
	Approved []Payout        `json:"approved"`
	Skipped  []SkippedPayout `json:"skipped"`
}

const (
	skipNotFound   = "not_found"
	skipNotPending = "not_pending"
)

func fromModel(row *models.VendorPayout) *Payout {
	return &Payout{
		ID:              row.ID,
		VendorID:        row.VendorID,
		RequestedBy:     row.RequestedBy,
		Amount:          row.Amount,
		Method:          row.Method,
		Reference:       row.Reference,
		RejectionReason: row.RejectionReason,
		Status:          row.Status,
		ProcessedAt:     row.ProcessedAt,
		ProcessedBy:     row.ProcessedBy,
		RejectedAt:      row.RejectedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
