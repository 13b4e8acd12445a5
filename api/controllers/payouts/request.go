package payouts

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/api/validators"
	payoutsvc "github.com/angelmondragon/vendorledger/internal/payouts"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

const (
	maxReferenceLen = 255
	maxReasonLen    = 1000
	maxPage         = 100000
)

type createPayoutRequest struct {
	Amount    *decimal.Decimal `json:"amount" validate:"required"`
	Method    string           `json:"method" validate:"required"`
	Reference *string          `json:"reference"`
}

func (p createPayoutRequest) toInput(vendorID uuid.UUID) (payoutsvc.CreateInput, error) {
	method, err := enums.ParsePayoutMethod(strings.TrimSpace(p.Method))
	if err != nil {
		return payoutsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout method").
			WithDetails(map[string]any{"field": "method"})
	}

	var reference *string
	if p.Reference != nil {
		cleaned := validators.SanitizeString(*p.Reference, maxReferenceLen)
		reference = &cleaned
	}

	return payoutsvc.CreateInput{
		VendorID:  vendorID,
		Amount:    *p.Amount,
		Method:    method,
		Reference: reference,
	}, nil
}

type rejectPayoutRequest struct {
	Reason string `json:"reason"`
}

type bulkApproveRequest struct {
	PayoutIDs []uuid.UUID `json:"payoutIds"`
}

// parseFilters reads the listing query shared by the vendor and admin views.
func parseFilters(r *http.Request) (payoutsvc.Filters, pagination.PageParams, error) {
	var filters payoutsvc.Filters

	if raw := validators.QueryString(r, "status"); raw != "" {
		status, err := enums.ParsePayoutStatus(raw)
		if err != nil {
			return filters, pagination.PageParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}

	var err error
	if filters.MinAmount, err = validators.ParseQueryDecimal(r, "minAmount"); err != nil {
		return filters, pagination.PageParams{}, err
	}
	if filters.MaxAmount, err = validators.ParseQueryDecimal(r, "maxAmount"); err != nil {
		return filters, pagination.PageParams{}, err
	}
	if filters.CreatedFrom, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filters, pagination.PageParams{}, err
	}
	if filters.CreatedTo, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filters, pagination.PageParams{}, err
	}
	if filters.RequestedBy, err = validators.ParseQueryUUID(r, "requestedBy"); err != nil {
		return filters, pagination.PageParams{}, err
	}
	filters.SortBy = validators.QueryString(r, "sortBy")
	filters.SortDir = validators.QueryString(r, "sortDir")

	page, err := validators.ParseQueryInt(r, "page", 1, 1, maxPage)
	if err != nil {
		return filters, pagination.PageParams{}, err
	}
	pageSize, err := validators.ParseQueryInt(r, "pageSize", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return filters, pagination.PageParams{}, err
	}

	return filters, pagination.PageParams{Page: page, PageSize: pageSize}, nil
}
