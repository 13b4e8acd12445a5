package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger/api/middleware"
	"github.com/angelmondragon/vendorledger/api/responses"
	"github.com/angelmondragon/vendorledger/api/validators"
	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

type vendorCommissionRequest struct {
	// nil clears the override and falls back to the platform rate
	Percentage *decimal.Decimal `json:"percentage"`
}

type vendorCommissionResponse struct {
	VendorID      uuid.UUID        `json:"vendorId"`
	CommissionPct *decimal.Decimal `json:"commissionPct"`
}

// VendorBalance returns the payable balance for a vendor the caller owns.
func VendorBalance(vendorsSvc vendors.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if vendorsSvc == nil || ledgerSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		vendorID, err := authorizeVendor(r, vendorsSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := ledgerSvc.Balance(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// VendorLedger pages through a vendor's ledger entries, newest first.
func VendorLedger(vendorsSvc vendors.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if vendorsSvc == nil || ledgerSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		vendorID, err := authorizeVendor(r, vendorsSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := ledgerSvc.Entries(r.Context(), vendorID, pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryString(r, "cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// AdminVendorCommission sets or clears a vendor's commission override.
func AdminVendorCommission(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload vendorCommissionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.SetCommissionOverride(r.Context(), vendors.SetCommissionOverrideInput{
			VendorID:   vendorID,
			Percentage: payload.Percentage,
			ActorRole:  actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendorCommissionResponse{VendorID: vendor.ID, CommissionPct: vendor.CommissionPct})
	}
}

// AdminVendorDelete removes a vendor that owns nothing.
func AdminVendorDelete(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), vendors.DeleteInput{VendorID: vendorID, ActorRole: actor.Role}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// authorizeVendor resolves {vendorId} and checks the caller owns it or is an admin.
func authorizeVendor(r *http.Request, svc vendors.Service) (uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	vendorID, err := validators.ParseUUIDParam(r, "vendorId")
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := svc.Authorize(r.Context(), vendorID, actor.UserID, actor.Role); err != nil {
		return uuid.Nil, err
	}
	return vendorID, nil
}
