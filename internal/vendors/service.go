package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the vendor facts settlement depends on.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	Authorize(ctx context.Context, vendorID, userID uuid.UUID, role enums.Role) (*models.Vendor, error)
	SetCommissionOverride(ctx context.Context, input SetCommissionOverrideInput) (*models.Vendor, error)
	Delete(ctx context.Context, input DeleteInput) error
}

// SetCommissionOverride input; a nil Percentage clears the override.
type SetCommissionOverrideInput struct {
	VendorID   uuid.UUID
	Percentage *decimal.Decimal
	ActorRole  enums.Role
}

type DeleteInput struct {
	VendorID  uuid.UUID
	ActorRole enums.Role
}

type service struct {
	repo    Repository
	tx      txRunner
	ceiling decimal.Decimal
}

// NewService wires the vendor service. ceiling bounds commission overrides.
func NewService(repo Repository, tx txRunner, ceiling decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, ceiling: ceiling}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return vendor, nil
}

// Authorize loads the vendor and checks that the caller is its owner or a
// platform admin.
func (s *service) Authorize(ctx context.Context, vendorID, userID uuid.UUID, role enums.Role) (*models.Vendor, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	vendor, err := s.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if role == enums.RoleAdmin || vendor.OwnerID == userID {
		return vendor, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, pkgerrors.ErrUnauthorizedRequester, "not authorized for vendor").
		WithDetails(map[string]any{"vendorId": vendorID.String()})
}

func (s *service) SetCommissionOverride(ctx context.Context, input SetCommissionOverrideInput) (*models.Vendor, error) {
	if input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	var pct *decimal.Decimal
	if input.Percentage != nil {
		if input.Percentage.IsNegative() || input.Percentage.GreaterThan(s.ceiling) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrInvalidCommission,
				fmt.Sprintf("commission must be between 0 and %s", s.ceiling.String())).
				WithDetails(map[string]any{
					"field":   "percentage",
					"value":   input.Percentage.String(),
					"ceiling": s.ceiling.String(),
				})
		}
		rounded := input.Percentage.Round(2)
		pct = &rounded
	}

	var vendor *models.Vendor
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, input.VendorID)
		if err != nil {
			return mapLookupError(err, input.VendorID)
		}
		if err := repo.UpdateCommission(ctx, found.ID, pct); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor commission")
		}
		found.CommissionPct = pct
		vendor = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// Delete removes a vendor that owns no products, vendor orders or payouts.
func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.ActorRole != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByIDForUpdate(ctx, input.VendorID); err != nil {
			return mapLookupError(err, input.VendorID)
		}
		deps, err := repo.CountDependents(ctx, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendor dependents")
		}
		if !deps.Empty() {
			return pkgerrors.New(pkgerrors.CodeConflict, "vendor still owns products, vendor orders or payouts").
				WithDetails(map[string]any{"dependents": deps})
		}
		if _, err := repo.Delete(ctx, input.VendorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
		}
		return nil
	})
}

func mapLookupError(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, pkgerrors.ErrVendorNotFound, "vendor not found").
			WithDetails(map[string]any{"vendorId": id.String()})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
}
