package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
)

// Dependents counts the rows that keep a vendor from being deleted.
type Dependents struct {
	Products     int64 `json:"products"`
	VendorOrders int64 `json:"vendorOrders"`
	Payouts      int64 `json:"payouts"`
}

// Empty reports whether nothing references the vendor.
func (d Dependents) Empty() bool {
	return d.Products == 0 && d.VendorOrders == 0 && d.Payouts == 0
}

// Repository reads vendors and performs the few writes settlement owns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error)
	CountDependents(ctx context.Context, id uuid.UUID) (Dependents, error)
	UpdateCommission(ctx context.Context, id uuid.UUID, pct *decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) CountDependents(ctx context.Context, id uuid.UUID) (Dependents, error) {
	var deps Dependents
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Product{}).Where("vendor_id = ?", id).Count(&deps.Products).Error; err != nil {
		return deps, err
	}
	if err := db.Model(&models.VendorOrder{}).Where("vendor_id = ?", id).Count(&deps.VendorOrders).Error; err != nil {
		return deps, err
	}
	if err := db.Model(&models.VendorPayout{}).Where("vendor_id = ?", id).Count(&deps.Payouts).Error; err != nil {
		return deps, err
	}
	return deps, nil
}

func (r *repository) UpdateCommission(ctx context.Context, id uuid.UUID, pct *decimal.Decimal) error {
	var value any = gorm.Expr("NULL")
	if pct != nil {
		value = *pct
	}
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Update("commission_pct", value).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vendor{})
	return result.RowsAffected, result.Error
}
