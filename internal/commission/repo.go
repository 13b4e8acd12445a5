package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
)

// Repository persists the commission log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Latest(ctx context.Context) (*models.CommissionSetting, error)
	LatestForUpdate(ctx context.Context) (*models.CommissionSetting, error)
	Create(ctx context.Context, row *models.CommissionSetting) error
	UpdateCommission(ctx context.Context, id uuid.UUID, pct decimal.Decimal, updatedBy uuid.UUID, at time.Time) error
	ListBetween(ctx context.Context, from, to *time.Time) ([]models.CommissionSetting, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) latest(ctx context.Context, lock bool) (*models.CommissionSetting, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.CommissionSetting
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Latest(ctx context.Context) (*models.CommissionSetting, error) {
	return r.latest(ctx, false)
}

func (r *repository) LatestForUpdate(ctx context.Context) (*models.CommissionSetting, error) {
	return r.latest(ctx, true)
}

func (r *repository) Create(ctx context.Context, row *models.CommissionSetting) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) UpdateCommission(ctx context.Context, id uuid.UUID, pct decimal.Decimal, updatedBy uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CommissionSetting{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"commission": pct,
			"updated_by": updatedBy,
			"updated_at": at,
		}).Error
}

func (r *repository) ListBetween(ctx context.Context, from, to *time.Time) ([]models.CommissionSetting, error) {
	query := r.db.WithContext(ctx).Model(&models.CommissionSetting{})
	if from != nil {
		query = query.Where("updated_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("updated_at <= ?", *to)
	}
	var rows []models.CommissionSetting
	if err := query.
		Order("updated_at ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
