package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

// Repository manages vendor_payouts rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.VendorPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error)
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorPayout, error)
	MarkCompleted(ctx context.Context, id, processedBy uuid.UUID, at time.Time) (int64, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (int64, error)
	DeletePending(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, filters Filters, page pagination.PageParams) ([]models.VendorPayout, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// LockByIDs locks the payouts in id order so concurrent batches acquire
// row locks in the same sequence.
func (r *repository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorPayout, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var payouts []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id, processedBy uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(map[string]any{
			"status":       enums.PayoutStatusCompleted,
			"processed_at": at,
			"processed_by": processedBy,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkRejected(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":      enums.PayoutStatusRejected,
		"rejected_at": at,
		"updated_at":  at,
	}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// DeletePending removes the payout only while it is still pending.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Delete(&models.VendorPayout{})
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filters Filters, page pagination.PageParams) ([]models.VendorPayout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VendorPayout{})
	if filters.VendorID != nil {
		query = query.Where("vendor_id = ?", *filters.VendorID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filters.RequestedBy)
	}
	if filters.MinAmount != nil {
		query = query.Where("amount >= ?", *filters.MinAmount)
	}
	if filters.MaxAmount != nil {
		query = query.Where("amount <= ?", *filters.MaxAmount)
	}
	if filters.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filters.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	var payouts []models.VendorPayout
	if err := query.
		Order(fmt.Sprintf("%s %s", filters.SortBy, filters.SortDir)).
		Order("id ASC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}
