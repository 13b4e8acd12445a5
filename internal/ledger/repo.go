package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

// Repository manages persistence for vendor balances and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	LockBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	EnsureBalance(ctx context.Context, vendorID uuid.UUID, now time.Time) error
	UpdateBalance(ctx context.Context, balance *models.VendorBalance) error
	FindCredit(ctx context.Context, vendorOrderID uuid.UUID) (*models.LedgerEntry, error)
	CreateEntries(ctx context.Context, entries []models.LedgerEntry) error
	ListEntries(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Take(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) LockBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		Take(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// EnsureBalance inserts a zero balance row unless one exists.
func (r *repository) EnsureBalance(ctx context.Context, vendorID uuid.UUID, now time.Time) error {
	row := &models.VendorBalance{
		VendorID:      vendorID,
		Balance:       decimal.Zero,
		TotalCredited: decimal.Zero,
		TotalDebited:  decimal.Zero,
		UpdatedAt:     now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "vendor_id"}}, DoNothing: true}).
		Create(row).Error
}

func (r *repository) UpdateBalance(ctx context.Context, balance *models.VendorBalance) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("vendor_id = ?", balance.VendorID).
		Updates(map[string]any{
			"balance":        balance.Balance,
			"total_credited": balance.TotalCredited,
			"total_debited":  balance.TotalDebited,
			"updated_at":     balance.UpdatedAt,
		}).Error
}

func (r *repository) FindCredit(ctx context.Context, vendorOrderID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("vendor_order_id = ? AND type = ?", vendorOrderID, enums.LedgerEntryCredit).
		Take(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// ListEntries returns up to limit entries for the vendor, newest first,
// starting strictly after cursor.
func (r *repository) ListEntries(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
