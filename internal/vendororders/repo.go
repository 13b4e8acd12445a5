package vendororders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
)

// Repository defines persistence for orders, their items and vendor orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateVendorOrders(ctx context.Context, orders []models.VendorOrder) error
	AssignItems(ctx context.Context, orderID, vendorID, vendorOrderID uuid.UUID) (int64, error)
	FindVendorOrder(ctx context.Context, id uuid.UUID) (*models.VendorOrder, error)
	LockVendorOrder(ctx context.Context, id uuid.UUID) (*models.VendorOrder, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.VendorOrderStatus, now time.Time) (int64, error)
	MarkSettled(ctx context.Context, id uuid.UUID, values SettlementValues) (int64, error)
}

// SettlementValues are the columns written once when a vendor order settles.
type SettlementValues struct {
	CommissionPct    decimal.Decimal
	CommissionAmount decimal.Decimal
	VendorAmount     decimal.Decimal
	SettledAt        time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreateVendorOrders(ctx context.Context, orders []models.VendorOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&orders).Error
}

// AssignItems points every unsplit item of the vendor at its vendor order.
func (r *repository) AssignItems(ctx context.Context, orderID, vendorID, vendorOrderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND vendor_id = ? AND vendor_order_id IS NULL", orderID, vendorID).
		Update("vendor_order_id", vendorOrderID)
	return res.RowsAffected, res.Error
}

func (r *repository) FindVendorOrder(ctx context.Context, id uuid.UUID) (*models.VendorOrder, error) {
	var order models.VendorOrder
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockVendorOrder(ctx context.Context, id uuid.UUID) (*models.VendorOrder, error) {
	var order models.VendorOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error) {
	var orders []models.VendorOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("subtotal DESC").
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves the vendor order from one status to another and
// reports zero rows when the current status no longer matches.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.VendorOrderStatus, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// MarkSettled records the settlement only while settled_at is still NULL.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, values SettlementValues) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("id = ? AND settled_at IS NULL", id).
		Updates(map[string]any{
			"commission_pct":    values.CommissionPct,
			"commission_amount": values.CommissionAmount,
			"vendor_amount":     values.VendorAmount,
			"settled_at":        values.SettledAt,
			"updated_at":        values.SettledAt,
		})
	return res.RowsAffected, res.Error
}
