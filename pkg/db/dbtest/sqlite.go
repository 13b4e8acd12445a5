// Package dbtest opens throwaway SQLite databases carrying the settlement
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
)

var schema = []string{
	`CREATE TABLE vendors (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  commission_pct NUMERIC,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL REFERENCES vendors(id),
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  shipping NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE vendor_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  vendor_id TEXT NOT NULL REFERENCES vendors(id),
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  shipping NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  commission_pct NUMERIC,
  commission_amount NUMERIC,
  vendor_amount NUMERIC,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT vendor_orders_order_vendor_key UNIQUE (order_id, vendor_id)
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  vendor_order_id TEXT REFERENCES vendor_orders(id),
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE commission_settings (
  id TEXT PRIMARY KEY,
  commission NUMERIC NOT NULL,
  updated_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE vendor_balances (
  vendor_id TEXT PRIMARY KEY REFERENCES vendors(id),
  balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
  total_credited NUMERIC NOT NULL DEFAULT 0,
  total_debited NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	`CREATE TABLE ledger_entries (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  vendor_order_id TEXT,
  payout_id TEXT,
  metadata TEXT,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ledger_entries_credit_vendor_order_key
  ON ledger_entries (vendor_order_id) WHERE type = 'credit';`,
	`CREATE TABLE vendor_payouts (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL REFERENCES vendors(id),
  requested_by TEXT,
  amount NUMERIC NOT NULL,
  method TEXT NOT NULL,
  reference TEXT,
  rejection_reason TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  processed_at DATETIME,
  processed_by TEXT,
  rejected_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns an isolated in-memory database with the settlement schema.
// The pool is capped at one connection so concurrent transactions run one
// after another.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// DecPtr is Dec returning a pointer.
func DecPtr(value string) *decimal.Decimal {
	d := Dec(value)
	return &d
}

// MustCreateVendor inserts an approved vendor owned by ownerID.
func MustCreateVendor(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, commission *decimal.Decimal) *models.Vendor {
	t.Helper()
	id := uuid.New()
	vendor := &models.Vendor{
		ID:            id,
		OwnerID:       ownerID,
		Name:          "Vendor " + id.String()[:8],
		Slug:          "vendor-" + id.String(),
		CommissionPct: commission,
		Status:        enums.VendorStatusApproved,
	}
	if err := conn.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

// MustCreateProduct inserts a catalog product for vendorID.
func MustCreateProduct(t *testing.T, conn *gorm.DB, vendorID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		VendorID: vendorID,
		Name:     "Widget",
		Price:    Dec("10.00"),
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// ItemSpec describes one order line for MustCreateOrder.
type ItemSpec struct {
	VendorID  uuid.UUID
	Quantity  int
	UnitPrice string
}

// OrderSpec describes the order-level amounts for MustCreateOrder. Subtotal
// and total are derived from the items unless Total is set explicitly.
type OrderSpec struct {
	Tax      string
	Shipping string
	Discount string
	Total    string
	Items    []ItemSpec
}

// MustCreateOrder inserts an order and its unsplit items.
func MustCreateOrder(t *testing.T, conn *gorm.DB, spec OrderSpec) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     "paid",
		TaxAmount:  decOrZero(spec.Tax),
		Shipping:   decOrZero(spec.Shipping),
		Discount:   decOrZero(spec.Discount),
		CreatedAt:  time.Now().UTC(),
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(spec.Items))
	for _, it := range spec.Items {
		price := Dec(it.UnitPrice)
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		subtotal = subtotal.Add(line)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: uuid.New(),
			VendorID:  it.VendorID,
			Quantity:  it.Quantity,
			UnitPrice: price,
			LineTotal: line,
		})
	}
	order.Subtotal = subtotal
	if spec.Total != "" {
		order.Total = Dec(spec.Total)
	} else {
		order.Total = subtotal.Add(order.TaxAmount).Add(order.Shipping).Sub(order.Discount).Round(2)
	}

	if err := conn.Omit("Items").Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	for i := range items {
		if err := conn.Create(&items[i]).Error; err != nil {
			t.Fatalf("create order item: %v", err)
		}
	}
	order.Items = items
	return order
}

func decOrZero(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	return Dec(value)
}
