package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "vendor_orders_order_vendor_key"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg any constraint", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "pg matching constraint", err: pgErr, constraint: "vendor_orders_order_vendor_key", want: true},
		{name: "pg other constraint", err: pgErr, constraint: "ledger_entries_credit_key", want: false},
		{name: "pg other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: vendor_orders.order_id, vendor_orders.vendor_id"), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("find: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped record-not-found to match")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("unexpected match")
	}
}
