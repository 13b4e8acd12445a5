package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/api/middleware"
	"github.com/angelmondragon/vendorledger/internal/commission"
	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/vendororders"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

var errNotStubbed = errors.New("not stubbed")

type stubCommissionService struct {
	current   func(ctx context.Context) (*commission.Setting, error)
	set       func(ctx context.Context, input commission.SetCurrentInput) (*commission.Setting, error)
	history   func(ctx context.Context, filter commission.HistoryFilter) ([]commission.Setting, error)
	reset     func(ctx context.Context, actor uuid.UUID) (*commission.Setting, error)
	calculate func(ctx context.Context, input commission.CalculateInput) (*commission.Breakdown, error)
}

func (s *stubCommissionService) Current(ctx context.Context) (*commission.Setting, error) {
	if s.current == nil {
		return nil, errNotStubbed
	}
	return s.current(ctx)
}

func (s *stubCommissionService) SetCurrent(ctx context.Context, input commission.SetCurrentInput) (*commission.Setting, error) {
	if s.set == nil {
		return nil, errNotStubbed
	}
	return s.set(ctx, input)
}

func (s *stubCommissionService) History(ctx context.Context, filter commission.HistoryFilter) ([]commission.Setting, error) {
	if s.history == nil {
		return nil, errNotStubbed
	}
	return s.history(ctx, filter)
}

func (s *stubCommissionService) ResetToDefault(ctx context.Context, actor uuid.UUID) (*commission.Setting, error) {
	if s.reset == nil {
		return nil, errNotStubbed
	}
	return s.reset(ctx, actor)
}

func (s *stubCommissionService) ResolvePercentage(ctx context.Context, tx *gorm.DB, override *decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errNotStubbed
}

func (s *stubCommissionService) Calculate(ctx context.Context, input commission.CalculateInput) (*commission.Breakdown, error) {
	if s.calculate == nil {
		return nil, errNotStubbed
	}
	return s.calculate(ctx, input)
}

type stubVendorService struct {
	authorize func(ctx context.Context, vendorID, userID uuid.UUID, role enums.Role) (*models.Vendor, error)
	override  func(ctx context.Context, input vendors.SetCommissionOverrideInput) (*models.Vendor, error)
	remove    func(ctx context.Context, input vendors.DeleteInput) error
}

func (s *stubVendorService) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	return nil, errNotStubbed
}

func (s *stubVendorService) Authorize(ctx context.Context, vendorID, userID uuid.UUID, role enums.Role) (*models.Vendor, error) {
	if s.authorize == nil {
		return &models.Vendor{ID: vendorID, OwnerID: userID}, nil
	}
	return s.authorize(ctx, vendorID, userID, role)
}

func (s *stubVendorService) SetCommissionOverride(ctx context.Context, input vendors.SetCommissionOverrideInput) (*models.Vendor, error) {
	if s.override == nil {
		return nil, errNotStubbed
	}
	return s.override(ctx, input)
}

func (s *stubVendorService) Delete(ctx context.Context, input vendors.DeleteInput) error {
	if s.remove == nil {
		return errNotStubbed
	}
	return s.remove(ctx, input)
}

type stubLedgerService struct {
	balance func(ctx context.Context, vendorID uuid.UUID) (*ledger.BalanceView, error)
	entries func(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ledger.EntryList, error)
}

func (s *stubLedgerService) Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (*ledger.CreditResult, error) {
	return nil, errNotStubbed
}

func (s *stubLedgerService) Debit(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*ledger.DebitResult, error) {
	return nil, errNotStubbed
}

func (s *stubLedgerService) Balance(ctx context.Context, vendorID uuid.UUID) (*ledger.BalanceView, error) {
	if s.balance == nil {
		return nil, errNotStubbed
	}
	return s.balance(ctx, vendorID)
}

func (s *stubLedgerService) AvailableBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, errNotStubbed
}

func (s *stubLedgerService) Entries(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ledger.EntryList, error) {
	if s.entries == nil {
		return nil, errNotStubbed
	}
	return s.entries(ctx, vendorID, params)
}

type stubVendorOrderService struct {
	split  func(ctx context.Context, input vendororders.SplitInput) ([]vendororders.VendorOrder, error)
	status func(ctx context.Context, input vendororders.UpdateStatusInput) (*vendororders.StatusResult, error)
	settle func(ctx context.Context, input vendororders.SettleInput) (*vendororders.Settlement, error)
	list   func(ctx context.Context, orderID uuid.UUID) ([]vendororders.VendorOrder, error)
}

func (s *stubVendorOrderService) Split(ctx context.Context, input vendororders.SplitInput) ([]vendororders.VendorOrder, error) {
	if s.split == nil {
		return nil, errNotStubbed
	}
	return s.split(ctx, input)
}

func (s *stubVendorOrderService) UpdateStatus(ctx context.Context, input vendororders.UpdateStatusInput) (*vendororders.StatusResult, error) {
	if s.status == nil {
		return nil, errNotStubbed
	}
	return s.status(ctx, input)
}

func (s *stubVendorOrderService) Settle(ctx context.Context, input vendororders.SettleInput) (*vendororders.Settlement, error) {
	if s.settle == nil {
		return nil, errNotStubbed
	}
	return s.settle(ctx, input)
}

func (s *stubVendorOrderService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]vendororders.VendorOrder, error) {
	if s.list == nil {
		return nil, errNotStubbed
	}
	return s.list(ctx, orderID)
}

func (s *stubVendorOrderService) Get(ctx context.Context, id uuid.UUID) (*vendororders.VendorOrder, error) {
	return nil, errNotStubbed
}

func withActor(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func serve(t *testing.T, method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
