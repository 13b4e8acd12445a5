package payouts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	dbpkg "github.com/angelmondragon/vendorledger/pkg/db"
	"github.com/angelmondragon/vendorledger/pkg/db/dbtest"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

type fixture struct {
	svc    Service
	conn   *gorm.DB
	client *dbpkg.Client
	ledger ledger.Service
	admin  uuid.UUID
}

func newFixture(t *testing.T, maxBatch int) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := dbpkg.NewFromConn(conn)

	vendorSvc, err := vendors.NewService(vendors.NewRepository(conn), client, decimal.NewFromInt(50))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), nil)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Vendors:      vendorSvc,
		Ledger:       ledgerSvc,
		Tx:           client,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		MinAmount:    dbtest.Dec("10.00"),
		MaxBulkBatch: maxBatch,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, client: client, ledger: ledgerSvc, admin: uuid.New()}
}

// vendorWithBalance creates a vendor owned by a fresh user and credits it.
func (f fixture) vendorWithBalance(t *testing.T, balance string) (*models.Vendor, uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	vendor := dbtest.MustCreateVendor(t, f.conn, owner, nil)
	if balance != "" {
		require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
			_, err := f.ledger.Credit(context.Background(), tx, ledger.CreditInput{
				VendorID:      vendor.ID,
				VendorOrderID: uuid.New(),
				Amount:        dbtest.Dec(balance),
			})
			return err
		}))
	}
	return vendor, owner
}

func (f fixture) request(t *testing.T, vendor *models.Vendor, owner uuid.UUID, amount string) *Payout {
	t.Helper()
	payout, err := f.svc.Create(context.Background(), CreateInput{
		VendorID:    vendor.ID,
		Amount:      dbtest.Dec(amount),
		Method:      enums.PayoutMethodBankTransfer,
		ActorUserID: owner,
		ActorRole:   enums.RoleVendor,
	})
	require.NoError(t, err)
	return payout
}

func (f fixture) balance(t *testing.T, vendorID uuid.UUID) decimal.Decimal {
	t.Helper()
	view, err := f.ledger.Balance(context.Background(), vendorID)
	require.NoError(t, err)
	return view.Balance
}

func (f fixture) status(t *testing.T, id uuid.UUID) enums.PayoutStatus {
	t.Helper()
	var row models.VendorPayout
	require.NoError(t, f.conn.Where("id = ?", id).Take(&row).Error)
	return row.Status
}

func (f fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCreatePayout(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "500.00")
	ref := "  INV-42 "

	payout, err := f.svc.Create(context.Background(), CreateInput{
		VendorID:    vendor.ID,
		Amount:      dbtest.Dec("120.50"),
		Method:      enums.PayoutMethodPaypal,
		Reference:   &ref,
		ActorUserID: owner,
		ActorRole:   enums.RoleVendor,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPending, payout.Status)
	require.NotNil(t, payout.RequestedBy)
	assert.Equal(t, owner, *payout.RequestedBy)
	require.NotNil(t, payout.Reference)
	assert.Equal(t, "INV-42", *payout.Reference)
	assert.True(t, f.balance(t, vendor.ID).Equal(dbtest.Dec("500.00")))
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventPayoutRequested))
}

func TestCreateEnforcesMinimumAndBalance(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "50.00")
	ctx := context.Background()

	for _, amount := range []string{"0", "-5.00", "9.99"} {
		_, err := f.svc.Create(ctx, CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec(amount), Method: enums.PayoutMethodManual, ActorUserID: owner, ActorRole: enums.RoleVendor})
		require.Error(t, err, amount)
		assert.True(t, errors.Is(err, pkgerrors.ErrBelowMinimum), amount)
		assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
	}

	_, err := f.svc.Create(ctx, CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec("50.01"), Method: enums.PayoutMethodManual, ActorUserID: owner, ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientBalance))

	_, err = f.svc.Create(ctx, CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec("10.00"), Method: "cheque", ActorUserID: owner, ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateChecksVendorAndRequester(t *testing.T) {
	f := newFixture(t, 10)
	vendor, _ := f.vendorWithBalance(t, "100.00")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{VendorID: uuid.New(), Amount: dbtest.Dec("20"), Method: enums.PayoutMethodStripe, ActorUserID: uuid.New(), ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrVendorNotFound))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = f.svc.Create(ctx, CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec("20"), Method: enums.PayoutMethodStripe, ActorUserID: uuid.New(), ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.Create(ctx, CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec("20"), Method: enums.PayoutMethodStripe, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
}

func TestApproveDebitsAndCompletes(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "500.00")
	payout := f.request(t, vendor, owner, "300.00")
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, ApproveInput{PayoutID: payout.ID, ActorUserID: owner, ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	approved, err := f.svc.Approve(ctx, ApproveInput{PayoutID: payout.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, f.admin, *approved.ProcessedBy)
	assert.True(t, f.balance(t, vendor.ID).Equal(dbtest.Dec("200.00")))

	_, err = f.svc.Approve(ctx, ApproveInput{PayoutID: payout.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", details["currentStatus"])
	assert.True(t, f.balance(t, vendor.ID).Equal(dbtest.Dec("200.00")))

	_, err = f.svc.Reject(ctx, RejectInput{PayoutID: payout.ID, Reason: "late", ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
	assert.Equal(t, enums.PayoutStatusCompleted, f.status(t, payout.ID))

	_, err = f.svc.Approve(ctx, ApproveInput{PayoutID: uuid.New(), ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

// The sqlite harness runs on a single connection, so the approvals here are
// serialized; FOR UPDATE contention is only exercised against Postgres.
func TestConcurrentApprovalsNeverOverdraw(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "500.00")
	first := f.request(t, vendor, owner, "300.00")
	second := f.request(t, vendor, owner, "250.00")

	ids := []uuid.UUID{first.ID, second.ID}
	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			_, errs[i] = f.svc.Approve(context.Background(), ApproveInput{PayoutID: id, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	completed := 0
	for i, err := range errs {
		if err == nil {
			completed++
			assert.Equal(t, enums.PayoutStatusCompleted, f.status(t, ids[i]))
			continue
		}
		assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientBalance))
		assert.Equal(t, enums.PayoutStatusPending, f.status(t, ids[i]))
	}
	assert.Equal(t, 1, completed)

	balance := f.balance(t, vendor.ID)
	assert.False(t, balance.IsNegative())
	assert.True(t, balance.Equal(dbtest.Dec("200.00")) || balance.Equal(dbtest.Dec("250.00")))
}

func TestRejectKeepsReferenceAndStoresReason(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "100.00")
	ref := "INV-7"
	payout, err := f.svc.Create(context.Background(), CreateInput{VendorID: vendor.ID, Amount: dbtest.Dec("40"), Method: enums.PayoutMethodBankTransfer, Reference: &ref, ActorUserID: owner, ActorRole: enums.RoleVendor})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), RejectInput{PayoutID: payout.ID, Reason: "bank details missing", ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "bank details missing", *rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	var stored models.VendorPayout
	require.NoError(t, f.conn.Where("id = ?", payout.ID).Take(&stored).Error)
	require.NotNil(t, stored.Reference)
	assert.Equal(t, "INV-7", *stored.Reference)
	require.NotNil(t, stored.RejectionReason)
	require.NotNil(t, stored.RejectedAt)
	assert.Nil(t, stored.ProcessedAt)
	assert.Nil(t, stored.ProcessedBy)
	assert.Nil(t, rejected.ProcessedAt)
	assert.True(t, f.balance(t, vendor.ID).Equal(dbtest.Dec("100.00")))

	_, err = f.svc.Approve(context.Background(), ApproveInput{PayoutID: payout.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())

	err = f.svc.Cancel(context.Background(), CancelInput{PayoutID: payout.ID, ActorUserID: owner})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
}

func TestCancelOnlyByRequesterWhilePending(t *testing.T) {
	f := newFixture(t, 10)
	vendor, owner := f.vendorWithBalance(t, "100.00")
	payout := f.request(t, vendor, owner, "40.00")
	ctx := context.Background()

	err := f.svc.Cancel(ctx, CancelInput{PayoutID: payout.ID, ActorUserID: f.admin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	require.NoError(t, f.svc.Cancel(ctx, CancelInput{PayoutID: payout.ID, ActorUserID: owner}))

	var count int64
	require.NoError(t, f.conn.Model(&models.VendorPayout{}).Where("id = ?", payout.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventPayoutCancelled))

	err = f.svc.Cancel(ctx, CancelInput{PayoutID: payout.ID, ActorUserID: owner})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestBulkApproveSkipsAndDebitsPerVendor(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	a, ownerA := f.vendorWithBalance(t, "500.00")
	b, ownerB := f.vendorWithBalance(t, "80.00")

	a1 := f.request(t, a, ownerA, "100.00")
	a2 := f.request(t, a, ownerA, "150.00")
	b1 := f.request(t, b, ownerB, "80.00")
	done := f.request(t, b, ownerB, "20.00")
	_, err := f.svc.Reject(ctx, RejectInput{PayoutID: done.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	missing := uuid.New()

	result, err := f.svc.BulkApprove(ctx, BulkApproveInput{
		PayoutIDs:   []uuid.UUID{a1.ID, a2.ID, b1.ID, done.ID, missing, a1.ID},
		ActorUserID: f.admin,
		ActorRole:   enums.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, result.Approved, 3)
	require.Len(t, result.Skipped, 2)

	reasons := map[uuid.UUID]string{}
	for _, skipped := range result.Skipped {
		reasons[skipped.PayoutID] = skipped.Reason
	}
	assert.Equal(t, "not_pending", reasons[done.ID])
	assert.Equal(t, "not_found", reasons[missing])

	assert.True(t, f.balance(t, a.ID).Equal(dbtest.Dec("250.00")))
	assert.True(t, f.balance(t, b.ID).IsZero())
	for _, id := range []uuid.UUID{a1.ID, a2.ID, b1.ID} {
		assert.Equal(t, enums.PayoutStatusCompleted, f.status(t, id))
	}
	assert.Equal(t, int64(3), f.countEvents(t, enums.EventPayoutCompleted))
}

func TestBulkApproveAbortsWholeBatchOnShortfall(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	a, ownerA := f.vendorWithBalance(t, "500.00")
	b, ownerB := f.vendorWithBalance(t, "100.00")

	a1 := f.request(t, a, ownerA, "300.00")
	a2 := f.request(t, a, ownerA, "250.00")
	b1 := f.request(t, b, ownerB, "50.00")

	_, err := f.svc.BulkApprove(ctx, BulkApproveInput{
		PayoutIDs:   []uuid.UUID{a1.ID, a2.ID, b1.ID},
		ActorUserID: f.admin,
		ActorRole:   enums.RoleAdmin,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrInsufficientBalance))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, a.ID.String(), details["vendorId"])

	for _, id := range []uuid.UUID{a1.ID, a2.ID, b1.ID} {
		assert.Equal(t, enums.PayoutStatusPending, f.status(t, id))
	}
	assert.True(t, f.balance(t, a.ID).Equal(dbtest.Dec("500.00")))
	assert.True(t, f.balance(t, b.ID).Equal(dbtest.Dec("100.00")))
	assert.Zero(t, f.countEvents(t, enums.EventPayoutCompleted))
}

func TestBulkApproveValidatesRequest(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.BulkApprove(ctx, BulkApproveInput{ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.BulkApprove(ctx, BulkApproveInput{
		PayoutIDs:   []uuid.UUID{uuid.New(), uuid.New(), uuid.Nil, uuid.New()},
		ActorUserID: f.admin,
		ActorRole:   enums.RoleAdmin,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["problems"], 2)

	_, err = f.svc.BulkApprove(ctx, BulkApproveInput{PayoutIDs: []uuid.UUID{uuid.New()}, ActorUserID: f.admin, ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestListFiltersSortsAndPages(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	a, ownerA := f.vendorWithBalance(t, "1000.00")
	b, ownerB := f.vendorWithBalance(t, "1000.00")

	f.request(t, a, ownerA, "30.00")
	f.request(t, a, ownerA, "10.00")
	f.request(t, a, ownerA, "20.00")
	rejected := f.request(t, a, ownerA, "40.00")
	f.request(t, b, ownerB, "99.00")
	_, err := f.svc.Reject(ctx, RejectInput{PayoutID: rejected.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)

	pending := enums.PayoutStatusPending
	list, err := f.svc.List(ctx, Filters{VendorID: &a.ID, Status: &pending, SortBy: SortAmount, SortDir: "asc"}, pagination.PageParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Payouts, 2)
	assert.True(t, list.Payouts[0].Amount.Equal(dbtest.Dec("10.00")))
	assert.True(t, list.Payouts[1].Amount.Equal(dbtest.Dec("20.00")))

	next, err := f.svc.List(ctx, Filters{VendorID: &a.ID, Status: &pending, SortBy: SortAmount, SortDir: "asc"}, pagination.PageParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, next.Payouts, 1)
	assert.True(t, next.Payouts[0].Amount.Equal(dbtest.Dec("30.00")))

	minAmount := dbtest.Dec("35")
	ranged, err := f.svc.List(ctx, Filters{MinAmount: &minAmount}, pagination.PageParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ranged.Total)

	_, err = f.svc.List(ctx, Filters{SortBy: "vendor_id; DROP TABLE vendor_payouts"}, pagination.PageParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	maxAmount := dbtest.Dec("1")
	_, err = f.svc.List(ctx, Filters{MinAmount: &minAmount, MaxAmount: &maxAmount}, pagination.PageParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetAuthorizesVendorOwner(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	vendor, owner := f.vendorWithBalance(t, "100.00")
	payout := f.request(t, vendor, owner, "25.00")

	got, err := f.svc.Get(ctx, GetInput{PayoutID: payout.ID, ActorUserID: owner, ActorRole: enums.RoleVendor})
	require.NoError(t, err)
	assert.Equal(t, payout.ID, got.ID)

	_, err = f.svc.Get(ctx, GetInput{PayoutID: payout.ID, ActorUserID: f.admin, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, GetInput{PayoutID: payout.ID, ActorUserID: uuid.New(), ActorRole: enums.RoleVendor})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
