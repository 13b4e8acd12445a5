package payouts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/metrics"
	"github.com/angelmondragon/vendorledger/pkg/money"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// VendorAuthorizer resolves a vendor and checks the caller may act for it.
type VendorAuthorizer interface {
	Authorize(ctx context.Context, vendorID, userID uuid.UUID, role enums.Role) (*models.Vendor, error)
}

// BalanceLedger debits completed payouts and reports available balance.
type BalanceLedger interface {
	Debit(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*ledger.DebitResult, error)
	AvailableBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (decimal.Decimal, error)
}

// Service manages the payout request lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Payout, error)
	Approve(ctx context.Context, input ApproveInput) (*Payout, error)
	Reject(ctx context.Context, input RejectInput) (*Payout, error)
	Cancel(ctx context.Context, input CancelInput) error
	BulkApprove(ctx context.Context, input BulkApproveInput) (*BulkApproveResult, error)
	List(ctx context.Context, filters Filters, page pagination.PageParams) (*PayoutList, error)
	Get(ctx context.Context, input GetInput) (*Payout, error)
}

type ServiceParams struct {
	Repo         Repository
	Vendors      VendorAuthorizer
	Ledger       BalanceLedger
	Tx           txRunner
	Outbox       outboxPublisher
	MinAmount    decimal.Decimal
	MaxBulkBatch int
	Metrics      *metrics.SettlementMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         Repository
	vendors      VendorAuthorizer
	ledger       BalanceLedger
	tx           txRunner
	outbox       outboxPublisher
	minAmount    decimal.Decimal
	maxBulkBatch int
	metrics      *metrics.SettlementMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the payout service. MinAmount and MaxBulkBatch come
// from configuration.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor authorizer required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.MinAmount.IsNegative() {
		return nil, fmt.Errorf("minimum payout must not be negative")
	}
	if params.MaxBulkBatch <= 0 {
		return nil, fmt.Errorf("max bulk batch must be positive")
	}
	return &service{
		repo:         params.Repo,
		vendors:      params.Vendors,
		ledger:       params.Ledger,
		tx:           params.Tx,
		outbox:       params.Outbox,
		minAmount:    params.MinAmount,
		maxBulkBatch: params.MaxBulkBatch,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Payout, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout method").
			WithDetails(map[string]any{"field": "method", "value": string(input.Method)})
	}

	if _, err := s.vendors.Authorize(ctx, input.VendorID, input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}

	amount := money.Round2(input.Amount)
	if !amount.IsPositive() || amount.LessThan(s.minAmount) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrBelowMinimum,
			fmt.Sprintf("payout amount must be at least %s", s.minAmount.StringFixed(money.Scale))).
			WithDetails(map[string]any{
				"reason":  "below_minimum",
				"field":   "amount",
				"value":   amount.String(),
				"minimum": s.minAmount.StringFixed(money.Scale),
			})
	}

	reference := trimmedOrNil(input.Reference)
	requestedBy := input.ActorUserID
	var created *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		available, err := s.ledger.AvailableBalance(ctx, tx, input.VendorID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrInsufficientBalance, "insufficient balance").
				WithDetails(map[string]any{
					"reason":    "insufficient_balance",
					"vendorId":  input.VendorID.String(),
					"available": available.String(),
					"requested": amount.String(),
				})
		}

		now := s.now()
		row := &models.VendorPayout{
			ID:          uuid.New(),
			VendorID:    input.VendorID,
			RequestedBy: &requestedBy,
			Amount:      amount,
			Method:      input.Method,
			Reference:   reference,
			Status:      enums.PayoutStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		created = row

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: requestedBy, VendorID: &row.VendorID, Role: string(input.ActorRole)},
			Data: payloads.PayoutRequestedEvent{
				PayoutID:    row.ID,
				VendorID:    row.VendorID,
				RequestedBy: requestedBy,
				Amount:      row.Amount,
				Method:      row.Method,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusPending))
	s.logTransition(ctx, created, "payout.requested")
	return fromModel(created), nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*Payout, error) {
	if err := requireAdmin(input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}

	var approved *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := lockPending(ctx, repo, input.PayoutID)
		if err != nil {
			return err
		}

		debit, err := s.ledger.Debit(ctx, tx, ledger.DebitInput{
			VendorID: payout.VendorID,
			Payouts:  []ledger.PayoutDebit{{PayoutID: payout.ID, Amount: payout.Amount}},
			Metadata: map[string]any{"method": string(payout.Method)},
		})
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.complete(ctx, tx, payout, input.ActorUserID, debit.BalanceAfter, now, false); err != nil {
			return err
		}
		approved = payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusCompleted))
	s.metrics.ObserveLedgerMovement(string(enums.LedgerEntryDebit), approved.Amount)
	s.logTransition(ctx, approved, "payout.approved")
	return fromModel(approved), nil
}

// complete moves a locked pending payout to completed and emits the event.
func (s *service) complete(ctx context.Context, tx *gorm.DB, payout *models.VendorPayout, actor uuid.UUID, balanceAfter decimal.Decimal, now time.Time, bulk bool) error {
	rows, err := s.repo.WithTx(tx).MarkCompleted(ctx, payout.ID, actor, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payout")
	}
	if rows == 0 {
		return invalidTransition(payout)
	}
	payout.Status = enums.PayoutStatusCompleted
	payout.ProcessedAt = &now
	payout.ProcessedBy = &actor
	payout.UpdatedAt = now

	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutCompleted,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         &outbox.ActorRef{UserID: actor, Role: string(enums.RoleAdmin)},
		Data: payloads.PayoutCompletedEvent{
			PayoutID:     payout.ID,
			VendorID:     payout.VendorID,
			Amount:       payout.Amount,
			BalanceAfter: balanceAfter,
			ProcessedAt:  now,
			ProcessedBy:  actor,
			Bulk:         bulk,
		},
		OccurredAt: now,
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*Payout, error) {
	if err := requireAdmin(input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	reason := trimmedOrNil(&input.Reason)

	var rejected *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := lockPending(ctx, repo, input.PayoutID)
		if err != nil {
			return err
		}

		now := s.now()
		rows, err := repo.MarkRejected(ctx, payout.ID, reason, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payout")
		}
		if rows == 0 {
			return invalidTransition(payout)
		}
		payout.Status = enums.PayoutStatusRejected
		payout.RejectionReason = reason
		payout.RejectedAt = &now
		payout.UpdatedAt = now
		rejected = payout

		data := payloads.PayoutRejectedEvent{PayoutID: payout.ID, VendorID: payout.VendorID, RejectedAt: now}
		if reason != nil {
			data.Reason = *reason
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRejected,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(enums.RoleAdmin)},
			Data:          data,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusRejected))
	s.logTransition(ctx, rejected, "payout.rejected")
	return fromModel(rejected), nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PayoutID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}

	var cancelled *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.LockByID(ctx, input.PayoutID)
		if err != nil {
			return mapLookupError(err)
		}
		if payout.RequestedBy == nil || *payout.RequestedBy != input.ActorUserID {
			return pkgerrors.Wrap(pkgerrors.CodeForbidden, pkgerrors.ErrUnauthorizedRequester, "only the requester may cancel a payout")
		}
		if payout.Status != enums.PayoutStatusPending {
			return invalidTransition(payout)
		}

		rows, err := repo.DeletePending(ctx, payout.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payout")
		}
		if rows == 0 {
			current, err := repo.FindByID(ctx, payout.ID)
			if err != nil {
				return mapLookupError(err)
			}
			return invalidTransition(current)
		}
		cancelled = payout

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCancelled,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, VendorID: &payout.VendorID},
			Data: payloads.PayoutCancelledEvent{
				PayoutID:    payout.ID,
				VendorID:    payout.VendorID,
				Amount:      payout.Amount,
				CancelledBy: input.ActorUserID,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logTransition(ctx, cancelled, "payout.cancelled")
	return nil
}

func (s *service) BulkApprove(ctx context.Context, input BulkApproveInput) (*BulkApproveResult, error) {
	if err := requireAdmin(input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	ids, err := s.validateBulkIDs(input.PayoutIDs)
	if err != nil {
		return nil, err
	}

	result := &BulkApproveResult{Approved: []Payout{}, Skipped: []SkippedPayout{}}
	var debited []decimal.Decimal
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payouts")
		}

		found := make(map[uuid.UUID]*models.VendorPayout, len(locked))
		for i := range locked {
			found[locked[i].ID] = &locked[i]
		}

		byVendor := map[uuid.UUID][]*models.VendorPayout{}
		for _, id := range ids {
			payout, ok := found[id]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedPayout{PayoutID: id, Reason: skipNotFound})
				continue
			}
			if payout.Status != enums.PayoutStatusPending {
				status := payout.Status
				result.Skipped = append(result.Skipped, SkippedPayout{PayoutID: id, Reason: skipNotPending, CurrentStatus: &status})
				continue
			}
			byVendor[payout.VendorID] = append(byVendor[payout.VendorID], payout)
		}

		vendorIDs := make([]uuid.UUID, 0, len(byVendor))
		for vendorID := range byVendor {
			vendorIDs = append(vendorIDs, vendorID)
		}
		sortIDs(vendorIDs)

		now := s.now()
		for _, vendorID := range vendorIDs {
			batch := byVendor[vendorID]
			debits := make([]ledger.PayoutDebit, len(batch))
			for i, payout := range batch {
				debits[i] = ledger.PayoutDebit{PayoutID: payout.ID, Amount: payout.Amount}
			}
			debit, err := s.ledger.Debit(ctx, tx, ledger.DebitInput{
				VendorID: vendorID,
				Payouts:  debits,
				Metadata: map[string]any{"bulk": true},
			})
			if err != nil {
				return err
			}
			for i, payout := range batch {
				if err := s.complete(ctx, tx, payout, input.ActorUserID, debit.Entries[i].BalanceAfter, now, true); err != nil {
					return err
				}
				result.Approved = append(result.Approved, *fromModel(payout))
				debited = append(debited, payout.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, amount := range debited {
		s.metrics.IncPayoutTransition(string(enums.PayoutStatusCompleted))
		s.metrics.ObserveLedgerMovement(string(enums.LedgerEntryDebit), amount)
	}
	s.metrics.ObserveBulkBatch(len(result.Approved))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"approved": len(result.Approved),
			"skipped":  len(result.Skipped),
		})
		s.logg.Info(logCtx, "payout.bulk_approved")
	}
	return result, nil
}

// validateBulkIDs dedupes ids and returns them sorted.
func (s *service) validateBulkIDs(ids []uuid.UUID) ([]uuid.UUID, error) {
	var errs error
	if len(ids) == 0 {
		errs = multierr.Append(errs, errors.New("payoutIds must not be empty"))
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for i, id := range ids {
		if id == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("payoutIds[%d] must be a non-nil uuid", i))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) > s.maxBulkBatch {
		errs = multierr.Append(errs, fmt.Errorf("at most %d payouts per batch", s.maxBulkBatch))
	}
	if errs != nil {
		return nil, validationErrors("invalid bulk approve request", errs)
	}
	sortIDs(unique)
	return unique, nil
}

func (s *service) List(ctx context.Context, filters Filters, page pagination.PageParams) (*PayoutList, error) {
	filters, err := normalizeFilters(filters)
	if err != nil {
		return nil, err
	}
	page = page.Normalize()

	rows, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	list := &PayoutList{
		Payouts:    make([]Payout, len(rows)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: pagination.TotalPages(total, page.PageSize),
	}
	for i := range rows {
		list.Payouts[i] = *fromModel(&rows[i])
	}
	return list, nil
}

func normalizeFilters(filters Filters) (Filters, error) {
	var errs error
	if filters.SortBy == "" {
		filters.SortBy = SortCreatedAt
	}
	if _, ok := sortColumns[filters.SortBy]; !ok {
		errs = multierr.Append(errs, fmt.Errorf("sortBy %q is not supported", filters.SortBy))
	}
	switch strings.ToLower(filters.SortDir) {
	case "":
		filters.SortDir = "DESC"
	case "asc":
		filters.SortDir = "ASC"
	case "desc":
		filters.SortDir = "DESC"
	default:
		errs = multierr.Append(errs, fmt.Errorf("sortDir %q must be asc or desc", filters.SortDir))
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("status %q is not a payout status", *filters.Status))
	}
	if filters.MinAmount != nil && filters.MaxAmount != nil && filters.MinAmount.GreaterThan(*filters.MaxAmount) {
		errs = multierr.Append(errs, errors.New("minAmount must not exceed maxAmount"))
	}
	if filters.CreatedFrom != nil && filters.CreatedTo != nil && filters.CreatedFrom.After(*filters.CreatedTo) {
		errs = multierr.Append(errs, errors.New("createdFrom must not be after createdTo"))
	}
	if errs != nil {
		return filters, validationErrors("invalid payout filters", errs)
	}
	return filters, nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*Payout, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	row, err := s.repo.FindByID(ctx, input.PayoutID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if input.ActorRole != enums.RoleAdmin {
		if _, err := s.vendors.Authorize(ctx, row.VendorID, input.ActorUserID, input.ActorRole); err != nil {
			return nil, err
		}
	}
	return fromModel(row), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(event.EventType))
	}
	return nil
}

func (s *service) logTransition(ctx context.Context, payout *models.VendorPayout, msg string) {
	if s.logg == nil || payout == nil {
		return
	}
	logCtx := s.logg.WithPayoutID(ctx, payout.ID.String())
	logCtx = s.logg.WithVendorID(logCtx, payout.VendorID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"amount": payout.Amount.String(),
		"status": string(payout.Status),
	})
	s.logg.Info(logCtx, msg)
}

func lockPending(ctx context.Context, repo Repository, id uuid.UUID) (*models.VendorPayout, error) {
	payout, err := repo.LockByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if payout.Status != enums.PayoutStatusPending {
		return nil, invalidTransition(payout)
	}
	return payout, nil
}

func requireAdmin(actor uuid.UUID, role enums.Role) error {
	if actor == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
}

func invalidTransition(payout *models.VendorPayout) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout is no longer pending").
		WithDetails(map[string]any{
			"payoutId":      payout.ID.String(),
			"currentStatus": string(payout.Status),
		})
}

func validationErrors(msg string, errs error) error {
	problems := make([]string, 0)
	for _, e := range multierr.Errors(errs) {
		problems = append(problems, e.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, msg).
		WithDetails(map[string]any{"problems": problems})
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
