package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/pkg/db"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/money"
	"github.com/angelmondragon/vendorledger/pkg/pagination"
)

const creditConstraint = "ledger_entries_credit_vendor_order_key"

// Service owns vendor balances. Credit and Debit run inside the caller's
// transaction and are the only writers of vendor_balances.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*CreditResult, error)
	Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*DebitResult, error)
	Balance(ctx context.Context, vendorID uuid.UUID) (*BalanceView, error)
	AvailableBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (decimal.Decimal, error)
	Entries(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*EntryList, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires a ledger service with the provided repository. logg may be nil.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*CreditResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.VendorID == uuid.Nil || input.VendorOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id and vendor order id required")
	}
	amount := money.Round2(input.Amount)
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must not be negative").
			WithDetails(map[string]any{"field": "amount", "value": amount.String()})
	}

	repo := s.repo.WithTx(tx)
	now := s.now()
	if err := repo.EnsureBalance(ctx, input.VendorID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor balance")
	}
	balance, err := repo.LockBalance(ctx, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
	}

	existing, err := repo.FindCredit(ctx, input.VendorOrderID)
	switch {
	case err == nil:
		return &CreditResult{Entry: existing, BalanceAfter: balance.Balance, AlreadyCredited: true}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor order credit")
	}

	metadata, err := encodeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}
	balance.Balance = balance.Balance.Add(amount)
	balance.TotalCredited = balance.TotalCredited.Add(amount)
	balance.UpdatedAt = now

	vendorOrderID := input.VendorOrderID
	entry := models.LedgerEntry{
		ID:            uuid.New(),
		VendorID:      input.VendorID,
		Type:          enums.LedgerEntryCredit,
		Amount:        amount,
		BalanceAfter:  balance.Balance,
		VendorOrderID: &vendorOrderID,
		Metadata:      metadata,
		CreatedAt:     now,
	}
	if err := repo.CreateEntries(ctx, []models.LedgerEntry{entry}); err != nil {
		if db.IsUniqueViolation(err, creditConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "vendor order already credited").
				WithDetails(map[string]any{"vendorOrderId": vendorOrderID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit entry")
	}
	if err := repo.UpdateBalance(ctx, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor balance")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":       input.VendorID.String(),
			"vendor_order_id": vendorOrderID.String(),
			"amount":          amount.String(),
			"balance_after":   balance.Balance.String(),
		})
		s.logg.Info(logCtx, "ledger.credited")
	}
	return &CreditResult{Entry: &entry, BalanceAfter: balance.Balance}, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*DebitResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Payouts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one payout required")
	}
	for _, p := range input.Payouts {
		if p.PayoutID == uuid.Nil || !p.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit requires a payout id and a positive amount").
				WithDetails(map[string]any{"payoutId": p.PayoutID.String(), "amount": p.Amount.String()})
		}
	}
	total := money.Round2(input.total())

	repo := s.repo.WithTx(tx)
	balance, err := repo.LockBalance(ctx, input.VendorID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		balance = &models.VendorBalance{VendorID: input.VendorID}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
	}

	if total.GreaterThan(balance.Balance) {
		return nil, insufficientBalance(input.VendorID, balance.Balance, total)
	}

	metadata, err := encodeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}
	now := s.now()
	running := balance.Balance
	entries := make([]models.LedgerEntry, 0, len(input.Payouts))
	for _, p := range input.Payouts {
		payoutID := p.PayoutID
		amount := money.Round2(p.Amount)
		running = running.Sub(amount)
		entries = append(entries, models.LedgerEntry{
			ID:           uuid.New(),
			VendorID:     input.VendorID,
			Type:         enums.LedgerEntryDebit,
			Amount:       amount,
			BalanceAfter: running,
			PayoutID:     &payoutID,
			Metadata:     metadata,
			CreatedAt:    now,
		})
	}
	if err := repo.CreateEntries(ctx, entries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create debit entries")
	}

	balance.Balance = balance.Balance.Sub(total)
	balance.TotalDebited = balance.TotalDebited.Add(total)
	balance.UpdatedAt = now
	if err := repo.UpdateBalance(ctx, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor balance")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":     input.VendorID.String(),
			"payouts":       len(entries),
			"amount":        total.String(),
			"balance_after": balance.Balance.String(),
		})
		s.logg.Info(logCtx, "ledger.debited")
	}
	return &DebitResult{Entries: entries, BalanceAfter: balance.Balance}, nil
}

func (s *service) Balance(ctx context.Context, vendorID uuid.UUID) (*BalanceView, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	row, err := s.repo.FindBalance(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &BalanceView{
				VendorID:      vendorID,
				Balance:       decimal.Zero,
				TotalCredited: decimal.Zero,
				TotalDebited:  decimal.Zero,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor balance")
	}
	return balanceFromModel(row), nil
}

// AvailableBalance reads the balance inside tx without locking it.
func (s *service) AvailableBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (decimal.Decimal, error) {
	row, err := s.repo.WithTx(tx).FindBalance(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor balance")
	}
	return row.Balance, nil
}

func (s *service) Entries(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*EntryList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListEntries(ctx, vendorID, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	list := &EntryList{Entries: make([]EntryView, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	for _, row := range rows {
		list.Entries = append(list.Entries, entryFromModel(row))
	}
	return list, nil
}

func insufficientBalance(vendorID uuid.UUID, available, requested decimal.Decimal) error {
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrInsufficientBalance, "insufficient balance").
		WithDetails(map[string]any{
			"reason":    "insufficient_balance",
			"vendorId":  vendorID.String(),
			"available": available.String(),
			"requested": requested.String(),
		})
}

func encodeMetadata(meta map[string]any) (json.RawMessage, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
	}
	return raw, nil
}
