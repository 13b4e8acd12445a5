package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the platform commission log and computes breakdowns.
type Service interface {
	Current(ctx context.Context) (*Setting, error)
	SetCurrent(ctx context.Context, input SetCurrentInput) (*Setting, error)
	History(ctx context.Context, filter HistoryFilter) ([]Setting, error)
	ResetToDefault(ctx context.Context, actorUserID uuid.UUID) (*Setting, error)
	ResolvePercentage(ctx context.Context, tx *gorm.DB, override *decimal.Decimal) (decimal.Decimal, error)
	Calculate(ctx context.Context, input CalculateInput) (*Breakdown, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ceiling decimal.Decimal
	now     func() time.Time
}

// NewService wires the commission service. ceiling is the highest
// percentage an admin may set.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ceiling decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ceiling.IsNegative() || ceiling.GreaterThan(maxPercentage) {
		return nil, fmt.Errorf("commission ceiling must be between 0 and 100")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		ceiling: ceiling,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Current(ctx context.Context) (*Setting, error) {
	return s.current(ctx, s.repo)
}

func (s *service) current(ctx context.Context, repo Repository) (*Setting, error) {
	row, err := repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultSetting(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission setting")
	}
	return fromModel(row), nil
}

func (s *service) SetCurrent(ctx context.Context, input SetCurrentInput) (*Setting, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.validateWritable(input.Percentage); err != nil {
		return nil, err
	}

	pct := input.Percentage.Round(2)
	var result *Setting
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		previous := decimal.Zero
		row, err := repo.LatestForUpdate(ctx)
		switch {
		case err == nil:
			previous = row.Commission
			if err := repo.UpdateCommission(ctx, row.ID, pct, input.ActorUserID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission setting")
			}
			row.Commission = pct
			row.UpdatedBy = &input.ActorUserID
			row.UpdatedAt = now
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = &models.CommissionSetting{
				ID:         uuid.New(),
				Commission: pct,
				UpdatedBy:  &input.ActorUserID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := repo.Create(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission setting")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commission setting")
		}

		if err := s.emitChanged(ctx, tx, row, previous, input.ActorUserID, false); err != nil {
			return err
		}
		result = fromModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ResetToDefault(ctx context.Context, actorUserID uuid.UUID) (*Setting, error) {
	if actorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *Setting
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		previous := decimal.Zero
		latest, err := repo.LatestForUpdate(ctx)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commission setting")
		}
		if latest != nil {
			previous = latest.Commission
		}

		now := s.now()
		row := &models.CommissionSetting{
			ID:         uuid.New(),
			Commission: decimal.Zero,
			UpdatedBy:  &actorUserID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append default commission")
		}
		if err := s.emitChanged(ctx, tx, row, previous, actorUserID, true); err != nil {
			return err
		}
		result = fromModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) History(ctx context.Context, filter HistoryFilter) ([]Setting, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithDetails(map[string]any{"field": "from"})
	}
	rows, err := s.repo.ListBetween(ctx, filter.From, filter.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission history")
	}
	history := make([]Setting, len(rows))
	for i := range rows {
		history[i] = *fromModel(&rows[i])
	}
	return history, nil
}

// ResolvePercentage returns override when set, else the current platform
// commission. A non-nil tx reads inside the caller's transaction.
func (s *service) ResolvePercentage(ctx context.Context, tx *gorm.DB, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		return *override, nil
	}
	current, err := s.current(ctx, s.repo.WithTx(tx))
	if err != nil {
		return decimal.Zero, err
	}
	return current.Percentage, nil
}

func (s *service) Calculate(ctx context.Context, input CalculateInput) (*Breakdown, error) {
	pct, err := s.ResolvePercentage(ctx, nil, input.Percentage)
	if err != nil {
		return nil, err
	}
	breakdown, err := Calculate(input.OrderTotal, pct)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

func (s *service) validateWritable(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(s.ceiling) {
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrInvalidCommission,
			fmt.Sprintf("commission must be between 0 and %s", s.ceiling.String())).
			WithDetails(map[string]any{
				"field":   "percentage",
				"value":   pct.String(),
				"ceiling": s.ceiling.String(),
			})
	}
	return nil
}

func (s *service) emitChanged(ctx context.Context, tx *gorm.DB, row *models.CommissionSetting, previous decimal.Decimal, actor uuid.UUID, reset bool) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventCommissionChanged,
		AggregateType: enums.AggregateCommissionSetting,
		AggregateID:   row.ID,
		Actor:         &outbox.ActorRef{UserID: actor, Role: string(enums.RoleAdmin)},
		Data: payloads.CommissionChangedEvent{
			SettingID:  row.ID,
			Commission: row.Commission,
			Previous:   previous,
			Reset:      reset,
		},
		OccurredAt: row.UpdatedAt,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit commission changed event")
	}
	return nil
}
