package vendororders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger/internal/commission"
	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	"github.com/angelmondragon/vendorledger/pkg/db"
	"github.com/angelmondragon/vendorledger/pkg/db/models"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger/pkg/errors"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/metrics"
	"github.com/angelmondragon/vendorledger/pkg/money"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/outbox/payloads"
)

const vendorOrderConstraint = "vendor_orders_order_vendor_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CommissionResolver picks the commission percentage for a vendor.
type CommissionResolver interface {
	ResolvePercentage(ctx context.Context, tx *gorm.DB, override *decimal.Decimal) (decimal.Decimal, error)
}

// LedgerCrediter credits settled earnings inside the caller's transaction.
type LedgerCrediter interface {
	Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (*ledger.CreditResult, error)
	AvailableBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (decimal.Decimal, error)
}

// Service splits orders per vendor and drives vendor orders to settlement.
type Service interface {
	Split(ctx context.Context, input SplitInput) ([]VendorOrder, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusResult, error)
	Settle(ctx context.Context, input SettleInput) (*Settlement, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]VendorOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*VendorOrder, error)
}

type ServiceParams struct {
	Repo       Repository
	Vendors    vendors.Repository
	Commission CommissionResolver
	Ledger     LedgerCrediter
	Tx         txRunner
	Outbox     outboxPublisher
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	vendors    vendors.Repository
	commission CommissionResolver
	ledger     LedgerCrediter
	tx         txRunner
	outbox     outboxPublisher
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the vendor order service. Metrics and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendor orders repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if params.Commission == nil {
		return nil, fmt.Errorf("commission resolver required")
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
	return &service{
		repo:       params.Repo,
		vendors:    params.Vendors,
		commission: params.Commission,
		ledger:     params.Ledger,
		tx:         params.Tx,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

type vendorGroup struct {
	vendorID uuid.UUID
	subtotal decimal.Decimal
	items    int
}

func (s *service) Split(ctx context.Context, input SplitInput) ([]VendorOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var created []models.VendorOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		existing, err := repo.CountByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendor orders")
		}
		if existing > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already split").
				WithDetails(map[string]any{"orderId": order.ID.String(), "vendorOrders": existing})
		}

		items, err := repo.ListOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		if len(items) == 0 {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, pkgerrors.ErrEmptyOrder, "order has no items").
				WithDetails(map[string]any{"reason": "empty_order", "orderId": order.ID.String()})
		}

		groups := groupByVendor(items)
		if err := s.ensureVendorsExist(ctx, tx, groups); err != nil {
			return err
		}

		itemsTotal := decimal.Zero
		for _, g := range groups {
			itemsTotal = itemsTotal.Add(g.subtotal)
		}
		expected := money.Round2(itemsTotal.Add(order.TaxAmount).Add(order.Shipping).Sub(order.Discount))
		if !expected.Equal(money.Round2(order.Total)) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "order total does not reconcile with its items").
				WithDetails(map[string]any{
					"reason":   "total_mismatch",
					"total":    order.Total.String(),
					"expected": expected.String(),
				})
		}

		created, err = buildVendorOrders(order, groups, s.now())
		if err != nil {
			return err
		}
		if err := repo.CreateVendorOrders(ctx, created); err != nil {
			if db.IsUniqueViolation(err, vendorOrderConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already split").
					WithDetails(map[string]any{"orderId": order.ID.String()})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor orders")
		}

		slices := make([]payloads.VendorOrderSlice, 0, len(created))
		for i, vo := range created {
			assigned, err := repo.AssignItems(ctx, order.ID, vo.VendorID, vo.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order items")
			}
			if int(assigned) != groups[i].items {
				return pkgerrors.New(pkgerrors.CodeConflict, "order items changed during split").
					WithDetails(map[string]any{"vendorId": vo.VendorID.String()})
			}
			slices = append(slices, payloads.VendorOrderSlice{
				VendorOrderID: vo.ID,
				VendorID:      vo.VendorID,
				Total:         vo.Total,
				ItemCount:     groups[i].items,
			})
		}

		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorOrdersSplit,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(enums.RoleAdmin)},
			Data: payloads.VendorOrdersSplitEvent{
				OrderID:      order.ID,
				OrderTotal:   order.Total,
				VendorOrders: slices,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":      input.OrderID.String(),
			"vendor_orders": len(created),
		})
		s.logg.Info(logCtx, "order.split")
	}

	views := make([]VendorOrder, len(created))
	for i := range created {
		views[i] = *fromModel(&created[i])
	}
	return views, nil
}

func (s *service) ensureVendorsExist(ctx context.Context, tx *gorm.DB, groups []vendorGroup) error {
	ids := make([]uuid.UUID, len(groups))
	for i, g := range groups {
		ids[i] = g.vendorID
	}
	found, err := s.vendors.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendors")
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, v := range found {
		known[v.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, pkgerrors.ErrUnknownVendor, "order references unknown vendors").
			WithDetails(map[string]any{"reason": "unknown_vendor", "vendorIds": missing})
	}
	return nil
}

// groupByVendor sums line totals per vendor in order of first appearance.
func groupByVendor(items []models.OrderItem) []vendorGroup {
	index := map[uuid.UUID]int{}
	var groups []vendorGroup
	for _, item := range items {
		i, ok := index[item.VendorID]
		if !ok {
			i = len(groups)
			index[item.VendorID] = i
			groups = append(groups, vendorGroup{vendorID: item.VendorID, subtotal: decimal.Zero})
		}
		groups[i].subtotal = groups[i].subtotal.Add(item.LineTotal)
		groups[i].items++
	}
	for i := range groups {
		groups[i].subtotal = money.Round2(groups[i].subtotal)
	}
	return groups
}

// buildVendorOrders allocates the order-level amounts across vendors by
// subtotal. Each allocation sums exactly to the order amount.
func buildVendorOrders(order *models.Order, groups []vendorGroup, now time.Time) ([]models.VendorOrder, error) {
	weights := make([]decimal.Decimal, len(groups))
	for i, g := range groups {
		weights[i] = g.subtotal
	}
	taxes := money.Allocate(order.TaxAmount, weights)
	shipping := money.Allocate(order.Shipping, weights)
	discounts := money.Allocate(order.Discount, weights)

	orders := make([]models.VendorOrder, len(groups))
	for i, g := range groups {
		total := money.Round2(g.subtotal.Add(taxes[i]).Add(shipping[i]).Sub(discounts[i]))
		if total.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "vendor order total would be negative").
				WithDetails(map[string]any{"reason": "negative_total", "vendorId": g.vendorID.String()})
		}
		orders[i] = models.VendorOrder{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VendorID:  g.vendorID,
			Status:    enums.VendorOrderStatusPending,
			Subtotal:  g.subtotal,
			TaxAmount: taxes[i],
			Shipping:  shipping[i],
			Discount:  discounts[i],
			Total:     total,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusResult, error) {
	if input.VendorOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor order status").
			WithDetails(map[string]any{"field": "status", "value": string(input.Status)})
	}

	var result StatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vo, err := s.lockVendorOrder(ctx, repo, input.VendorOrderID)
		if err != nil {
			return err
		}

		from := vo.Status
		if !canTransition(from, input.Status) {
			return invalidTransition(vo, input.Status)
		}
		now := s.now()
		rows, err := repo.UpdateStatus(ctx, vo.ID, from, input.Status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor order status")
		}
		if rows == 0 {
			return invalidTransition(vo, input.Status)
		}
		vo.Status = input.Status
		vo.UpdatedAt = now

		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorOrderStatus,
			AggregateType: enums.AggregateVendorOrder,
			AggregateID:   vo.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, VendorID: &vo.VendorID},
			Data: payloads.VendorOrderStatusChangedEvent{
				VendorOrderID: vo.ID,
				OrderID:       vo.OrderID,
				VendorID:      vo.VendorID,
				From:          from,
				To:            input.Status,
			},
			OccurredAt: now,
		}); err != nil {
			return err
		}

		if input.Status.IsSettleable() {
			settlement, err := s.settle(ctx, tx, vo, input.ActorUserID)
			if err != nil {
				return err
			}
			result.Settlement = settlement
		}
		result.VendorOrder = fromModel(vo)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordSettlement(ctx, result.Settlement)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_order_id": input.VendorOrderID.String(),
			"status":          string(input.Status),
		})
		s.logg.Info(logCtx, "vendor_order.status_changed")
	}
	return &result, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*Settlement, error) {
	if input.VendorOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var settlement *Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		vo, err := s.lockVendorOrder(ctx, s.repo.WithTx(tx), input.VendorOrderID)
		if err != nil {
			return err
		}
		settlement, err = s.settle(ctx, tx, vo, input.ActorUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordSettlement(ctx, settlement)
	return settlement, nil
}

// settle credits the vendor's share of the vendor order once. Callers hold
// the vendor order row lock.
func (s *service) settle(ctx context.Context, tx *gorm.DB, vo *models.VendorOrder, actor uuid.UUID) (*Settlement, error) {
	if vo.SettledAt != nil {
		return s.alreadySettled(ctx, tx, vo)
	}
	if !vo.Status.IsSettleable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "vendor order is not delivered").
			WithDetails(map[string]any{
				"reason":        "not_settleable",
				"currentStatus": string(vo.Status),
			})
	}

	vendor, err := s.vendors.WithTx(tx).FindByID(ctx, vo.VendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, pkgerrors.ErrVendorNotFound, "vendor not found").
				WithDetails(map[string]any{"vendorId": vo.VendorID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	pct, err := s.commission.ResolvePercentage(ctx, tx, vendor.CommissionPct)
	if err != nil {
		return nil, err
	}
	breakdown, err := commission.Calculate(vo.Total, pct)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows, err := s.repo.WithTx(tx).MarkSettled(ctx, vo.ID, SettlementValues{
		CommissionPct:    breakdown.Percentage,
		CommissionAmount: breakdown.CommissionAmount,
		VendorAmount:     breakdown.VendorAmount,
		SettledAt:        now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark vendor order settled")
	}
	if rows == 0 {
		fresh, err := s.repo.WithTx(tx).FindVendorOrder(ctx, vo.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload vendor order")
		}
		return s.alreadySettled(ctx, tx, fresh)
	}
	vo.CommissionPct = &breakdown.Percentage
	vo.CommissionAmount = &breakdown.CommissionAmount
	vo.VendorAmount = &breakdown.VendorAmount
	vo.SettledAt = &now

	credit, err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
		VendorID:      vo.VendorID,
		VendorOrderID: vo.ID,
		Amount:        breakdown.VendorAmount,
		Metadata: map[string]any{
			"order_id":          vo.OrderID.String(),
			"order_total":       breakdown.OrderTotal.String(),
			"commission_pct":    breakdown.Percentage.String(),
			"commission_amount": breakdown.CommissionAmount.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	settlement := &Settlement{
		VendorOrderID:    vo.ID,
		VendorID:         vo.VendorID,
		OrderTotal:       breakdown.OrderTotal,
		CommissionPct:    breakdown.Percentage,
		CommissionAmount: breakdown.CommissionAmount,
		VendorAmount:     breakdown.VendorAmount,
		BalanceAfter:     credit.BalanceAfter,
		SettledAt:        now,
		AlreadySettled:   credit.AlreadyCredited,
	}
	if err := s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventVendorOrderSettled,
		AggregateType: enums.AggregateVendorOrder,
		AggregateID:   vo.ID,
		Actor:         &outbox.ActorRef{UserID: actor, VendorID: &vo.VendorID},
		Data: payloads.VendorOrderSettledEvent{
			VendorOrderID:    vo.ID,
			VendorID:         vo.VendorID,
			OrderTotal:       settlement.OrderTotal,
			CommissionPct:    settlement.CommissionPct,
			CommissionAmount: settlement.CommissionAmount,
			VendorAmount:     settlement.VendorAmount,
			BalanceAfter:     settlement.BalanceAfter,
			SettledAt:        now,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *service) alreadySettled(ctx context.Context, tx *gorm.DB, vo *models.VendorOrder) (*Settlement, error) {
	balance, err := s.ledger.AvailableBalance(ctx, tx, vo.VendorID)
	if err != nil {
		return nil, err
	}
	return storedSettlement(vo, balance), nil
}

func (s *service) recordSettlement(ctx context.Context, settlement *Settlement) {
	if settlement == nil || settlement.AlreadySettled {
		return
	}
	s.metrics.ObserveLedgerMovement(string(enums.LedgerEntryCredit), settlement.VendorAmount)
	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, settlement.VendorID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"vendor_order_id":   settlement.VendorOrderID.String(),
			"commission_amount": settlement.CommissionAmount.String(),
			"vendor_amount":     settlement.VendorAmount.String(),
		})
		s.logg.Info(logCtx, "vendor_order.settled")
	}
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]VendorOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	exists, err := s.repo.OrderExists(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	views := make([]VendorOrder, len(rows))
	for i := range rows {
		views[i] = *fromModel(&rows[i])
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VendorOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor order id required")
	}
	row, err := s.repo.FindVendorOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor order")
	}
	return fromModel(row), nil
}

func (s *service) lockVendorOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.VendorOrder, error) {
	vo, err := repo.LockVendorOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor order")
	}
	return vo, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(event.EventType))
	}
	return nil
}

func invalidTransition(vo *models.VendorOrder, requested enums.VendorOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "vendor order status change not allowed").
		WithDetails(map[string]any{
			"currentStatus":   string(vo.Status),
			"requestedStatus": string(requested),
		})
}
