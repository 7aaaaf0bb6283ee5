package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/metrics"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
	"github.com/nmviana/vendimia-backend/pkg/outbox/payloads"
)

const orderIDUniqueIndex = "ux_commission_entries_order_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RecordOrderInput captures one settled order to accrue commission for.
type RecordOrderInput struct {
	VendorID   uuid.UUID
	OrderID    uuid.UUID
	CategoryID *uuid.UUID
	OrderTotal decimal.Decimal
	Currency   enums.Currency
	SettledAt  time.Time
}

// LedgerParams groups dependencies for the commission ledger.
type LedgerParams struct {
	TX       txRunner
	Repo     Repository
	Resolver *Resolver
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.SettlementMetrics
}

// Ledger is the append-only record of the platform's commission earnings.
// Amounts are computed once at record time and never recalculated.
type Ledger struct {
	tx       txRunner
	repo     Repository
	resolver *Resolver
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

// NewLedger builds the commission ledger service.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.TX == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("commission repository is required")
	}
	if params.Resolver == nil {
		return nil, errors.New("rate resolver is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &Ledger{
		tx:       params.TX,
		repo:     params.Repo,
		resolver: params.Resolver,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Record accrues commission for a settled order. Calling it twice with the
// same order id returns the original entry; the unique index on order_id is
// the backstop when two collaborators race.
func (l *Ledger) Record(ctx context.Context, input RecordOrderInput) (*models.CommissionEntry, error) {
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}
	settledAt := input.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now()
	}

	resolved, err := l.resolver.Resolve(ctx, input.VendorID, input.CategoryID, settledAt)
	if err != nil {
		return nil, err
	}

	amount := computeAmount(input.OrderTotal, resolved)

	entry := &models.CommissionEntry{
		VendorID:   input.VendorID,
		OrderID:    input.OrderID,
		CategoryID: input.CategoryID,
		OrderTotal: input.OrderTotal,
		Rate:       resolved.Rate,
		RateType:   resolved.RateType,
		Amount:     amount,
		Currency:   input.Currency,
		Status:     enums.CommissionEntryStatusPending,
	}

	err = l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return err
		}
		return l.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionRecorded,
			AggregateType: enums.AggregateCommissionEntry,
			AggregateID:   entry.ID,
			Data: payloads.CommissionRecordedEvent{
				EntryID:    entry.ID,
				VendorID:   entry.VendorID,
				OrderID:    entry.OrderID,
				OrderTotal: entry.OrderTotal,
				Amount:     entry.Amount,
				Rate:       entry.Rate,
				RateType:   entry.RateType,
				RecordedAt: settledAt,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderIDUniqueIndex) {
			existing, findErr := l.repo.FindEntryByOrderID(ctx, input.OrderID)
			if findErr != nil {
				return nil, findErr
			}
			if l.logg != nil {
				logCtx := l.logg.WithVendorID(ctx, input.VendorID.String())
				l.logg.Warn(logCtx, fmt.Sprintf("duplicate commission record for order %s, returning existing entry", input.OrderID))
			}
			return existing, nil
		}
		return nil, err
	}

	l.metrics.IncEntriesRecorded()
	if l.logg != nil {
		logCtx := l.logg.WithVendorID(ctx, entry.VendorID.String())
		l.logg.Info(logCtx, fmt.Sprintf("commission recorded: order %s amount %s", entry.OrderID, entry.Amount))
	}
	return entry, nil
}

// ListUnsettled returns entries not yet absorbed into any payout, oldest first.
func (l *Ledger) ListUnsettled(ctx context.Context, vendorID uuid.UUID) ([]models.CommissionEntry, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return l.repo.ListUnsettledByVendor(ctx, vendorID)
}

// Earnings returns the vendor's lifetime commission total.
func (l *Ledger) Earnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	if vendorID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return l.repo.SumEarningsByVendor(ctx, vendorID)
}

func validateRecordInput(input RecordOrderInput) error {
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.OrderTotal.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	if !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	return nil
}

// computeAmount applies the resolved rate to the order total. Percentage
// rates are clamped to the configured min/max bounds before rounding;
// flat rates are taken as-is. Rounding is half-up to the currency minor unit.
func computeAmount(orderTotal decimal.Decimal, resolved *ResolvedRate) decimal.Decimal {
	var amount decimal.Decimal
	switch resolved.RateType {
	case enums.RateTypeFlat:
		amount = resolved.Rate
	default:
		amount = orderTotal.Mul(resolved.Rate).Div(decimal.NewFromInt(100))
		if resolved.MinAmount != nil && amount.LessThan(*resolved.MinAmount) {
			amount = *resolved.MinAmount
		}
		if resolved.MaxAmount != nil && amount.GreaterThan(*resolved.MaxAmount) {
			amount = *resolved.MaxAmount
		}
	}
	return amount.Round(2)
}
