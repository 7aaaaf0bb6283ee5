package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/internal/commission"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/metrics"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
	"github.com/nmviana/vendimia-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BatcherParams groups dependencies for the payout batcher.
type BatcherParams struct {
	TX      txRunner
	Repo    Repository
	Policy  PolicyRepository
	Entries commission.Repository
	Outbox  outboxPublisher
	Logger  *logger.Logger
	Metrics *metrics.SettlementMetrics
	Now     func() time.Time
}

// Batcher folds a vendor's unsettled commission entries into payout batches.
type Batcher struct {
	tx      txRunner
	repo    Repository
	policy  PolicyRepository
	entries commission.Repository
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.SettlementMetrics
	now     func() time.Time
}

// NewBatcher builds the payout batcher.
func NewBatcher(params BatcherParams) (*Batcher, error) {
	if params.TX == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("payouts repository is required")
	}
	if params.Policy == nil {
		return nil, errors.New("policy repository is required")
	}
	if params.Entries == nil {
		return nil, errors.New("commission repository is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Batcher{
		tx:      params.TX,
		repo:    params.Repo,
		policy:  params.Policy,
		entries: params.Entries,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// BuildBatch creates one pending payout absorbing every unsettled entry the
// vendor has. It returns (nil, nil) when the vendor is not eligible: missing
// or inactive policy, a schedule still in the future, or an unsettled sum
// below the configured minimum. The payout insert, entry absorption, schedule
// advance and audit event commit in one transaction.
func (b *Batcher) BuildBatch(ctx context.Context, vendorID uuid.UUID) (*models.Payout, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	vendor, err := b.repo.FindVendorByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, err
	}
	if !vendor.IsActive {
		return nil, nil
	}

	policy, err := b.policy.FindByVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	now := b.now()
	if !policy.IsActive || now.Before(policy.NextScheduledDate) {
		return nil, nil
	}

	var payout *models.Payout
	var entryCount int
	err = b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := b.repo.WithTx(tx)
		entries, err := b.entries.WithTx(tx).ListUnsettledByVendor(ctx, vendorID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		total := decimal.Zero
		entryIDs := make([]uuid.UUID, 0, len(entries))
		currency := entries[0].Currency
		for _, entry := range entries {
			total = total.Add(entry.Amount)
			entryIDs = append(entryIDs, entry.ID)
		}
		if total.LessThan(policy.MinimumPayout) {
			return nil
		}

		candidate := &models.Payout{
			VendorID:      vendorID,
			Amount:        total,
			Currency:      currency,
			Status:        enums.PayoutStatusPending,
			Method:        policy.Method,
			ScheduledDate: policy.NextScheduledDate,
		}
		if err := repo.CreatePayout(ctx, candidate); err != nil {
			return err
		}

		absorbed, err := repo.AbsorbEntries(ctx, candidate.ID, vendorID, entryIDs)
		if err != nil {
			return err
		}
		if absorbed != int64(len(entryIDs)) {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("absorbed %d of %d entries, another batch won the race", absorbed, len(entryIDs)))
		}

		if err := b.policy.WithTx(tx).AdvanceSchedule(ctx, vendorID, policy.Frequency.Next(now)); err != nil {
			return err
		}

		if err := b.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCreated,
			AggregateType: enums.AggregatePayout,
			AggregateID:   candidate.ID,
			Data: payloads.PayoutCreatedEvent{
				PayoutID:   candidate.ID,
				VendorID:   vendorID,
				Amount:     total,
				EntryCount: len(entryIDs),
				CreatedAt:  now,
			},
		}); err != nil {
			return err
		}

		payout = candidate
		entryCount = len(entryIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, nil
	}

	b.metrics.IncPayoutsCreated()
	if b.logg != nil {
		logCtx := b.logg.WithVendorID(ctx, vendorID.String())
		logCtx = b.logg.WithPayoutID(logCtx, payout.ID.String())
		b.logg.Info(logCtx, fmt.Sprintf("payout batch created: %s from %d entries", payout.Amount, entryCount))
	}
	return payout, nil
}
