package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/internal/gateway"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/metrics"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
	"github.com/nmviana/vendimia-backend/pkg/outbox/payloads"
)

// ProcessorParams groups dependencies for the payout processor.
type ProcessorParams struct {
	TX              txRunner
	Repo            Repository
	Gateway         gateway.TransferGateway
	Outbox          outboxPublisher
	Logger          *logger.Logger
	Metrics         *metrics.SettlementMetrics
	MaxAttempts     int
	TransferTimeout time.Duration
	Now             func() time.Time
}

// Processor drives payouts through the external transfer and owns every
// status transition after batch creation. All claims go through
// compare-and-set updates so two workers can race on the same payout and
// exactly one performs the transfer.
type Processor struct {
	tx              txRunner
	repo            Repository
	gateway         gateway.TransferGateway
	outbox          outboxPublisher
	logg            *logger.Logger
	metrics         *metrics.SettlementMetrics
	maxAttempts     int
	transferTimeout time.Duration
	now             func() time.Time
}

// NewProcessor builds the payout processor.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.TX == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("payouts repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("transfer gateway is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	if params.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	if params.TransferTimeout <= 0 {
		return nil, errors.New("transfer timeout must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		tx:              params.TX,
		repo:            params.Repo,
		gateway:         params.Gateway,
		outbox:          params.Outbox,
		logg:            params.Logger,
		metrics:         params.Metrics,
		maxAttempts:     params.MaxAttempts,
		transferTimeout: params.TransferTimeout,
		now:             now,
	}, nil
}

// Execute claims a pending payout and runs the external transfer. Losing the
// claim to another worker is not an error; the payout is simply someone
// else's to finish.
func (p *Processor) Execute(ctx context.Context, payoutID uuid.UUID) error {
	return p.run(ctx, payoutID, enums.PayoutStatusPending)
}

// RetryFailed re-runs every failed payout still under the attempt cap.
// Failures are aggregated so one bad payout does not block the rest.
func (p *Processor) RetryFailed(ctx context.Context) error {
	retryable, err := p.repo.ListFailedRetryable(ctx, p.maxAttempts)
	if err != nil {
		return err
	}

	var errs error
	for _, payout := range retryable {
		if err := p.run(ctx, payout.ID, enums.PayoutStatusFailed); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payout %s: %w", payout.ID, err))
		}
	}
	return errs
}

// ReconcileStuck demotes payouts that have sat in processing past the
// threshold, usually after a worker crashed between the claim and the
// terminal update. The demotion counts as a failed attempt so a payout that
// keeps getting stuck eventually freezes.
func (p *Processor) ReconcileStuck(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := p.now().Add(-threshold)
	stuck, err := p.repo.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	demoted := 0
	var errs error
	for _, payout := range stuck {
		err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := p.repo.WithTx(tx)
			ok, err := repo.TransitionStatus(ctx, payout.ID, enums.PayoutStatusProcessing, enums.PayoutStatusFailed)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			attempt := payout.AttemptCount + 1
			if err := repo.MarkFailed(ctx, payout.ID, "processing timed out", attempt); err != nil {
				return err
			}
			demoted++
			return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPayoutFailed,
				AggregateType: enums.AggregatePayout,
				AggregateID:   payout.ID,
				Data: payloads.PayoutFailedEvent{
					PayoutID:  payout.ID,
					VendorID:  payout.VendorID,
					Attempt:   attempt,
					Permanent: false,
					Reason:    "processing timed out",
					FailedAt:  p.now(),
					WillRetry: attempt < p.maxAttempts,
				},
			})
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payout %s: %w", payout.ID, err))
		}
	}

	if demoted > 0 {
		p.metrics.IncPayoutsFailed("stuck")
		if p.logg != nil {
			p.logg.Warn(ctx, fmt.Sprintf("reconciliation demoted %d stuck payouts", demoted))
		}
	}
	return demoted, errs
}

// ReleaseFrozen re-arms a payout that exhausted its attempts. This is the
// explicit human-intervention path after a permanent gateway failure: the
// attempt counter resets and the payout re-enters the normal retry cycle.
func (p *Processor) ReleaseFrozen(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := p.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	if payout.Status != enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payout is %s, only failed payouts can be released", payout.Status))
	}

	released, err := p.repo.ResetForRetry(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !released {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout changed state during release")
	}
	if p.logg != nil {
		logCtx := p.logg.WithPayoutID(ctx, payoutID.String())
		p.logg.Info(logCtx, "frozen payout released for retry")
	}
	return p.repo.FindPayoutByID(ctx, payoutID)
}

func (p *Processor) run(ctx context.Context, payoutID uuid.UUID, from enums.PayoutStatus) error {
	if payoutID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}

	payout, err := p.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return err
	}
	if payout.Status != from {
		return nil
	}

	vendor, err := p.repo.FindVendorByID(ctx, payout.VendorID)
	if err != nil {
		return err
	}

	attempt := payout.AttemptCount + 1
	claimed := false
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := p.repo.WithTx(tx).TransitionStatus(ctx, payoutID, from, enums.PayoutStatusProcessing)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		claimed = true
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutProcessing,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payoutID,
			Data: payloads.PayoutProcessingEvent{
				PayoutID:  payoutID,
				VendorID:  payout.VendorID,
				Attempt:   attempt,
				ClaimedAt: p.now(),
			},
		})
	})
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	transferCtx, cancel := context.WithTimeout(ctx, p.transferTimeout)
	defer cancel()

	started := p.now()
	result, transferErr := p.gateway.Transfer(transferCtx, gateway.TransferRequest{
		PayoutID:         payout.ID,
		VendorAccountRef: vendor.PayoutAccountRef,
		Amount:           payout.Amount,
		Currency:         payout.Currency,
		Description:      fmt.Sprintf("payout %s", payout.ID),
	})
	p.metrics.ObserveTransferDuration(time.Since(started))

	if transferErr != nil {
		return p.recordFailure(ctx, payout, attempt, transferErr)
	}
	return p.recordSuccess(ctx, payout, result)
}

func (p *Processor) recordSuccess(ctx context.Context, payout *models.Payout, result *gateway.TransferResult) error {
	processedAt := p.now()
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		if err := repo.MarkCompleted(ctx, payout.ID, processedAt); err != nil {
			return err
		}
		if err := repo.MarkEntriesPaid(ctx, payout.ID); err != nil {
			return err
		}
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutCompletedEvent{
				PayoutID:    payout.ID,
				VendorID:    payout.VendorID,
				Amount:      payout.Amount,
				ProcessedAt: processedAt,
			},
		})
	})
	if err != nil {
		return err
	}

	p.metrics.IncPayoutsCompleted()
	if p.logg != nil {
		logCtx := p.logg.WithVendorID(ctx, payout.VendorID.String())
		logCtx = p.logg.WithPayoutID(logCtx, payout.ID.String())
		p.logg.Info(logCtx, fmt.Sprintf("payout completed: %s (ref %s)", payout.Amount, result.Reference))
	}
	return nil
}

func (p *Processor) recordFailure(ctx context.Context, payout *models.Payout, attempt int, transferErr error) error {
	permanent := !gateway.IsTransient(transferErr)
	reason := gateway.FailureReason(transferErr)

	attemptCount := attempt
	if permanent {
		// Permanent failures freeze immediately; only an explicit release
		// makes the payout retryable again.
		attemptCount = p.maxAttempts
	}
	willRetry := !permanent && attemptCount < p.maxAttempts

	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		if err := repo.MarkFailed(ctx, payout.ID, reason, attemptCount); err != nil {
			return err
		}
		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutFailed,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutFailedEvent{
				PayoutID:  payout.ID,
				VendorID:  payout.VendorID,
				Attempt:   attempt,
				Permanent: permanent,
				Reason:    reason,
				FailedAt:  p.now(),
				WillRetry: willRetry,
			},
		})
	})
	if err != nil {
		return err
	}

	kind := "transient"
	if permanent {
		kind = "permanent"
	}
	p.metrics.IncPayoutsFailed(kind)
	if p.logg != nil {
		logCtx := p.logg.WithVendorID(ctx, payout.VendorID.String())
		logCtx = p.logg.WithPayoutID(logCtx, payout.ID.String())
		p.logg.Error(logCtx, fmt.Sprintf("payout failed (%s, attempt %d)", kind, attempt), transferErr)
	}
	return fmt.Errorf("transfer failed: %w", transferErr)
}
