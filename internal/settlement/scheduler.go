package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/nmviana/vendimia-backend/internal/payouts"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

const defaultVendorConcurrency = 8

type batchBuilder interface {
	BuildBatch(ctx context.Context, vendorID uuid.UUID) (*models.Payout, error)
}

type payoutExecutor interface {
	Execute(ctx context.Context, payoutID uuid.UUID) error
	RetryFailed(ctx context.Context) error
	ReconcileStuck(ctx context.Context, threshold time.Duration) (int, error)
}

// Summary reports one settlement cycle. Processed counts vendors whose batch
// was built and executed, Skipped counts vendors that were not eligible this
// cycle, Failed counts vendors whose settlement errored.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Demoted   int
}

// SchedulerParams groups dependencies for the settlement scheduler.
type SchedulerParams struct {
	Policies       payouts.PolicyRepository
	Batcher        batchBuilder
	Processor      payoutExecutor
	Locks          *VendorLocks
	Logger         *logger.Logger
	Concurrency    int
	StuckThreshold time.Duration
}

// Scheduler fans settlement out over every vendor with an active policy.
// One vendor's failure never aborts the cycle; it lands in the summary and
// the aggregated error instead.
type Scheduler struct {
	policies       payouts.PolicyRepository
	batcher        batchBuilder
	processor      payoutExecutor
	locks          *VendorLocks
	logg           *logger.Logger
	concurrency    int
	stuckThreshold time.Duration
}

// NewScheduler builds the settlement scheduler.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Policies == nil {
		return nil, errors.New("policy repository is required")
	}
	if params.Batcher == nil {
		return nil, errors.New("batcher is required")
	}
	if params.Processor == nil {
		return nil, errors.New("processor is required")
	}
	locks := params.Locks
	if locks == nil {
		locks = NewVendorLocks()
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultVendorConcurrency
	}
	if params.StuckThreshold <= 0 {
		return nil, errors.New("stuck threshold must be positive")
	}
	return &Scheduler{
		policies:       params.Policies,
		batcher:        params.Batcher,
		processor:      params.Processor,
		locks:          locks,
		logg:           params.Logger,
		concurrency:    concurrency,
		stuckThreshold: params.StuckThreshold,
	}, nil
}

// Run executes one settlement cycle: batch and pay every eligible vendor,
// retry failed payouts still under the attempt cap, then demote payouts
// stuck in processing.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	policies, err := s.policies.ListActive(ctx)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
		errs    error
	)

	vendorIDs := make(chan uuid.UUID)
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for vendorID := range vendorIDs {
				outcome, err := s.settleVendor(ctx, vendorID)
				mu.Lock()
				switch {
				case err != nil:
					summary.Failed++
					errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
				case outcome:
					summary.Processed++
				default:
					summary.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

	for _, policy := range policies {
		vendorIDs <- policy.VendorID
	}
	close(vendorIDs)
	wg.Wait()

	if err := s.processor.RetryFailed(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	demoted, err := s.processor.ReconcileStuck(ctx, s.stuckThreshold)
	summary.Demoted = demoted
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"processed": summary.Processed,
			"failed":    summary.Failed,
			"skipped":   summary.Skipped,
			"demoted":   summary.Demoted,
		})
		s.logg.Info(logCtx, "settlement cycle complete")
	}
	return summary, errs
}

// settleVendor builds and executes at most one payout for the vendor under
// its keyed lock. Returns true when a payout was created and driven through
// the processor.
func (s *Scheduler) settleVendor(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	unlock := s.locks.Lock(vendorID)
	defer unlock()

	payout, err := s.batcher.BuildBatch(ctx, vendorID)
	if err != nil {
		return false, err
	}
	if payout == nil {
		return false, nil
	}
	if err := s.processor.Execute(ctx, payout.ID); err != nil {
		return false, err
	}
	return true, nil
}
