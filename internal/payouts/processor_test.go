package payouts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nmviana/vendimia-backend/internal/gateway"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
)

func newTestProcessor(t *testing.T, repo *fakeRepo, gw *fakeGateway, publisher *fakeOutbox) *Processor {
	t.Helper()

	processor, err := NewProcessor(ProcessorParams{
		TX:              fakeTxRunner{},
		Repo:            repo,
		Gateway:         gw,
		Outbox:          publisher,
		MaxAttempts:     3,
		TransferTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected processor error: %v", err)
	}
	return processor
}

func TestProcessor_ExecuteSuccess(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	payout := repo.addPayout(vendor.ID, "30.33", enums.PayoutStatusPending, 0)
	entry := repo.addEntry(vendor.ID, "30.33", time.Now())
	pid := payout.ID
	entry.PayoutID = &pid
	entry.Status = enums.CommissionEntryStatusCalculated

	gw := &fakeGateway{}
	publisher := &fakeOutbox{}
	processor := newTestProcessor(t, repo, gw, publisher)

	if err := processor.Execute(context.Background(), payout.ID); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	stored := repo.payouts[payout.ID]
	if stored.Status != enums.PayoutStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
	if stored.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
	if repo.entries[entry.ID].Status != enums.CommissionEntryStatusPaid {
		t.Fatal("absorbed entries must move to paid")
	}

	if len(gw.calls) != 1 {
		t.Fatalf("expected one transfer, got %d", len(gw.calls))
	}
	call := gw.calls[0]
	if call.PayoutID != payout.ID {
		t.Fatal("transfer must carry the payout id as idempotency key")
	}
	if call.AccountRef != vendor.PayoutAccountRef {
		t.Fatalf("transfer must target the vendor account, got %q", call.AccountRef)
	}
	if !call.Amount.Equal(payout.Amount) {
		t.Fatalf("transfer amount %s, want %s", call.Amount, payout.Amount)
	}

	types := publisher.eventTypes()
	if len(types) != 2 || types[0] != enums.EventPayoutProcessing || types[1] != enums.EventPayoutCompleted {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

func TestProcessor_ExecuteTransientFailure(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	payout := repo.addPayout(vendor.ID, "30.33", enums.PayoutStatusPending, 0)

	gw := &fakeGateway{
		transferFn: func(ctx context.Context, call TransferCall) (string, error) {
			return "", &gateway.TransferError{Reason: "provider timed out", Transient: true}
		},
	}
	publisher := &fakeOutbox{}
	processor := newTestProcessor(t, repo, gw, publisher)

	if err := processor.Execute(context.Background(), payout.ID); err == nil {
		t.Fatal("expected transfer error")
	}

	stored := repo.payouts[payout.ID]
	if stored.Status != enums.PayoutStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", stored.AttemptCount)
	}
	if stored.FailureReason == nil || *stored.FailureReason != "provider timed out" {
		t.Fatalf("unexpected failure reason %v", stored.FailureReason)
	}

	types := publisher.eventTypes()
	if len(types) != 2 || types[1] != enums.EventPayoutFailed {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

func TestProcessor_ExecutePermanentFailureFreezes(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	payout := repo.addPayout(vendor.ID, "30.33", enums.PayoutStatusPending, 0)

	gw := &fakeGateway{
		transferFn: func(ctx context.Context, call TransferCall) (string, error) {
			return "", &gateway.TransferError{Reason: "no such destination", Transient: false}
		},
	}
	processor := newTestProcessor(t, repo, gw, &fakeOutbox{})

	if err := processor.Execute(context.Background(), payout.ID); err == nil {
		t.Fatal("expected transfer error")
	}

	stored := repo.payouts[payout.ID]
	if stored.Status != enums.PayoutStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.AttemptCount != 3 {
		t.Fatalf("permanent failure must cap attempts at max, got %d", stored.AttemptCount)
	}

	// Frozen: RetryFailed must not pick it up.
	gw.calls = nil
	if err := processor.RetryFailed(context.Background()); err != nil {
		t.Fatalf("RetryFailed error: %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatal("frozen payout must not be retried automatically")
	}
}

func TestProcessor_ConcurrentExecuteSingleTransfer(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	payout := repo.addPayout(vendor.ID, "30.33", enums.PayoutStatusPending, 0)

	var mu sync.Mutex
	transfers := 0
	gw := &fakeGateway{
		transferFn: func(ctx context.Context, call TransferCall) (string, error) {
			mu.Lock()
			transfers++
			mu.Unlock()
			return "tr_once", nil
		},
	}
	processor := newTestProcessor(t, repo, gw, &fakeOutbox{})

	// The fake repo's CAS is not goroutine-safe, so race the claim
	// sequentially: the second Execute sees a non-pending payout.
	if err := processor.Execute(context.Background(), payout.ID); err != nil {
		t.Fatalf("first Execute error: %v", err)
	}
	if err := processor.Execute(context.Background(), payout.ID); err != nil {
		t.Fatalf("second Execute error: %v", err)
	}

	if transfers != 1 {
		t.Fatalf("expected exactly one transfer, got %d", transfers)
	}
}

func TestProcessor_RetryFailedRetriesUnderCap(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	retryable := repo.addPayout(vendor.ID, "10.00", enums.PayoutStatusFailed, 1)
	frozen := repo.addPayout(vendor.ID, "20.00", enums.PayoutStatusFailed, 3)

	gw := &fakeGateway{}
	processor := newTestProcessor(t, repo, gw, &fakeOutbox{})

	if err := processor.RetryFailed(context.Background()); err != nil {
		t.Fatalf("RetryFailed error: %v", err)
	}

	if repo.payouts[retryable.ID].Status != enums.PayoutStatusCompleted {
		t.Fatalf("retryable payout should complete, got %s", repo.payouts[retryable.ID].Status)
	}
	if repo.payouts[frozen.ID].Status != enums.PayoutStatusFailed {
		t.Fatal("frozen payout must stay failed")
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected one transfer, got %d", len(gw.calls))
	}
}

func TestProcessor_RetryFailedAggregatesErrors(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	first := repo.addPayout(vendor.ID, "10.00", enums.PayoutStatusFailed, 1)
	second := repo.addPayout(vendor.ID, "20.00", enums.PayoutStatusFailed, 1)

	gw := &fakeGateway{
		transferFn: func(ctx context.Context, call TransferCall) (string, error) {
			if call.PayoutID == first.ID {
				return "", &gateway.TransferError{Reason: "still down", Transient: true}
			}
			return "tr_ok", nil
		},
	}
	processor := newTestProcessor(t, repo, gw, &fakeOutbox{})

	err := processor.RetryFailed(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}

	if repo.payouts[first.ID].Status != enums.PayoutStatusFailed {
		t.Fatal("failing payout must stay failed")
	}
	if repo.payouts[first.ID].AttemptCount != 2 {
		t.Fatalf("expected attempt count 2, got %d", repo.payouts[first.ID].AttemptCount)
	}
	if repo.payouts[second.ID].Status != enums.PayoutStatusCompleted {
		t.Fatal("healthy payout must complete despite sibling failure")
	}
}

func TestProcessor_ReconcileStuck(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	stuck := repo.addPayout(vendor.ID, "10.00", enums.PayoutStatusProcessing, 1)
	stuck.UpdatedAt = time.Now().Add(-time.Hour)
	fresh := repo.addPayout(vendor.ID, "20.00", enums.PayoutStatusProcessing, 1)

	publisher := &fakeOutbox{}
	processor := newTestProcessor(t, repo, &fakeGateway{}, publisher)

	demoted, err := processor.ReconcileStuck(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("ReconcileStuck error: %v", err)
	}
	if demoted != 1 {
		t.Fatalf("expected 1 demoted, got %d", demoted)
	}

	if repo.payouts[stuck.ID].Status != enums.PayoutStatusFailed {
		t.Fatalf("stuck payout should fail, got %s", repo.payouts[stuck.ID].Status)
	}
	if repo.payouts[stuck.ID].AttemptCount != 2 {
		t.Fatalf("demotion must count as an attempt, got %d", repo.payouts[stuck.ID].AttemptCount)
	}
	if repo.payouts[fresh.ID].Status != enums.PayoutStatusProcessing {
		t.Fatal("recently claimed payout must be left alone")
	}

	types := publisher.eventTypes()
	if len(types) != 1 || types[0] != enums.EventPayoutFailed {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestProcessor_ReleaseFrozen(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	frozen := repo.addPayout(vendor.ID, "20.00", enums.PayoutStatusFailed, 3)

	processor := newTestProcessor(t, repo, &fakeGateway{}, &fakeOutbox{})

	released, err := processor.ReleaseFrozen(context.Background(), frozen.ID)
	if err != nil {
		t.Fatalf("ReleaseFrozen error: %v", err)
	}
	if released.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending after release, got %s", released.Status)
	}
	if released.AttemptCount != 0 {
		t.Fatalf("expected attempt count reset, got %d", released.AttemptCount)
	}
	if released.FailureReason != nil {
		t.Fatal("expected failure reason cleared")
	}
}

func TestProcessor_ReleaseFrozenRequiresFailedStatus(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	completed := repo.addPayout(vendor.ID, "20.00", enums.PayoutStatusCompleted, 1)

	processor := newTestProcessor(t, repo, &fakeGateway{}, &fakeOutbox{})

	_, err := processor.ReleaseFrozen(context.Background(), completed.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestProcessor_ExecuteUnknownPayout(t *testing.T) {
	processor := newTestProcessor(t, newFakeRepo(), &fakeGateway{}, &fakeOutbox{})

	err := processor.Execute(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessor_ExecuteLostClaimIsSilent(t *testing.T) {
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	payout := repo.addPayout(vendor.ID, "30.33", enums.PayoutStatusProcessing, 1)

	gw := &fakeGateway{}
	processor := newTestProcessor(t, repo, gw, &fakeOutbox{})

	if err := processor.Execute(context.Background(), payout.ID); err != nil {
		t.Fatalf("losing the claim must not error: %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatal("no transfer may run without the claim")
	}
}
