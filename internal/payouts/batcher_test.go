package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
)

func newTestBatcher(t *testing.T, repo *fakeRepo, policies *fakePolicyRepo, publisher *fakeOutbox, now time.Time) *Batcher {
	t.Helper()

	batcher, err := NewBatcher(BatcherParams{
		TX:      fakeTxRunner{},
		Repo:    repo,
		Policy:  policies,
		Entries: &fakeEntrySource{repo: repo},
		Outbox:  publisher,
		Now:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected batcher error: %v", err)
	}
	return batcher
}

func TestBatcher_BuildBatchAbsorbsAllUnsettled(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	policies := newFakePolicyRepo()
	policy := policies.addPolicy(vendor.ID, "25.00", now.Add(-time.Minute), true)
	publisher := &fakeOutbox{}

	first := repo.addEntry(vendor.ID, "10.10", now.Add(-3*time.Hour))
	second := repo.addEntry(vendor.ID, "20.20", now.Add(-2*time.Hour))
	third := repo.addEntry(vendor.ID, "0.03", now.Add(-time.Hour))

	batcher := newTestBatcher(t, repo, policies, publisher, now)
	payout, err := batcher.BuildBatch(context.Background(), vendor.ID)
	if err != nil {
		t.Fatalf("BuildBatch error: %v", err)
	}
	if payout == nil {
		t.Fatal("expected a payout")
	}
	if !payout.Amount.Equal(decimal.RequireFromString("30.33")) {
		t.Fatalf("amount must equal the exact entry sum, got %s", payout.Amount)
	}
	if payout.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending payout, got %s", payout.Status)
	}
	if payout.Method != policy.Method {
		t.Fatalf("payout method must come from the policy, got %s", payout.Method)
	}

	for _, entry := range []struct {
		name string
		id   uuid.UUID
	}{{"first", first.ID}, {"second", second.ID}, {"third", third.ID}} {
		got := repo.entries[entry.id]
		if got.PayoutID == nil || *got.PayoutID != payout.ID {
			t.Fatalf("%s entry not absorbed into payout", entry.name)
		}
		if got.Status != enums.CommissionEntryStatusCalculated {
			t.Fatalf("%s entry status = %s, want calculated", entry.name, got.Status)
		}
	}

	advanced, ok := policies.advanced[vendor.ID]
	if !ok {
		t.Fatal("expected schedule to advance")
	}
	if want := policy.Frequency.Next(now); !advanced.Equal(want) {
		t.Fatalf("schedule advanced to %s, want %s", advanced, want)
	}

	types := publisher.eventTypes()
	if len(types) != 1 || types[0] != enums.EventPayoutCreated {
		t.Fatalf("expected a single payout_created event, got %v", types)
	}
}

func TestBatcher_BuildBatchBelowMinimum(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	policies := newFakePolicyRepo()
	policies.addPolicy(vendor.ID, "100.00", now.Add(-time.Minute), true)
	publisher := &fakeOutbox{}

	repo.addEntry(vendor.ID, "40.00", now.Add(-2*time.Hour))
	repo.addEntry(vendor.ID, "59.99", now.Add(-time.Hour))

	batcher := newTestBatcher(t, repo, policies, publisher, now)
	payout, err := batcher.BuildBatch(context.Background(), vendor.ID)
	if err != nil {
		t.Fatalf("BuildBatch error: %v", err)
	}
	if payout != nil {
		t.Fatal("sum below minimum must not produce a payout")
	}
	if len(publisher.events) != 0 {
		t.Fatal("ineligible vendor must not emit events")
	}
	for _, entry := range repo.entries {
		if entry.PayoutID != nil {
			t.Fatal("entries must stay unsettled")
		}
	}
}

func TestBatcher_BuildBatchSkips(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		setup func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID
	}{
		{
			name: "inactive vendor",
			setup: func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID {
				vendor := repo.addVendor(false)
				policies.addPolicy(vendor.ID, "1.00", now.Add(-time.Minute), true)
				repo.addEntry(vendor.ID, "50.00", now.Add(-time.Hour))
				return vendor.ID
			},
		},
		{
			name: "no policy",
			setup: func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID {
				vendor := repo.addVendor(true)
				repo.addEntry(vendor.ID, "50.00", now.Add(-time.Hour))
				return vendor.ID
			},
		},
		{
			name: "inactive policy",
			setup: func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID {
				vendor := repo.addVendor(true)
				policies.addPolicy(vendor.ID, "1.00", now.Add(-time.Minute), false)
				repo.addEntry(vendor.ID, "50.00", now.Add(-time.Hour))
				return vendor.ID
			},
		},
		{
			name: "future schedule",
			setup: func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID {
				vendor := repo.addVendor(true)
				policies.addPolicy(vendor.ID, "1.00", now.Add(24*time.Hour), true)
				repo.addEntry(vendor.ID, "50.00", now.Add(-time.Hour))
				return vendor.ID
			},
		},
		{
			name: "nothing unsettled",
			setup: func(repo *fakeRepo, policies *fakePolicyRepo) uuid.UUID {
				vendor := repo.addVendor(true)
				policies.addPolicy(vendor.ID, "1.00", now.Add(-time.Minute), true)
				return vendor.ID
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			policies := newFakePolicyRepo()
			vendorID := tc.setup(repo, policies)
			publisher := &fakeOutbox{}

			batcher := newTestBatcher(t, repo, policies, publisher, now)
			payout, err := batcher.BuildBatch(context.Background(), vendorID)
			if err != nil {
				t.Fatalf("BuildBatch error: %v", err)
			}
			if payout != nil {
				t.Fatal("expected no payout")
			}
		})
	}
}

func TestBatcher_BuildBatchLostRaceAborts(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo()
	vendor := repo.addVendor(true)
	policies := newFakePolicyRepo()
	policies.addPolicy(vendor.ID, "1.00", now.Add(-time.Minute), true)
	publisher := &fakeOutbox{}

	repo.addEntry(vendor.ID, "10.00", now.Add(-time.Hour))
	repo.addEntry(vendor.ID, "20.00", now.Add(-time.Hour))

	// A concurrent batch claimed one of the entries between the read and
	// the absorb.
	one := int64(1)
	repo.absorbOverride = &one

	batcher := newTestBatcher(t, repo, policies, publisher, now)
	_, err := batcher.BuildBatch(context.Background(), vendor.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on lost race, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatal("aborted batch must not emit events")
	}
}

func TestBatcher_BuildBatchUnknownVendor(t *testing.T) {
	now := time.Now()
	batcher := newTestBatcher(t, newFakeRepo(), newFakePolicyRepo(), &fakeOutbox{}, now)

	_, err := batcher.BuildBatch(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
