package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
)

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newTestLedger(t *testing.T, repo *fakeRepository, publisher *fakeOutbox) *Ledger {
	t.Helper()

	resolver, err := NewResolver(repo)
	if err != nil {
		t.Fatalf("unexpected resolver error: %v", err)
	}
	ledger, err := NewLedger(LedgerParams{
		TX:       &fakeTxRunner{},
		Repo:     repo,
		Resolver: resolver,
		Outbox:   publisher,
	})
	if err != nil {
		t.Fatalf("unexpected ledger error: %v", err)
	}
	return ledger
}

func recordInput(vendorID uuid.UUID, total string) RecordOrderInput {
	return RecordOrderInput{
		VendorID:   vendorID,
		OrderID:    uuid.New(),
		OrderTotal: decimal.RequireFromString(total),
		Currency:   enums.CurrencyUSD,
		SettledAt:  time.Now(),
	}
}

func TestLedger_RecordPercentage(t *testing.T) {
	vendorID := uuid.New()
	repo := &fakeRepository{vendorRate: rateRow(&vendorID, nil, "7.5")}
	publisher := &fakeOutbox{}
	ledger := newTestLedger(t, repo, publisher)

	entry, err := ledger.Record(context.Background(), recordInput(vendorID, "200.00"))
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected 15.00, got %s", entry.Amount)
	}
	if entry.Status != enums.CommissionEntryStatusPending {
		t.Fatalf("expected pending status, got %s", entry.Status)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.EventCommissionRecorded {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != entry.ID {
		t.Fatal("event must reference the created entry")
	}
}

func TestLedger_RecordRoundsHalfUp(t *testing.T) {
	vendorID := uuid.New()
	repo := &fakeRepository{vendorRate: rateRow(&vendorID, nil, "7.5")}
	ledger := newTestLedger(t, repo, &fakeOutbox{})

	// 100.10 * 7.5% = 7.5075, the half cent rounds up.
	entry, err := ledger.Record(context.Background(), recordInput(vendorID, "100.10"))
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("7.51")) {
		t.Fatalf("expected 7.51, got %s", entry.Amount)
	}
}

func TestLedger_RecordClampsPercentage(t *testing.T) {
	vendorID := uuid.New()
	minAmount := decimal.RequireFromString("5.00")
	maxAmount := decimal.RequireFromString("50.00")

	rate := rateRow(&vendorID, nil, "10")
	rate.MinAmount = &minAmount
	rate.MaxAmount = &maxAmount
	repo := &fakeRepository{vendorRate: rate}
	ledger := newTestLedger(t, repo, &fakeOutbox{})

	tests := []struct {
		name  string
		total string
		want  string
	}{
		{"clamped to minimum", "10.00", "5.00"},
		{"clamped to maximum", "2000.00", "50.00"},
		{"within bounds", "300.00", "30.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := ledger.Record(context.Background(), recordInput(vendorID, tc.total))
			if err != nil {
				t.Fatalf("Record error: %v", err)
			}
			if !entry.Amount.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, entry.Amount)
			}
		})
	}
}

func TestLedger_RecordFlatRate(t *testing.T) {
	vendorID := uuid.New()
	rate := rateRow(&vendorID, nil, "2.50")
	rate.RateType = enums.RateTypeFlat
	repo := &fakeRepository{vendorRate: rate}
	ledger := newTestLedger(t, repo, &fakeOutbox{})

	entry, err := ledger.Record(context.Background(), recordInput(vendorID, "9.99"))
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected flat 2.50, got %s", entry.Amount)
	}
}

func TestLedger_RecordDuplicateReturnsExisting(t *testing.T) {
	vendorID := uuid.New()
	existing := &models.CommissionEntry{
		ID:       uuid.New(),
		VendorID: vendorID,
		Amount:   decimal.RequireFromString("15.00"),
	}
	repo := &fakeRepository{
		vendorRate: rateRow(&vendorID, nil, "7.5"),
		createEntryFn: func(ctx context.Context, entry *models.CommissionEntry) error {
			return errors.New(`duplicate key value violates unique constraint "ux_commission_entries_order_id"`)
		},
		findByOrderFn: func(ctx context.Context, orderID uuid.UUID) (*models.CommissionEntry, error) {
			return existing, nil
		},
	}
	publisher := &fakeOutbox{}
	ledger := newTestLedger(t, repo, publisher)

	entry, err := ledger.Record(context.Background(), recordInput(vendorID, "200.00"))
	if err != nil {
		t.Fatalf("duplicate record must not error: %v", err)
	}
	if entry.ID != existing.ID {
		t.Fatal("expected the original entry to be returned")
	}
	if len(publisher.events) != 0 {
		t.Fatal("duplicate record must not emit a second event")
	}
}

func TestLedger_RecordValidation(t *testing.T) {
	vendorID := uuid.New()
	repo := &fakeRepository{vendorRate: rateRow(&vendorID, nil, "7.5")}
	ledger := newTestLedger(t, repo, &fakeOutbox{})

	tests := []struct {
		name   string
		mutate func(input *RecordOrderInput)
	}{
		{"missing vendor id", func(input *RecordOrderInput) { input.VendorID = uuid.Nil }},
		{"missing order id", func(input *RecordOrderInput) { input.OrderID = uuid.Nil }},
		{"zero total", func(input *RecordOrderInput) { input.OrderTotal = decimal.Zero }},
		{"negative total", func(input *RecordOrderInput) { input.OrderTotal = decimal.RequireFromString("-10") }},
		{"invalid currency", func(input *RecordOrderInput) { input.Currency = enums.Currency("GBP") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := recordInput(vendorID, "100.00")
			tc.mutate(&input)
			_, err := ledger.Record(context.Background(), input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLedger_ListUnsettledRequiresVendor(t *testing.T) {
	ledger := newTestLedger(t, &fakeRepository{}, &fakeOutbox{})
	if _, err := ledger.ListUnsettled(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLedger_Earnings(t *testing.T) {
	repo := &fakeRepository{earnings: decimal.RequireFromString("123.45")}
	ledger := newTestLedger(t, repo, &fakeOutbox{})

	total, err := ledger.Earnings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Earnings error: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("unexpected total %s", total)
	}
}
