package payouts

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/internal/commission"
	"github.com/nmviana/vendimia-backend/internal/gateway"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
	"github.com/nmviana/vendimia-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

// fakeRepo is an in-memory Repository covering vendors, payouts and entries.
type fakeRepo struct {
	vendors map[uuid.UUID]*models.Vendor
	payouts map[uuid.UUID]*models.Payout
	entries map[uuid.UUID]*models.CommissionEntry

	absorbOverride *int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		vendors: map[uuid.UUID]*models.Vendor{},
		payouts: map[uuid.UUID]*models.Payout{},
		entries: map[uuid.UUID]*models.CommissionEntry{},
	}
}

func (f *fakeRepo) addVendor(active bool) *models.Vendor {
	vendor := &models.Vendor{
		ID:               uuid.New(),
		Name:             "Vendor",
		PayoutAccountRef: "acct_" + uuid.NewString()[:8],
		IsActive:         active,
	}
	f.vendors[vendor.ID] = vendor
	return vendor
}

func (f *fakeRepo) addPayout(vendorID uuid.UUID, amount string, status enums.PayoutStatus, attempts int) *models.Payout {
	payout := &models.Payout{
		ID:            uuid.New(),
		VendorID:      vendorID,
		Amount:        decimal.RequireFromString(amount),
		Currency:      enums.CurrencyUSD,
		Status:        status,
		Method:        enums.PayoutMethodStripeConnect,
		ScheduledDate: time.Now(),
		AttemptCount:  attempts,
		UpdatedAt:     time.Now(),
	}
	f.payouts[payout.ID] = payout
	return payout
}

func (f *fakeRepo) addEntry(vendorID uuid.UUID, amount string, created time.Time) *models.CommissionEntry {
	entry := &models.CommissionEntry{
		ID:        uuid.New(),
		VendorID:  vendorID,
		OrderID:   uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		Currency:  enums.CurrencyUSD,
		Status:    enums.CommissionEntryStatusPending,
		CreatedAt: created,
	}
	f.entries[entry.ID] = entry
	return entry
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vendor, nil
}

func (f *fakeRepo) CreatePayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	payout.UpdatedAt = time.Now()
	f.payouts[payout.ID] = payout
	return nil
}

func (f *fakeRepo) FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, ok := f.payouts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payout
	return &copied, nil
}

func (f *fakeRepo) ListPayoutsByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Payout, error) {
	var out []models.Payout
	for _, payout := range f.payouts {
		if payout.VendorID == vendorID {
			out = append(out, *payout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if cursor != nil {
		filtered := out[:0]
		for _, payout := range out {
			if payout.CreatedAt.Before(cursor.CreatedAt) {
				filtered = append(filtered, payout)
			}
		}
		out = filtered
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) ListFailedRetryable(ctx context.Context, maxAttempts int) ([]models.Payout, error) {
	var out []models.Payout
	for _, payout := range f.payouts {
		if payout.Status == enums.PayoutStatusFailed && payout.AttemptCount < maxAttempts {
			out = append(out, *payout)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListStuckProcessing(ctx context.Context, before time.Time) ([]models.Payout, error) {
	var out []models.Payout
	for _, payout := range f.payouts {
		if payout.Status == enums.PayoutStatusProcessing && payout.UpdatedAt.Before(before) {
			out = append(out, *payout)
		}
	}
	return out, nil
}

func (f *fakeRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error) {
	payout, ok := f.payouts[id]
	if !ok || payout.Status != from {
		return false, nil
	}
	payout.Status = to
	payout.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRepo) MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	payout := f.payouts[id]
	payout.Status = enums.PayoutStatusCompleted
	payout.ProcessedAt = &processedAt
	payout.FailureReason = nil
	payout.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, attemptCount int) error {
	payout := f.payouts[id]
	payout.Status = enums.PayoutStatusFailed
	payout.FailureReason = &reason
	payout.AttemptCount = attemptCount
	payout.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	payout, ok := f.payouts[id]
	if !ok || payout.Status != enums.PayoutStatusFailed {
		return false, nil
	}
	payout.Status = enums.PayoutStatusPending
	payout.AttemptCount = 0
	payout.FailureReason = nil
	payout.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRepo) AbsorbEntries(ctx context.Context, payoutID, vendorID uuid.UUID, entryIDs []uuid.UUID) (int64, error) {
	if f.absorbOverride != nil {
		return *f.absorbOverride, nil
	}
	var absorbed int64
	for _, id := range entryIDs {
		entry, ok := f.entries[id]
		if !ok || entry.VendorID != vendorID || entry.PayoutID != nil {
			continue
		}
		pid := payoutID
		entry.PayoutID = &pid
		entry.Status = enums.CommissionEntryStatusCalculated
		absorbed++
	}
	return absorbed, nil
}

func (f *fakeRepo) MarkEntriesPaid(ctx context.Context, payoutID uuid.UUID) error {
	for _, entry := range f.entries {
		if entry.PayoutID != nil && *entry.PayoutID == payoutID {
			entry.Status = enums.CommissionEntryStatusPaid
		}
	}
	return nil
}

func (f *fakeRepo) SumCompletedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return f.sumPayouts(vendorID, enums.PayoutStatusCompleted), nil
}

func (f *fakeRepo) SumReservedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return f.sumPayouts(vendorID, enums.PayoutStatusPending, enums.PayoutStatusProcessing), nil
}

func (f *fakeRepo) sumPayouts(vendorID uuid.UUID, statuses ...enums.PayoutStatus) decimal.Decimal {
	total := decimal.Zero
	for _, payout := range f.payouts {
		if payout.VendorID != vendorID {
			continue
		}
		for _, status := range statuses {
			if payout.Status == status {
				total = total.Add(payout.Amount)
				break
			}
		}
	}
	return total
}

// fakePolicyRepo is an in-memory PolicyRepository.
type fakePolicyRepo struct {
	policies map[uuid.UUID]*models.PayoutPolicy
	advanced map[uuid.UUID]time.Time
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{
		policies: map[uuid.UUID]*models.PayoutPolicy{},
		advanced: map[uuid.UUID]time.Time{},
	}
}

func (f *fakePolicyRepo) addPolicy(vendorID uuid.UUID, minimum string, next time.Time, active bool) *models.PayoutPolicy {
	policy := &models.PayoutPolicy{
		ID:                uuid.New(),
		VendorID:          vendorID,
		Frequency:         enums.PayoutFrequencyWeekly,
		MinimumPayout:     decimal.RequireFromString(minimum),
		Method:            enums.PayoutMethodStripeConnect,
		NextScheduledDate: next,
		IsActive:          active,
	}
	f.policies[vendorID] = policy
	return policy
}

func (f *fakePolicyRepo) WithTx(tx *gorm.DB) PolicyRepository { return f }

func (f *fakePolicyRepo) Create(ctx context.Context, policy *models.PayoutPolicy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	f.policies[policy.VendorID] = policy
	return nil
}

func (f *fakePolicyRepo) Update(ctx context.Context, policy *models.PayoutPolicy) error {
	f.policies[policy.VendorID] = policy
	return nil
}

func (f *fakePolicyRepo) FindByVendor(ctx context.Context, vendorID uuid.UUID) (*models.PayoutPolicy, error) {
	policy, ok := f.policies[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *policy
	return &copied, nil
}

func (f *fakePolicyRepo) ListActive(ctx context.Context) ([]models.PayoutPolicy, error) {
	var out []models.PayoutPolicy
	for _, policy := range f.policies {
		if policy.IsActive {
			out = append(out, *policy)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) AdvanceSchedule(ctx context.Context, vendorID uuid.UUID, next time.Time) error {
	f.advanced[vendorID] = next
	if policy, ok := f.policies[vendorID]; ok {
		policy.NextScheduledDate = next
	}
	return nil
}

// fakeEntrySource adapts fakeRepo's entries to the commission repository
// surface the batcher and balance service read from.
type fakeEntrySource struct {
	repo *fakeRepo
}

func (f *fakeEntrySource) WithTx(tx *gorm.DB) commission.Repository { return f }

func (f *fakeEntrySource) FindCategoryRate(ctx context.Context, vendorID, categoryID uuid.UUID, at time.Time) (*models.CommissionRate, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntrySource) FindVendorDefaultRate(ctx context.Context, vendorID uuid.UUID, at time.Time) (*models.CommissionRate, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntrySource) FindPlatformDefaultRate(ctx context.Context, at time.Time) (*models.CommissionRate, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntrySource) CreateEntry(ctx context.Context, entry *models.CommissionEntry) error {
	f.repo.entries[entry.ID] = entry
	return nil
}

func (f *fakeEntrySource) FindEntryByOrderID(ctx context.Context, orderID uuid.UUID) (*models.CommissionEntry, error) {
	for _, entry := range f.repo.entries {
		if entry.OrderID == orderID {
			return entry, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntrySource) ListUnsettledByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.CommissionEntry, error) {
	var out []models.CommissionEntry
	for _, entry := range f.repo.entries {
		if entry.VendorID == vendorID && entry.PayoutID == nil && entry.Status != enums.CommissionEntryStatusPaid {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeEntrySource) SumEarningsByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, entry := range f.repo.entries {
		if entry.VendorID == vendorID {
			total = total.Add(entry.Amount)
		}
	}
	return total, nil
}

// fakeGateway scripts transfer outcomes per payout.
type fakeGateway struct {
	transferFn func(ctx context.Context, req TransferCall) (string, error)
	calls      []TransferCall
}

// TransferCall mirrors the request fields tests assert on.
type TransferCall struct {
	PayoutID   uuid.UUID
	AccountRef string
	Amount     decimal.Decimal
	Currency   enums.Currency
}

func (f *fakeGateway) Transfer(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferResult, error) {
	call := TransferCall{
		PayoutID:   req.PayoutID,
		AccountRef: req.VendorAccountRef,
		Amount:     req.Amount,
		Currency:   req.Currency,
	}
	f.calls = append(f.calls, call)
	if f.transferFn != nil {
		ref, err := f.transferFn(ctx, call)
		if err != nil {
			return nil, err
		}
		return &gateway.TransferResult{Reference: ref}, nil
	}
	return &gateway.TransferResult{Reference: "tr_ok"}, nil
}
