package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	"github.com/nmviana/vendimia-backend/pkg/pagination"
)

// Repository persists payouts and owns their status transitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)

	CreatePayout(ctx context.Context, payout *models.Payout) error
	FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListPayoutsByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Payout, error)
	ListFailedRetryable(ctx context.Context, maxAttempts int) ([]models.Payout, error)
	ListStuckProcessing(ctx context.Context, before time.Time) ([]models.Payout, error)

	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, attemptCount int) error
	ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error)

	AbsorbEntries(ctx context.Context, payoutID, vendorID uuid.UUID, entryIDs []uuid.UUID) (int64, error)
	MarkEntriesPaid(ctx context.Context, payoutID uuid.UUID) error

	SumCompletedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	SumReservedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListPayoutsByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Payout, error) {
	query := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC")
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var payouts []models.Payout
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListFailedRetryable(ctx context.Context, maxAttempts int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempt_count < ?", enums.PayoutStatusFailed, maxAttempts).
		Order("updated_at ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListStuckProcessing(ctx context.Context, before time.Time) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.PayoutStatusProcessing, before).
		Order("updated_at ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// TransitionStatus performs a compare-and-set on the payout status. The
// WHERE clause on the current status makes concurrent claimers lose cleanly:
// exactly one update affects a row.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PayoutStatusCompleted,
			"processed_at":   processedAt,
			"failure_reason": nil,
			"updated_at":     time.Now(),
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, attemptCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PayoutStatusFailed,
			"failure_reason": reason,
			"attempt_count":  attemptCount,
			"updated_at":     time.Now(),
		}).Error
}

// ResetForRetry re-arms a failed payout for another processing cycle. The
// attempt counter resets so a previously frozen payout becomes eligible again.
func (r *repository) ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusFailed).
		Updates(map[string]any{
			"status":         enums.PayoutStatusPending,
			"attempt_count":  0,
			"failure_reason": nil,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AbsorbEntries links unsettled entries to the payout. The payout_id IS NULL
// guard means a concurrent batch that already claimed an entry makes this
// absorb fewer rows than requested; callers must treat that as a conflict
// and roll back.
func (r *repository) AbsorbEntries(ctx context.Context, payoutID, vendorID uuid.UUID, entryIDs []uuid.UUID) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.CommissionEntry{}).
		Where("vendor_id = ? AND payout_id IS NULL AND id IN ?", vendorID, entryIDs).
		Updates(map[string]any{
			"payout_id": payoutID,
			"status":    enums.CommissionEntryStatusCalculated,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) MarkEntriesPaid(ctx context.Context, payoutID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CommissionEntry{}).
		Where("payout_id = ?", payoutID).
		Update("status", enums.CommissionEntryStatusPaid).Error
}

func (r *repository) SumCompletedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return r.sumByStatuses(ctx, vendorID, enums.PayoutStatusCompleted)
}

func (r *repository) SumReservedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return r.sumByStatuses(ctx, vendorID, enums.PayoutStatusPending, enums.PayoutStatusProcessing)
}

func (r *repository) sumByStatuses(ctx context.Context, vendorID uuid.UUID, statuses ...enums.PayoutStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("vendor_id = ? AND status IN ?", vendorID, statuses).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
