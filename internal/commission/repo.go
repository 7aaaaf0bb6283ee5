package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// Repository persists commission rates and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindCategoryRate(ctx context.Context, vendorID, categoryID uuid.UUID, at time.Time) (*models.CommissionRate, error)
	FindVendorDefaultRate(ctx context.Context, vendorID uuid.UUID, at time.Time) (*models.CommissionRate, error)
	FindPlatformDefaultRate(ctx context.Context, at time.Time) (*models.CommissionRate, error)

	CreateEntry(ctx context.Context, entry *models.CommissionEntry) error
	FindEntryByOrderID(ctx context.Context, orderID uuid.UUID) (*models.CommissionEntry, error)
	ListUnsettledByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.CommissionEntry, error)
	SumEarningsByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCategoryRate(ctx context.Context, vendorID, categoryID uuid.UUID, at time.Time) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND category_id = ?", vendorID, categoryID).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", at, at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindVendorDefaultRate(ctx context.Context, vendorID uuid.UUID, at time.Time) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND category_id IS NULL", vendorID).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", at, at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindPlatformDefaultRate(ctx context.Context, at time.Time) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("vendor_id IS NULL AND category_id IS NULL").
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", at, at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.CommissionEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindEntryByOrderID(ctx context.Context, orderID uuid.UUID) (*models.CommissionEntry, error) {
	var entry models.CommissionEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListUnsettledByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.CommissionEntry, error) {
	var entries []models.CommissionEntry
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND payout_id IS NULL AND status <> ?", vendorID, enums.CommissionEntryStatusPaid).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumEarningsByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.CommissionEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("vendor_id = ?", vendorID).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
