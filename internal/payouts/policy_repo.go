package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db/models"
)

// PolicyRepository persists per-vendor payout policies.
type PolicyRepository interface {
	WithTx(tx *gorm.DB) PolicyRepository

	Create(ctx context.Context, policy *models.PayoutPolicy) error
	Update(ctx context.Context, policy *models.PayoutPolicy) error
	FindByVendor(ctx context.Context, vendorID uuid.UUID) (*models.PayoutPolicy, error)
	ListActive(ctx context.Context) ([]models.PayoutPolicy, error)
	AdvanceSchedule(ctx context.Context, vendorID uuid.UUID, next time.Time) error
}

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository builds a policy repository bound to the provided DB.
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) WithTx(tx *gorm.DB) PolicyRepository {
	if tx == nil {
		return r
	}
	return &policyRepository{db: tx}
}

func (r *policyRepository) Create(ctx context.Context, policy *models.PayoutPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

func (r *policyRepository) Update(ctx context.Context, policy *models.PayoutPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}

func (r *policyRepository) FindByVendor(ctx context.Context, vendorID uuid.UUID) (*models.PayoutPolicy, error) {
	var policy models.PayoutPolicy
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) ListActive(ctx context.Context) ([]models.PayoutPolicy, error) {
	var policies []models.PayoutPolicy
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&policies).Error
	if err != nil {
		return nil, err
	}
	return policies, nil
}

func (r *policyRepository) AdvanceSchedule(ctx context.Context, vendorID uuid.UUID, next time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutPolicy{}).
		Where("vendor_id = ?", vendorID).
		Updates(map[string]any{
			"next_scheduled_date": next,
			"updated_at":          time.Now(),
		}).Error
}
