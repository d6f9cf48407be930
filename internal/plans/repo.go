package plans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

// Repository persists subscription plans and per-user grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	ListDefaultPlans(ctx context.Context, tenantID uuid.UUID) ([]models.SubscriptionPlan, error)
	CreateGrant(ctx context.Context, grant *models.UserSubscription) error
	DeleteGrant(ctx context.Context, userID, planID uuid.UUID) (bool, error)
	ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan repository.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Preload("Roles.Permissions").
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListDefaultPlans(ctx context.Context, tenantID uuid.UUID) ([]models.SubscriptionPlan, error) {
	var result []models.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND granted_by_default = ?", tenantID, true).
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) CreateGrant(ctx context.Context, grant *models.UserSubscription) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(grant).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user already holds this plan")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create plan grant")
	}
	return nil
}

func (r *repository) DeleteGrant(ctx context.Context, userID, planID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND subscription_plan_id = ?", userID, planID).
		Delete(&models.UserSubscription{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	var grants []models.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("SubscriptionPlan").
		Preload("SubscriptionPlan.Roles").
		Preload("SubscriptionPlan.Roles.Permissions").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}
