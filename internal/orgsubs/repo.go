package orgsubs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

// Repository persists organization subscription records. Each record is the
// current entitlement state for one (organization, tier, provider
// subscription) tuple and is mutated in place as provider events arrive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.OrganizationSubscription) error
	Update(ctx context.Context, record *models.OrganizationSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationSubscription, error)
	GetByOrganizationAndTier(ctx context.Context, organizationID, tierID uuid.UUID) (*models.OrganizationSubscription, error)
	GetActiveByOrganization(ctx context.Context, organizationID uuid.UUID, now time.Time) ([]models.OrganizationSubscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.OrganizationSubscription, error)
	GetExpiredInGrace(ctx context.Context, now time.Time) ([]models.OrganizationSubscription, error)
	SumAccountsByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error)
	ReplaceRoles(ctx context.Context, record *models.OrganizationSubscription, roles []models.Role) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an organization subscription repository.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.OrganizationSubscription) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "organization subscription already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create organization subscription")
	}
	return nil
}

// Update writes the full row back. Callers mutate the loaded record and save
// it; partial updates are not supported so reconciled state stays whole.
func (r *repository) Update(ctx context.Context, record *models.OrganizationSubscription) error {
	err := r.db.WithContext(ctx).
		Omit("Roles", "Tier", "Organization").
		Save(record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update organization subscription")
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationSubscription, error) {
	var record models.OrganizationSubscription
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Preload("Roles").
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) GetByOrganizationAndTier(ctx context.Context, organizationID, tierID uuid.UUID) (*models.OrganizationSubscription, error) {
	var record models.OrganizationSubscription
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Where("organization_id = ? AND tier_id = ?", organizationID, tierID).
		Order("updated_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetActiveByOrganization returns records still conferring entitlements:
// ACTIVE or TRIALING, and either perpetual or inside the expiry+grace window.
func (r *repository) GetActiveByOrganization(ctx context.Context, organizationID uuid.UUID, now time.Time) ([]models.OrganizationSubscription, error) {
	var records []models.OrganizationSubscription
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Preload("Roles").
		Preload("Roles.Permissions").
		Where("organization_id = ? AND status IN ?", organizationID, []string{"active", "trialing"}).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	live := records[:0]
	for _, record := range records {
		if withinGrace(&record, now) {
			live = append(live, record)
		}
	}
	return live, nil
}

// withinGrace reports whether the record's expiry plus grace period has not
// yet elapsed. The grace window keeps entitlements alive so a renewal payment
// can land before access is cut.
func withinGrace(record *models.OrganizationSubscription, now time.Time) bool {
	if record.ExpiresAt == nil {
		return true
	}
	graceDays := 0
	if record.GracePeriodDays != nil {
		graceDays = *record.GracePeriodDays
	}
	return record.ExpiresAt.AddDate(0, 0, graceDays).After(now)
}

// GetByStripeSubscriptionID resolves the provider's subscription reference to
// the most recently updated local record.
func (r *repository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.OrganizationSubscription, error) {
	var record models.OrganizationSubscription
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Preload("Roles").
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Order("updated_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetExpiredInGrace returns ACTIVE recurring records whose expiry has passed.
// The cron sweeps use it for both reminder and demotion passes, so the grace
// boundary itself is evaluated by the caller.
func (r *repository) GetExpiredInGrace(ctx context.Context, now time.Time) ([]models.OrganizationSubscription, error) {
	var records []models.OrganizationSubscription
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Preload("Organization").
		Preload("Organization.User").
		Preload("Organization.Tenant").
		Joins("JOIN subscription_tiers ON subscription_tiers.id = organization_subscriptions.tier_id").
		Where("organization_subscriptions.status = ?", "active").
		Where("organization_subscriptions.expires_at IS NOT NULL AND organization_subscriptions.expires_at < ?", now).
		Where("subscription_tiers.mode = ?", "recurring").
		Order("organization_subscriptions.expires_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) SumAccountsByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationSubscription{}).
		Select("SUM(accounts)").
		Where("organization_id = ? AND status IN ?", organizationID, []string{"active", "trialing"}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ReplaceRoles rewrites the role snapshot attached to the record.
func (r *repository) ReplaceRoles(ctx context.Context, record *models.OrganizationSubscription, roles []models.Role) error {
	err := r.db.WithContext(ctx).
		Model(record).
		Association("Roles").
		Replace(roles)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to replace subscription roles")
	}
	return nil
}
