package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
)

// Repository resolves the billing catalog: subscriptions and their tiers.
// Lookups return (nil, nil) for a well-formed but unmatched reference;
// callers decide whether absence is fatal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTierByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionTier, error)
	FindTierByStripePriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionTier, error)
	ListTiersBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionTier, error)
	ListTiers(ctx context.Context) ([]models.SubscriptionTier, error)
	ListPublicSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error)
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// tierQuery eagerly loads the parent subscription with its role grants so
// reconciler handlers can snapshot roles without extra round trips.
func (r *repository) tierQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Subscription").
		Preload("Subscription.Roles").
		Preload("Subscription.Roles.Permissions")
}

func (r *repository) FindTierByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.tierQuery(ctx).Where("id = ?", id).First(&tier).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) FindTierByStripePriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.tierQuery(ctx).Where("stripe_price_id = ?", stripePriceID).First(&tier).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) ListTiersBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionTier, error) {
	var tiers []models.SubscriptionTier
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repository) ListTiers(ctx context.Context) ([]models.SubscriptionTier, error) {
	var tiers []models.SubscriptionTier
	err := r.tierQuery(ctx).Order("created_at ASC").Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repository) ListPublicSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Tiers", "is_public = ?", true).
		Where("tenant_id = ? AND is_public = ?", tenantID, true).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Preload("Roles").
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
