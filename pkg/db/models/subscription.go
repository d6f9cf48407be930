package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Subscription is a tenant-scoped billing catalog root: one Stripe product,
// a seat capacity, the roles granted to subscribing organizations, and its
// purchasable tiers.
type Subscription struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name            string         `gorm:"column:name;not null"`
	StripeProductID string         `gorm:"column:stripe_product_id;not null;uniqueIndex"`
	Accounts        int            `gorm:"column:accounts;not null;default:1"`
	IsPublic        bool           `gorm:"column:is_public;not null;default:true"`
	Features        pq.StringArray `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime;index"`

	Tenant *Tenant            `gorm:"foreignKey:TenantID"`
	Roles  []Role             `gorm:"many2many:subscription_roles"`
	Tiers  []SubscriptionTier `gorm:"foreignKey:SubscriptionID"`
}
