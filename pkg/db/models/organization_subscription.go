package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// OrganizationSubscription is the live entitlement record driven by the
// billing reconciler. Roles are snapshotted from the parent Subscription at
// creation, not joined live. The composite unique index tolerates historical
// rows across status transitions while rejecting true double-inserts.
type OrganizationSubscription struct {
	ID                   uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID       uuid.UUID                   `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_org_subscriptions_tuple"`
	TierID               uuid.UUID                   `gorm:"column:tier_id;type:uuid;not null;uniqueIndex:ux_org_subscriptions_tuple"`
	StripeSubscriptionID string                      `gorm:"column:stripe_subscription_id;not null;uniqueIndex:ux_org_subscriptions_tuple;index"`
	Status               enums.SubscriptionStatus    `gorm:"column:status;type:subscription_status;not null;default:'pending';uniqueIndex:ux_org_subscriptions_tuple"`
	Accounts             int                         `gorm:"column:accounts;not null;default:0"`
	Quantity             int                         `gorm:"column:quantity;not null;default:1"`
	ExpiresAt            *time.Time                  `gorm:"column:expires_at;index"`
	GracePeriodDays      *int                        `gorm:"column:grace_period_days"`
	Interval             *enums.SubscriptionInterval `gorm:"column:interval;type:subscription_interval"`
	IntervalCount        *int                        `gorm:"column:interval_count"`
	CreatedAt            time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt            time.Time                   `gorm:"column:updated_at;autoUpdateTime;index"`

	Tier         *SubscriptionTier `gorm:"foreignKey:TierID"`
	Organization *Organization     `gorm:"foreignKey:OrganizationID"`
	Roles        []Role            `gorm:"many2many:organization_subscription_roles"`
}
