package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// SubscriptionTier is a purchasable price point under a Subscription.
// One-time tiers never carry type/interval/interval_count; the schema CHECK
// constraint enforces that at write time.
type SubscriptionTier struct {
	ID             uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID                   `gorm:"column:subscription_id;type:uuid;not null;index"`
	Name           string                      `gorm:"column:name;not null"`
	StripePriceID  string                      `gorm:"column:stripe_price_id;not null;uniqueIndex"`
	Mode           enums.TierMode              `gorm:"column:mode;type:tier_mode;not null"`
	Type           *enums.TierType             `gorm:"column:type;type:tier_type"`
	Interval       *enums.SubscriptionInterval `gorm:"column:interval;type:subscription_interval"`
	IntervalCount  *int                        `gorm:"column:interval_count"`
	Quantity       int                         `gorm:"column:quantity;not null;default:1"`
	PriceAmount    decimal.Decimal             `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode   string                      `gorm:"column:currency_code;not null;default:'usd'"`
	IsPublic       bool                        `gorm:"column:is_public;not null;default:true"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime;index"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID"`
}

// IsPrimary reports whether the tier is the primary recurring plan.
func (t *SubscriptionTier) IsPrimary() bool {
	return t != nil && t.Mode == enums.TierModeRecurring &&
		t.Type != nil && *t.Type == enums.TierTypePrimary
}
