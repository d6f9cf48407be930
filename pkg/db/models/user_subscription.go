package models

import (
	"time"

	"github.com/google/uuid"
)

// UserSubscription joins a user to a SubscriptionPlan. Expiry is computed at
// grant time from the plan's interval; nil never expires.
type UserSubscription struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_subscriptions_user_plan"`
	SubscriptionPlanID uuid.UUID  `gorm:"column:subscription_plan_id;type:uuid;not null;uniqueIndex:ux_user_subscriptions_user_plan"`
	ExpiresAt          *time.Time `gorm:"column:expires_at;index"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime;index"`

	User             *User             `gorm:"foreignKey:UserID"`
	SubscriptionPlan *SubscriptionPlan `gorm:"foreignKey:SubscriptionPlanID"`
}

// IsActive reports whether the grant is still live at now.
func (s *UserSubscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
