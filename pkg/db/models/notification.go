package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds emitted by the subscription reminder sweeps.
const (
	NotificationKindGracePeriod = "subscription_grace_period"
	NotificationKindExpired     = "subscription_expired"
)

// Notification is a persisted message for an organization owner. Rendering
// and delivery happen downstream; this row is the source of truth for what
// was triggered.
type Notification struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID   uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Kind             string     `gorm:"column:kind;not null;index"`
	SubscriptionName string     `gorm:"column:subscription_name;not null"`
	DaysRemaining    *int       `gorm:"column:days_remaining"`
	PaymentURL       string     `gorm:"column:payment_url;not null"`
	ReadAt           *time.Time `gorm:"column:read_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime;index"`
}
