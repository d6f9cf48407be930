package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a user-created group that can hold billing subscriptions and
// members. UserID references the owning user, whose Stripe customer reference
// resolves webhook customer lookups.
type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;index"`

	User    *User                `gorm:"foreignKey:UserID"`
	Tenant  *Tenant              `gorm:"foreignKey:TenantID"`
	Members []OrganizationMember `gorm:"foreignKey:OrganizationID"`
}
