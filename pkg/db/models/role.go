package models

import (
	"time"

	"github.com/google/uuid"
)

// Role groups permissions for grants at the tenant, subscription, and plan
// levels.
type Role struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;index"`

	Permissions []Permission `gorm:"many2many:role_permissions"`
}
