package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary owning users, plans, and the
// billing catalog.
type Tenant struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	ApplicationURL string    `gorm:"column:application_url;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime;index"`

	DefaultRoles []Role `gorm:"many2many:tenant_default_roles"`
}
