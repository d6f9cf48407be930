package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a tenant-scoped account. Credential material lives with the auth
// collaborator, not here.
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Email            string    `gorm:"column:email;not null;index"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime;index"`

	Tenant      *Tenant      `gorm:"foreignKey:TenantID"`
	Roles       []Role       `gorm:"many2many:user_roles"`
	Permissions []Permission `gorm:"many2many:user_permissions"`
}
