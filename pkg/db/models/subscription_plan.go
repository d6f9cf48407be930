package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// SubscriptionPlan is a tenant-scoped, non-billing entitlement template
// granted to individual users for a fixed interval.
type SubscriptionPlan struct {
	ID               uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_subscription_plans_tenant_name"`
	Name             string               `gorm:"column:name;not null;uniqueIndex:ux_subscription_plans_tenant_name"`
	Details          *string              `gorm:"column:details;type:text"`
	GrantedByDefault bool                 `gorm:"column:granted_by_default;not null;default:false"`
	ExpiryInterval   int                  `gorm:"column:expiry_interval;not null;default:1"`
	ExpiryUnit       enums.PlanExpiryUnit `gorm:"column:expiry_unit;type:plan_expiry_unit;not null;default:'month';index"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime;index"`

	Tenant *Tenant `gorm:"foreignKey:TenantID"`
	Roles  []Role  `gorm:"many2many:subscription_plan_roles"`
}

// ExpiryFrom computes a grant's expiry from the plan's interval and unit.
// A non-positive interval means the grant never expires.
func (p *SubscriptionPlan) ExpiryFrom(now time.Time) *time.Time {
	if p == nil || p.ExpiryInterval <= 0 {
		return nil
	}
	var expires time.Time
	switch p.ExpiryUnit.Normalized() {
	case enums.PlanExpiryUnitDay:
		expires = now.AddDate(0, 0, p.ExpiryInterval)
	case enums.PlanExpiryUnitMonth:
		expires = now.AddDate(0, p.ExpiryInterval, 0)
	case enums.PlanExpiryUnitYear:
		expires = now.AddDate(p.ExpiryInterval, 0, 0)
	default:
		return nil
	}
	return &expires
}
