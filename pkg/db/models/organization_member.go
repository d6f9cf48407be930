package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// OrganizationMember joins a user to an organization with a role and any
// individually assigned permissions.
type OrganizationMember struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_org_members_org_user"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_org_members_org_user"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'member'"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime;index"`

	Organization *Organization `gorm:"foreignKey:OrganizationID"`
	User         *User         `gorm:"foreignKey:UserID"`
	Permissions  []Permission  `gorm:"many2many:organization_member_permissions"`
}
