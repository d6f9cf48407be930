package projector

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
)

// Repository loads the identity graph needed to project permissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetUserWithGrants(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetTenantDefaultRoles(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error)
	GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*models.OrganizationMember, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a projector repository.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetUserWithGrants(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Preload("Roles.Permissions").
		Preload("Permissions").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetTenantDefaultRoles(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Preload("DefaultRoles").
		Preload("DefaultRoles.Permissions").
		Where("id = ?", tenantID).
		First(&tenant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return tenant.DefaultRoles, nil
}

func (r *repository) GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}
