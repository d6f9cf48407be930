package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
)

// Repository loads the organization graph the billing flows act on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*models.OrganizationMember, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
	CountSubscriptionRecords(ctx context.Context, organizationID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Tenant").
		Where("id = ?", id).
		First(&org).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *repository) GetMembership(ctx context.Context, organizationID, userID uuid.UUID) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.WithContext(ctx).
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

func (r *repository) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

func (r *repository) CountSubscriptionRecords(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationSubscription{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	return count, err
}
