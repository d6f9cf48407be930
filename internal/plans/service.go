package plans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

// ServiceParams groups dependencies for the plan service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// Service manages per-user plan grants outside the billing flow.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a plan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, logg: params.Logger, now: now}, nil
}

// Grant attaches a plan to a user, computing expiry from the plan's interval
// at grant time.
func (s *Service) Grant(ctx context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error) {
	plan, err := s.repo.FindPlanByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription plan not found")
	}

	grant := &models.UserSubscription{
		UserID:             userID,
		SubscriptionPlanID: plan.ID,
		ExpiresAt:          plan.ExpiryFrom(s.now().UTC()),
	}
	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	grant.SubscriptionPlan = plan
	return grant, nil
}

// GrantDefaults attaches every granted-by-default plan of the tenant to a
// freshly registered user. A duplicate grant is skipped, not fatal.
func (s *Service) GrantDefaults(ctx context.Context, tenantID, userID uuid.UUID) error {
	defaults, err := s.repo.ListDefaultPlans(ctx, tenantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list default plans")
	}
	for _, plan := range defaults {
		grant := &models.UserSubscription{
			UserID:             userID,
			SubscriptionPlanID: plan.ID,
			ExpiresAt:          plan.ExpiryFrom(s.now().UTC()),
		}
		if err := s.repo.CreateGrant(ctx, grant); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			return err
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"plan_id": plan.ID.String(),
			"user_id": userID.String(),
		}), "granted default plan")
	}
	return nil
}

// Revoke removes a user's grant for a plan.
func (s *Service) Revoke(ctx context.Context, userID, planID uuid.UUID) error {
	removed, err := s.repo.DeleteGrant(ctx, userID, planID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke plan grant")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plan grant not found")
	}
	return nil
}

// ListActive returns the user's grants that have not expired.
func (s *Service) ListActive(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	grants, err := s.repo.ListGrantsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list plan grants")
	}
	now := s.now().UTC()
	active := grants[:0]
	for _, grant := range grants {
		if grant.IsActive(now) {
			active = append(active, grant)
		}
	}
	return active, nil
}
