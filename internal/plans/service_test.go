package plans

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

type stubRepo struct {
	plans    map[uuid.UUID]*models.SubscriptionPlan
	defaults []models.SubscriptionPlan
	grants   []models.UserSubscription
	created  []*models.UserSubscription
	deleted  bool
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindPlanByID(_ context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return s.plans[id], nil
}

func (s *stubRepo) ListDefaultPlans(_ context.Context, _ uuid.UUID) ([]models.SubscriptionPlan, error) {
	return s.defaults, nil
}

func (s *stubRepo) CreateGrant(_ context.Context, grant *models.UserSubscription) error {
	for _, existing := range s.created {
		if existing.UserID == grant.UserID && existing.SubscriptionPlanID == grant.SubscriptionPlanID {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already holds this plan")
		}
	}
	s.created = append(s.created, grant)
	return nil
}

func (s *stubRepo) DeleteGrant(_ context.Context, _, _ uuid.UUID) (bool, error) {
	was := s.deleted
	s.deleted = true
	return !was, nil
}

func (s *stubRepo) ListGrantsByUser(_ context.Context, _ uuid.UUID) ([]models.UserSubscription, error) {
	return s.grants, nil
}

func newTestService(t *testing.T, repo Repository, now time.Time) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc, err := NewService(ServiceParams{Repo: repo, Logger: logg, Now: func() time.Time { return now }})
	require.NoError(t, err)
	return svc
}

func monthlyPlan(defaultGrant bool) *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		ID:               uuid.New(),
		TenantID:         uuid.New(),
		Name:             "starter",
		GrantedByDefault: defaultGrant,
		ExpiryInterval:   1,
		ExpiryUnit:       enums.PlanExpiryUnitMonth,
	}
}

func TestGrant_ComputesExpiryFromPlan(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	plan := monthlyPlan(false)
	repo := &stubRepo{plans: map[uuid.UUID]*models.SubscriptionPlan{plan.ID: plan}}
	svc := newTestService(t, repo, now)

	userID := uuid.New()
	grant, err := svc.Grant(context.Background(), userID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, grant.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 1, 0), *grant.ExpiresAt)
	assert.Equal(t, userID, grant.UserID)
}

func TestGrant_PerpetualWhenIntervalNonPositive(t *testing.T) {
	now := time.Now().UTC()
	plan := monthlyPlan(false)
	plan.ExpiryInterval = 0
	repo := &stubRepo{plans: map[uuid.UUID]*models.SubscriptionPlan{plan.ID: plan}}
	svc := newTestService(t, repo, now)

	grant, err := svc.Grant(context.Background(), uuid.New(), plan.ID)
	require.NoError(t, err)
	assert.Nil(t, grant.ExpiresAt)
}

func TestGrant_UnknownPlan(t *testing.T) {
	svc := newTestService(t, &stubRepo{plans: map[uuid.UUID]*models.SubscriptionPlan{}}, time.Now())

	_, err := svc.Grant(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGrantDefaults_SkipsExistingGrants(t *testing.T) {
	now := time.Now().UTC()
	planA := monthlyPlan(true)
	planB := monthlyPlan(true)
	repo := &stubRepo{defaults: []models.SubscriptionPlan{*planA, *planB}}
	svc := newTestService(t, repo, now)

	userID := uuid.New()
	require.NoError(t, svc.GrantDefaults(context.Background(), planA.TenantID, userID))
	assert.Len(t, repo.created, 2)

	// Re-registration path: duplicates are tolerated silently.
	require.NoError(t, svc.GrantDefaults(context.Background(), planA.TenantID, userID))
	assert.Len(t, repo.created, 2)
}

func TestRevoke_NotFound(t *testing.T) {
	repo := &stubRepo{deleted: true}
	svc := newTestService(t, repo, time.Now())

	err := svc.Revoke(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListActive_FiltersExpired(t *testing.T) {
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	repo := &stubRepo{grants: []models.UserSubscription{
		{ID: uuid.New(), ExpiresAt: nil},
		{ID: uuid.New(), ExpiresAt: &future},
		{ID: uuid.New(), ExpiresAt: &expired},
	}}
	svc := newTestService(t, repo, now)

	active, err := svc.ListActive(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
