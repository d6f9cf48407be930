package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

type stubRepo struct {
	created []*models.Notification
	marked  bool
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, n *models.Notification) error {
	s.created = append(s.created, n)
	return nil
}

func (s *stubRepo) ListByUser(_ context.Context, _ uuid.UUID, _ bool) ([]models.Notification, error) {
	return nil, nil
}

func (s *stubRepo) MarkRead(_ context.Context, _, _ uuid.UUID, _ time.Time) (bool, error) {
	return s.marked, nil
}

func TestNotifyGracePeriod(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	input := GracePeriodInput{
		OrganizationID:   uuid.New(),
		OwnerID:          uuid.New(),
		SubscriptionName: "Pro",
		DaysRemaining:    4,
		ApplicationURL:   "https://app.acme.test/",
	}
	require.NoError(t, svc.NotifyGracePeriod(context.Background(), input))

	require.Len(t, repo.created, 1)
	got := repo.created[0]
	assert.Equal(t, models.NotificationKindGracePeriod, got.Kind)
	assert.Equal(t, "Pro", got.SubscriptionName)
	require.NotNil(t, got.DaysRemaining)
	assert.Equal(t, 4, *got.DaysRemaining)
	assert.Equal(t, "https://app.acme.test/billing", got.PaymentURL)
}

func TestNotifyGracePeriod_RejectsNonPositiveDays(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: &stubRepo{}})
	require.NoError(t, err)

	err = svc.NotifyGracePeriod(context.Background(), GracePeriodInput{DaysRemaining: 0})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNotifyExpired(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	input := ExpiredInput{
		OrganizationID:   uuid.New(),
		OwnerID:          uuid.New(),
		SubscriptionName: "Pro",
		ApplicationURL:   "https://app.acme.test",
	}
	require.NoError(t, svc.NotifyExpired(context.Background(), input))

	require.Len(t, repo.created, 1)
	got := repo.created[0]
	assert.Equal(t, models.NotificationKindExpired, got.Kind)
	assert.Nil(t, got.DaysRemaining)
	assert.Equal(t, "https://app.acme.test/billing", got.PaymentURL)
}

func TestMarkRead_NotFound(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: &stubRepo{marked: false}})
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
