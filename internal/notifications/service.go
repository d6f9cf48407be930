package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

// ServiceParams groups dependencies for the notification service.
type ServiceParams struct {
	Repo Repository
}

// Service records subscription lifecycle notifications for organization
// owners.
type Service struct {
	repo Repository
}

// NewService builds a notification service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// GracePeriodInput captures everything needed to record a renewal reminder.
type GracePeriodInput struct {
	OrganizationID   uuid.UUID
	OwnerID          uuid.UUID
	SubscriptionName string
	DaysRemaining    int
	ApplicationURL   string
}

// NotifyGracePeriod records a reminder that a subscription has entered its
// grace window with DaysRemaining left before access is cut.
func (s *Service) NotifyGracePeriod(ctx context.Context, input GracePeriodInput) error {
	if input.DaysRemaining <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "days remaining must be positive")
	}
	days := input.DaysRemaining
	notification := &models.Notification{
		OrganizationID:   input.OrganizationID,
		UserID:           input.OwnerID,
		Kind:             models.NotificationKindGracePeriod,
		SubscriptionName: input.SubscriptionName,
		DaysRemaining:    &days,
		PaymentURL:       paymentURL(input.ApplicationURL),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record grace period notification")
	}
	return nil
}

// ExpiredInput captures everything needed to record an expiry notice.
type ExpiredInput struct {
	OrganizationID   uuid.UUID
	OwnerID          uuid.UUID
	SubscriptionName string
	ApplicationURL   string
}

// NotifyExpired records that a subscription's grace window elapsed without
// payment.
func (s *Service) NotifyExpired(ctx context.Context, input ExpiredInput) error {
	notification := &models.Notification{
		OrganizationID:   input.OrganizationID,
		UserID:           input.OwnerID,
		Kind:             models.NotificationKindExpired,
		SubscriptionName: input.SubscriptionName,
		PaymentURL:       paymentURL(input.ApplicationURL),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record expiry notification")
	}
	return nil
}

// ListForUser returns the user's notifications, optionally unread only.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags a notification as read by its recipient.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, id, userID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark notification read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func paymentURL(applicationURL string) string {
	return strings.TrimRight(applicationURL, "/") + "/billing"
}
