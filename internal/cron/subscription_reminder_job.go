package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/aurelion-labs/identra-backend/internal/entitlement"
	"github.com/aurelion-labs/identra-backend/internal/notifications"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

// SubscriptionReminderJobParams configure the reminder job.
type SubscriptionReminderJobParams struct {
	OrgSubs       orgsubs.Repository
	Notifications *notifications.Service
	Logger        *logger.Logger
	Now           func() time.Time
}

// SubscriptionReminderJob sweeps expired recurring subscriptions once per
// cycle. Records still inside their grace window get a renewal reminder;
// records whose grace has fully elapsed are demoted to PAST_DUE with an
// expiry notice.
type SubscriptionReminderJob struct {
	orgSubs       orgsubs.Repository
	notifications *notifications.Service
	logg          *logger.Logger
	now           func() time.Time
}

// NewSubscriptionReminderJob builds the reminder job.
func NewSubscriptionReminderJob(params SubscriptionReminderJobParams) (*SubscriptionReminderJob, error) {
	if params.OrgSubs == nil {
		return nil, errors.New("orgsubs repo required")
	}
	if params.Notifications == nil {
		return nil, errors.New("notification service required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SubscriptionReminderJob{
		orgSubs:       params.OrgSubs,
		notifications: params.Notifications,
		logg:          params.Logger,
		now:           now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *SubscriptionReminderJob) Name() string {
	return "subscription_reminder"
}

// Run executes both sweeps. A failure on one record is collected and reported
// at the end; it never blocks the remaining records.
func (j *SubscriptionReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	candidates, err := j.orgSubs.GetExpiredInGrace(ctx, now)
	if err != nil {
		return fmt.Errorf("load expired subscriptions: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	var errs error
	for i := range candidates {
		record := &candidates[i]
		if err := j.processRecord(ctx, record, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %s: %w", record.ID, err))
		}
	}
	return errs
}

func (j *SubscriptionReminderJob) processRecord(ctx context.Context, record *models.OrganizationSubscription, now time.Time) error {
	if record.Organization == nil || record.Organization.User == nil {
		return errors.New("organization owner not loaded")
	}

	applicationURL := ""
	if record.Organization.Tenant != nil {
		applicationURL = record.Organization.Tenant.ApplicationURL
	}
	subscriptionName := ""
	if record.Tier != nil {
		subscriptionName = record.Tier.Name
	}

	ctx = j.logg.WithOrganizationID(ctx, record.OrganizationID.String())

	graceEnd := entitlement.GraceExpiresAt(record, now)
	if graceEnd != nil && graceEnd.After(now) {
		days := entitlement.DaysUntilGraceEnd(record, now)
		if days <= 0 {
			return nil
		}
		if err := j.notifications.NotifyGracePeriod(ctx, notifications.GracePeriodInput{
			OrganizationID:   record.OrganizationID,
			OwnerID:          record.Organization.User.ID,
			SubscriptionName: subscriptionName,
			DaysRemaining:    days,
			ApplicationURL:   applicationURL,
		}); err != nil {
			return err
		}
		j.logg.Info(ctx, "grace period reminder sent")
		return nil
	}

	// Grace boundary reached or passed: demote and notify once.
	record.Status = enums.SubscriptionStatusPastDue
	if err := j.orgSubs.Update(ctx, record); err != nil {
		return err
	}
	if err := j.notifications.NotifyExpired(ctx, notifications.ExpiredInput{
		OrganizationID:   record.OrganizationID,
		OwnerID:          record.Organization.User.ID,
		SubscriptionName: subscriptionName,
		ApplicationURL:   applicationURL,
	}); err != nil {
		return err
	}
	j.logg.Warn(ctx, "subscription grace elapsed, marked past due")
	return nil
}
