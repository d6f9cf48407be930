// Package entitlement computes access state from subscription records.
// Everything here is pure: callers inject now, nothing reads the clock or
// touches storage, and undefined inputs yield zero values rather than errors.
package entitlement

import (
	"time"

	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// IsActive reports whether the subscription grants access at now: the status
// is ACTIVE or TRIALING and the record has not passed its expiry. A nil
// expiry never expires. Expiry exactly at now counts as expired.
func IsActive(sub *models.OrganizationSubscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	if sub.Status != enums.SubscriptionStatusActive && sub.Status != enums.SubscriptionStatusTrialing {
		return false
	}
	return sub.ExpiresAt == nil || sub.ExpiresAt.After(now)
}

// GraceExpiresAt returns the end of the grace window: expiry plus the grace
// period in days. Nil when the record has no expiry (one-time purchases),
// since grace is undefined without a boundary to grace past.
func GraceExpiresAt(sub *models.OrganizationSubscription, now time.Time) *time.Time {
	if sub == nil || sub.ExpiresAt == nil {
		return nil
	}
	days := 0
	if sub.GracePeriodDays != nil {
		days = *sub.GracePeriodDays
	}
	end := sub.ExpiresAt.AddDate(0, 0, days)
	return &end
}

// IsInGrace reports whether now falls strictly between expiry and the grace
// boundary on a record that is no longer active.
func IsInGrace(sub *models.OrganizationSubscription, now time.Time) bool {
	if sub == nil || sub.ExpiresAt == nil {
		return false
	}
	if IsActive(sub, now) {
		return false
	}
	graceEnd := GraceExpiresAt(sub, now)
	if graceEnd == nil {
		return false
	}
	return sub.ExpiresAt.Before(now) && graceEnd.After(now)
}

// DaysUntilExpiry returns whole days until expiry, floored at zero. A record
// without an expiry reports zero.
func DaysUntilExpiry(sub *models.OrganizationSubscription, now time.Time) int {
	if sub == nil || sub.ExpiresAt == nil {
		return 0
	}
	return wholeDaysUntil(*sub.ExpiresAt, now)
}

// DaysUntilGraceEnd returns whole days until the grace boundary, floored at
// zero. Zero when grace is undefined or already elapsed.
func DaysUntilGraceEnd(sub *models.OrganizationSubscription, now time.Time) int {
	graceEnd := GraceExpiresAt(sub, now)
	if graceEnd == nil {
		return 0
	}
	return wholeDaysUntil(*graceEnd, now)
}

func wholeDaysUntil(boundary, now time.Time) int {
	if !boundary.After(now) {
		return 0
	}
	return int(boundary.Sub(now) / (24 * time.Hour))
}
