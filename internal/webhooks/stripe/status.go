package stripewebhook

import (
	"github.com/stripe/stripe-go/v84"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// mapStatus translates a provider subscription status into the internal
// lifecycle status. Unknown values collapse to PENDING rather than failing
// the event, so a new provider status degrades access instead of dropping
// the record.
func mapStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusIncomplete:
		return enums.SubscriptionStatusPending
	case stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusExpired
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusActive:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return enums.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	default:
		return enums.SubscriptionStatusPending
	}
}
