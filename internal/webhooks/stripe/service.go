package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/internal/catalog"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
	"github.com/aurelion-labs/identra-backend/pkg/metrics"
)

// oneTimeRefPrefix marks subscription records that came from a one-time
// checkout and have no provider subscription behind them.
const oneTimeRefPrefix = "one_time_"

// Outcome classifies what the reconciler did with a delivered event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type txRunner interface {
	RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the reconciler.
type ServiceParams struct {
	Catalog           catalog.Repository
	OrgSubs           orgsubs.Repository
	Audit             AuditRepository
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.WebhookMetrics
	GracePeriodDays   int
	Now               func() time.Time
}

// Service reconciles billing provider events into organization subscription
// state. Every handler is a terminal error boundary: whatever happens, the
// event is acknowledged and an audit row records the outcome.
type Service struct {
	catalog   catalog.Repository
	orgSubs   orgsubs.Repository
	audit     AuditRepository
	txRunner  txRunner
	logg      *logger.Logger
	metrics   *metrics.WebhookMetrics
	graceDays int
	now       func() time.Time
}

// NewService builds a reconciler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog repo is required")
	}
	if params.OrgSubs == nil {
		return nil, errors.New("orgsubs repo is required")
	}
	if params.Audit == nil {
		return nil, errors.New("audit repo is required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	graceDays := params.GracePeriodDays
	if graceDays <= 0 {
		graceDays = 7
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:   params.Catalog,
		orgSubs:   params.OrgSubs,
		audit:     params.Audit,
		txRunner:  params.TransactionRunner,
		logg:      params.Logger,
		metrics:   params.Metrics,
		graceDays: graceDays,
		now:       now,
	}, nil
}

// HandleEvent applies one verified provider event. The returned Outcome is
// informational; the error return is always nil for handler failures because
// the delivery must still be acknowledged. Only audit-trail write failures
// propagate.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return OutcomeSkipped, nil
	}
	ctx = s.logg.WithField(ctx, "stripe_event_id", event.ID)
	ctx = s.logg.WithField(ctx, "stripe_event_type", string(event.Type))

	// Durable idempotency check. A redelivered event is acknowledged
	// without reapplying its effect.
	seen, err := s.audit.ExistsByEventID(ctx, event.ID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check event history")
	}
	if seen {
		s.logg.Info(ctx, "event already applied, skipping")
		s.metrics.IncEvent(string(event.Type), string(OutcomeSkipped))
		return OutcomeSkipped, nil
	}

	outcome, handled, handlerErr := s.dispatch(ctx, event)
	s.metrics.IncEvent(string(event.Type), string(outcome))
	if !handled {
		// Unrecognized types are acknowledged without an audit row.
		s.logg.Info(ctx, "unhandled event type, ignoring")
		return outcome, nil
	}

	audit := &models.SubscriptionEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Data:    json.RawMessage(event.Data.Raw),
		Status:  enums.EventStatusNormal,
	}
	if handlerErr != nil {
		msg := handlerErr.Error()
		audit.Error = &msg
		audit.Status = enums.EventStatusCritical
		s.logg.Error(ctx, "event handler failed", handlerErr)
	}
	if err := s.audit.Create(ctx, audit); err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record event")
	}
	return outcome, nil
}

// dispatch routes the event to its handler. The second return reports whether
// the event type is one the reconciler tracks at all.
func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (Outcome, bool, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return OutcomeFailed, true, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		outcome, err := s.handleCheckoutCompleted(ctx, &session)
		return outcome, true, err
	case stripe.EventTypeCustomerSubscriptionCreated:
		sub, err := decodeSubscription(event)
		if err != nil {
			return OutcomeFailed, true, err
		}
		outcome, err := s.handleSubscriptionCreated(ctx, sub)
		return outcome, true, err
	case stripe.EventTypeCustomerSubscriptionUpdated:
		sub, err := decodeSubscription(event)
		if err != nil {
			return OutcomeFailed, true, err
		}
		outcome, err := s.handleSubscriptionUpdated(ctx, sub)
		return outcome, true, err
	case stripe.EventTypeCustomerSubscriptionDeleted:
		sub, err := decodeSubscription(event)
		if err != nil {
			return OutcomeFailed, true, err
		}
		outcome, err := s.handleSubscriptionDeleted(ctx, sub)
		return outcome, true, err
	case stripe.EventTypeInvoicePaid:
		outcome, err := s.handleInvoicePaid(ctx, event)
		return outcome, true, err
	case stripe.EventTypeInvoicePaymentFailed:
		outcome, err := s.handleInvoiceFailed(ctx, event)
		return outcome, true, err
	default:
		return OutcomeSkipped, false, nil
	}
}

func decodeSubscription(event *stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription")
	}
	return &sub, nil
}

// handleCheckoutCompleted records one-time purchases. Recurring checkouts are
// skipped here because the subscription lifecycle events carry the state.
func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) (Outcome, error) {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("checkout session %s not paid", session.ID))
	}
	if session.Mode != stripe.CheckoutSessionModePayment {
		return OutcomeSkipped, nil
	}

	organizationID, err := organizationIDFromMetadata(session.Metadata)
	if err != nil {
		return OutcomeFailed, err
	}
	tier, err := s.tierFromMetadata(ctx, session.Metadata)
	if err != nil {
		return OutcomeFailed, err
	}

	record := &models.OrganizationSubscription{
		OrganizationID:       organizationID,
		TierID:               tier.ID,
		StripeSubscriptionID: oneTimeRefPrefix + session.ID,
		Status:               enums.SubscriptionStatusActive,
		Quantity:             tier.Quantity,
	}
	if tier.Subscription != nil {
		record.Accounts = tier.Subscription.Accounts
	}

	err = s.txRunner.RunInTx(ctx, func(tx *gorm.DB) error {
		repo := s.orgSubs.WithTx(tx)
		if err := repo.Create(ctx, record); err != nil {
			return err
		}
		if tier.Subscription != nil && len(tier.Subscription.Roles) > 0 {
			return repo.ReplaceRoles(ctx, record, tier.Subscription.Roles)
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logg.Info(s.logg.WithOrganizationID(ctx, organizationID.String()), "one-time purchase recorded")
	return OutcomeApplied, nil
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, sub *stripe.Subscription) (Outcome, error) {
	existing, err := s.orgSubs.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if existing != nil {
		// The provider may deliver created after updated; the update
		// path is authoritative once a record exists.
		return s.applyUpdate(ctx, existing, sub)
	}

	organizationID, err := organizationIDFromMetadata(sub.Metadata)
	if err != nil {
		return OutcomeFailed, err
	}
	tier, err := s.tierFromPrice(ctx, sub)
	if err != nil {
		return OutcomeFailed, err
	}

	// A re-subscription arrives with a fresh provider subscription id. For
	// recurring tiers the existing record for this organization and tier is
	// refreshed instead of growing a second live row.
	held, err := s.orgSubs.GetByOrganizationAndTier(ctx, organizationID, tier.ID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if held != nil && tier.Mode == enums.TierModeRecurring {
		held.StripeSubscriptionID = sub.ID
		return s.applyUpdate(ctx, held, sub)
	}

	graceDays := s.graceDays
	record := &models.OrganizationSubscription{
		OrganizationID:       organizationID,
		TierID:               tier.ID,
		StripeSubscriptionID: sub.ID,
		Status:               mapStatus(sub.Status),
		Quantity:             providerQuantity(tier, sub),
		ExpiresAt:            periodEnd(sub),
		GracePeriodDays:      &graceDays,
		Interval:             tier.Interval,
		IntervalCount:        tier.IntervalCount,
	}
	if tier.Subscription != nil {
		record.Accounts = tier.Subscription.Accounts
	}

	err = s.txRunner.RunInTx(ctx, func(tx *gorm.DB) error {
		repo := s.orgSubs.WithTx(tx)
		if err := repo.Create(ctx, record); err != nil {
			return err
		}
		if tier.Subscription != nil && len(tier.Subscription.Roles) > 0 {
			return repo.ReplaceRoles(ctx, record, tier.Subscription.Roles)
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logg.Info(s.logg.WithOrganizationID(ctx, organizationID.String()), "subscription record created")
	return OutcomeApplied, nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) (Outcome, error) {
	existing, err := s.orgSubs.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if existing == nil {
		// Out-of-order delivery: fall back to the creation path.
		return s.handleSubscriptionCreated(ctx, sub)
	}
	return s.applyUpdate(ctx, existing, sub)
}

// applyUpdate refreshes a record from provider state. All mutations land in
// one save so a failure leaves the record untouched.
func (s *Service) applyUpdate(ctx context.Context, record *models.OrganizationSubscription, sub *stripe.Subscription) (Outcome, error) {
	record.Status = mapStatus(sub.Status)
	if end := periodEnd(sub); end != nil {
		record.ExpiresAt = end
	}

	priceID := currentPriceID(sub)
	var newTier *models.SubscriptionTier
	if priceID != "" && (record.Tier == nil || record.Tier.StripePriceID != priceID) {
		tier, err := s.catalog.FindTierByStripePriceID(ctx, priceID)
		if err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve tier for price change")
		}
		if tier == nil {
			return OutcomeFailed, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no tier for price %s", priceID))
		}
		newTier = tier
		record.TierID = tier.ID
		record.Interval = tier.Interval
		record.IntervalCount = tier.IntervalCount
		if tier.Subscription != nil {
			record.Accounts = tier.Subscription.Accounts
		}
		record.Quantity = providerQuantity(tier, sub)
	} else if record.Tier != nil {
		record.Quantity = providerQuantity(record.Tier, sub)
	}

	err := s.txRunner.RunInTx(ctx, func(tx *gorm.DB) error {
		repo := s.orgSubs.WithTx(tx)
		if err := repo.Update(ctx, record); err != nil {
			return err
		}
		if newTier != nil && newTier.Subscription != nil {
			return repo.ReplaceRoles(ctx, record, newTier.Subscription.Roles)
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logg.Info(ctx, "subscription record updated")
	return OutcomeApplied, nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) (Outcome, error) {
	record, err := s.orgSubs.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if record == nil {
		s.logg.Warn(ctx, "deletion for unknown subscription, skipping")
		return OutcomeSkipped, nil
	}

	if sub.CancelAtPeriodEnd {
		// Scheduled cancellation: the record stays ACTIVE and keeps the
		// paid-through expiry it already holds.
		record.Status = enums.SubscriptionStatusActive
	} else {
		nowUTC := s.now().UTC()
		record.Status = enums.SubscriptionStatusCanceled
		record.ExpiresAt = &nowUTC
	}

	if err := s.orgSubs.Update(ctx, record); err != nil {
		return OutcomeFailed, err
	}
	s.logg.Info(ctx, "subscription record closed")
	return OutcomeApplied, nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, event *stripe.Event) (Outcome, error) {
	subscriptionID := invoiceSubscriptionID(event)
	if subscriptionID == "" {
		// One-time invoices carry no subscription reference.
		return OutcomeSkipped, nil
	}
	record, err := s.orgSubs.GetByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if record == nil {
		s.logg.Warn(ctx, "invoice for unknown subscription, skipping")
		return OutcomeSkipped, nil
	}

	record.Status = enums.SubscriptionStatusActive
	if end := invoicePeriodEnd(event); end != nil {
		record.ExpiresAt = end
	}
	if err := s.orgSubs.Update(ctx, record); err != nil {
		return OutcomeFailed, err
	}
	s.logg.Info(ctx, "subscription renewed from paid invoice")
	return OutcomeApplied, nil
}

func (s *Service) handleInvoiceFailed(ctx context.Context, event *stripe.Event) (Outcome, error) {
	subscriptionID := invoiceSubscriptionID(event)
	if subscriptionID == "" {
		return OutcomeSkipped, nil
	}
	record, err := s.orgSubs.GetByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subscription record")
	}
	if record == nil {
		s.logg.Warn(ctx, "failed invoice for unknown subscription, skipping")
		return OutcomeSkipped, nil
	}

	record.Status = enums.SubscriptionStatusPastDue
	if err := s.orgSubs.Update(ctx, record); err != nil {
		return OutcomeFailed, err
	}
	s.logg.Warn(ctx, "subscription marked past due from failed invoice")
	return OutcomeApplied, nil
}

func (s *Service) tierFromMetadata(ctx context.Context, metadata map[string]string) (*models.SubscriptionTier, error) {
	raw := strings.TrimSpace(metadata["tier_id"])
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier_id missing from metadata")
	}
	tierID, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier_id metadata")
	}
	tier, err := s.catalog.FindTierByID(ctx, tierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve tier")
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription tier not found")
	}
	return tier, nil
}

func (s *Service) tierFromPrice(ctx context.Context, sub *stripe.Subscription) (*models.SubscriptionTier, error) {
	priceID := currentPriceID(sub)
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription has no price")
	}
	tier, err := s.catalog.FindTierByStripePriceID(ctx, priceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve tier by price")
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no tier for price %s", priceID))
	}
	return tier, nil
}

func organizationIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw := strings.TrimSpace(metadata["organization_id"])
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "organization_id missing from metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization_id metadata")
	}
	return id, nil
}

func currentPriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}

// providerQuantity keeps the larger of the catalog quantity and the quantity
// the provider reports on the first subscription item.
func providerQuantity(tier *models.SubscriptionTier, sub *stripe.Subscription) int {
	quantity := tier.Quantity
	if quantity < 1 {
		quantity = 1
	}
	if sub != nil && sub.Items != nil && len(sub.Items.Data) > 0 {
		if reported := int(sub.Items.Data[0].Quantity); reported > quantity {
			quantity = reported
		}
	}
	return quantity
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return toTimePtr(sub.Items.Data[0].CurrentPeriodEnd)
}

// invoiceSubscriptionID digs the provider subscription reference out of an
// invoice event, covering both the flattened legacy payload shape and the
// parent-nested one.
func invoiceSubscriptionID(event *stripe.Event) string {
	if id := event.GetObjectValue("subscription"); id != "" {
		return id
	}
	return event.GetObjectValue("parent", "subscription_details", "subscription")
}

func invoicePeriodEnd(event *stripe.Event) *time.Time {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil
	}
	if invoice.Lines == nil || len(invoice.Lines.Data) == 0 {
		return nil
	}
	last := invoice.Lines.Data[len(invoice.Lines.Data)-1]
	if last.Period == nil {
		return nil
	}
	return toTimePtr(last.Period.End)
}

func toTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
