package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/aurelion-labs/identra-backend/internal/catalog"
	"github.com/aurelion-labs/identra-backend/internal/entitlement"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
	pkgstripe "github.com/aurelion-labs/identra-backend/pkg/stripe"
)

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
	OrgSubs orgsubs.Repository
	Stripe  StripeBillingClient
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service drives the interactive billing flows: catalog listing, checkout
// session creation, and customer portal access.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	orgSubs orgsubs.Repository
	stripe  StripeBillingClient
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog repo is required")
	}
	if params.OrgSubs == nil {
		return nil, errors.New("orgsubs repo is required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe client is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		catalog: params.Catalog,
		orgSubs: params.OrgSubs,
		stripe:  params.Stripe,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// ListCatalog returns the tenant's public subscriptions with their tiers for
// the pricing page.
func (s *Service) ListCatalog(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.catalog.ListPublicSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list catalog")
	}
	return subs, nil
}

// CheckoutInput describes a checkout session request.
type CheckoutInput struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	TierID         uuid.UUID
	Quantity       int64
	SuccessURL     string
	CancelURL      string
}

// CreateCheckoutSession resolves the tier, enforces the purchase guards, and
// returns the hosted checkout URL. A recurring tier already held by the
// organization is rejected, and add-on tiers require an active primary
// subscription first.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (string, error) {
	org, err := s.requireOrgRole(ctx, input.OrganizationID, input.UserID)
	if err != nil {
		return "", err
	}

	tier, err := s.catalog.FindTierByID(ctx, input.TierID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to resolve tier")
	}
	if tier == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "subscription tier not found")
	}

	if tier.Mode == enums.TierModeRecurring {
		if err := s.guardRecurringPurchase(ctx, org.ID, tier); err != nil {
			return "", err
		}
	}

	customerID, err := s.ensureStripeCustomer(ctx, org.User)
	if err != nil {
		return "", err
	}

	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}

	mode := stripe.CheckoutSessionModePayment
	if tier.Mode == enums.TierModeRecurring {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		Mode:              stripe.String(string(mode)),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		ClientReferenceID: stripe.String(org.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(tier.StripePriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		Metadata: map[string]string{
			"organization_id": org.ID.String(),
			"tier_id":         tier.ID.String(),
		},
	}
	if tier.Mode == enums.TierModeRecurring {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.Metadata,
		}
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", pkgstripe.MapError(err, "failed to create checkout session")
	}

	s.logg.Info(s.logg.WithOrganizationID(ctx, org.ID.String()), "checkout session created")
	return session.URL, nil
}

// CreatePortalSession returns a customer portal URL for the organization
// owner. The organization must already hold at least one subscription record.
func (s *Service) CreatePortalSession(ctx context.Context, userID, organizationID uuid.UUID, returnURL string) (string, error) {
	org, err := s.requireOrganization(ctx, organizationID)
	if err != nil {
		return "", err
	}
	if org.UserID != userID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only the organization owner can manage billing")
	}

	count, err := s.repo.CountSubscriptionRecords(ctx, org.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count subscriptions")
	}
	if count == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "organization has no subscriptions to manage")
	}
	if org.User == nil || org.User.StripeCustomerID == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "organization owner has no billing profile")
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*org.User.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", pkgstripe.MapError(err, "failed to create portal session")
	}
	return session.URL, nil
}

func (s *Service) requireOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load organization")
	}
	if org == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
	}
	return org, nil
}

func (s *Service) requireOrgRole(ctx context.Context, organizationID, userID uuid.UUID) (*models.Organization, error) {
	org, err := s.requireOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.GetMembership(ctx, organizationID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load membership")
	}
	if member == nil || !member.Role.IsOwnerOrAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchasing requires owner or admin role")
	}
	return org, nil
}

func (s *Service) guardRecurringPurchase(ctx context.Context, organizationID uuid.UUID, tier *models.SubscriptionTier) error {
	now := s.now().UTC()

	existing, err := s.orgSubs.GetByOrganizationAndTier(ctx, organizationID, tier.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check existing subscription")
	}
	if existing != nil && entitlement.IsActive(existing, now) {
		return pkgerrors.New(pkgerrors.CodeConflict, "organization already holds this subscription")
	}

	if tier.Type != nil && *tier.Type == enums.TierTypeAddOn {
		active, err := s.orgSubs.GetActiveByOrganization(ctx, organizationID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load active subscriptions")
		}
		hasPrimary := false
		for _, record := range active {
			if record.Tier.IsPrimary() {
				hasPrimary = true
				break
			}
		}
		if !hasPrimary {
			return pkgerrors.New(pkgerrors.CodeValidation, "add-on tiers require an active primary subscription")
		}
	}
	return nil
}

// ensureStripeCustomer returns the owner's Stripe customer reference,
// creating and persisting one on first purchase.
func (s *Service) ensureStripeCustomer(ctx context.Context, owner *models.User) (string, error) {
	if owner == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "organization owner not loaded")
	}
	if owner.StripeCustomerID != nil && *owner.StripeCustomerID != "" {
		return *owner.StripeCustomerID, nil
	}

	created, err := s.stripe.CreateCustomer(ctx, &stripe.CustomerParams{
		Email: stripe.String(owner.Email),
		Metadata: map[string]string{
			"user_id": owner.ID.String(),
		},
	})
	if err != nil {
		return "", pkgstripe.MapError(err, "failed to create billing customer")
	}
	if err := s.repo.SetStripeCustomerID(ctx, owner.ID, created.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist billing customer")
	}
	owner.StripeCustomerID = &created.ID
	return created.ID, nil
}
