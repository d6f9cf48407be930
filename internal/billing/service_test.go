package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/internal/catalog"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

type stubRepo struct {
	org         *models.Organization
	member      *models.OrganizationMember
	count       int64
	setCustomer string
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) GetOrganization(_ context.Context, _ uuid.UUID) (*models.Organization, error) {
	return s.org, nil
}

func (s *stubRepo) GetMembership(_ context.Context, _, _ uuid.UUID) (*models.OrganizationMember, error) {
	return s.member, nil
}

func (s *stubRepo) SetStripeCustomerID(_ context.Context, _ uuid.UUID, customerID string) error {
	s.setCustomer = customerID
	return nil
}

func (s *stubRepo) CountSubscriptionRecords(_ context.Context, _ uuid.UUID) (int64, error) {
	return s.count, nil
}

type stubCatalog struct {
	tier *models.SubscriptionTier
}

func (s *stubCatalog) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalog) FindTierByID(_ context.Context, _ uuid.UUID) (*models.SubscriptionTier, error) {
	return s.tier, nil
}

func (s *stubCatalog) FindTierByStripePriceID(_ context.Context, _ string) (*models.SubscriptionTier, error) {
	return s.tier, nil
}

func (s *stubCatalog) ListTiersBySubscription(_ context.Context, _ uuid.UUID) ([]models.SubscriptionTier, error) {
	return nil, nil
}

func (s *stubCatalog) ListTiers(_ context.Context) ([]models.SubscriptionTier, error) {
	return nil, nil
}

func (s *stubCatalog) ListPublicSubscriptions(_ context.Context, _ uuid.UUID) ([]models.Subscription, error) {
	return nil, nil
}

func (s *stubCatalog) FindSubscriptionByID(_ context.Context, _ uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

type stubOrgSubs struct {
	existing *models.OrganizationSubscription
	active   []models.OrganizationSubscription
}

func (s *stubOrgSubs) WithTx(tx *gorm.DB) orgsubs.Repository { return s }
func (s *stubOrgSubs) Create(context.Context, *models.OrganizationSubscription) error {
	return nil
}
func (s *stubOrgSubs) Update(context.Context, *models.OrganizationSubscription) error {
	return nil
}
func (s *stubOrgSubs) GetByID(context.Context, uuid.UUID) (*models.OrganizationSubscription, error) {
	return nil, nil
}
func (s *stubOrgSubs) GetByOrganizationAndTier(context.Context, uuid.UUID, uuid.UUID) (*models.OrganizationSubscription, error) {
	return s.existing, nil
}
func (s *stubOrgSubs) GetActiveByOrganization(context.Context, uuid.UUID, time.Time) ([]models.OrganizationSubscription, error) {
	return s.active, nil
}
func (s *stubOrgSubs) GetByStripeSubscriptionID(context.Context, string) (*models.OrganizationSubscription, error) {
	return nil, nil
}
func (s *stubOrgSubs) GetExpiredInGrace(context.Context, time.Time) ([]models.OrganizationSubscription, error) {
	return nil, nil
}
func (s *stubOrgSubs) SumAccountsByOrganization(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}
func (s *stubOrgSubs) ReplaceRoles(context.Context, *models.OrganizationSubscription, []models.Role) error {
	return nil
}

type stubStripe struct {
	checkoutParams *stripe.CheckoutSessionParams
	portalParams   *stripe.BillingPortalSessionParams
	customerMade   bool
	err            error
}

func (s *stubStripe) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.checkoutParams = params
	return &stripe.CheckoutSession{URL: "https://checkout.stripe.test/cs_123"}, nil
}

func (s *stubStripe) CreatePortalSession(_ context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.portalParams = params
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.test/bps_123"}, nil
}

func (s *stubStripe) CreateCustomer(_ context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	s.customerMade = true
	return &stripe.Customer{ID: "cus_new"}, nil
}

func (s *stubStripe) GetSubscription(_ context.Context, _ string, _ *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}

func ownerFixture() (*models.Organization, *models.OrganizationMember) {
	ownerID := uuid.New()
	customer := "cus_existing"
	org := &models.Organization{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		UserID:   ownerID,
		Name:     "Acme Inc",
		User: &models.User{
			ID:               ownerID,
			Email:            "owner@acme.test",
			StripeCustomerID: &customer,
		},
	}
	member := &models.OrganizationMember{
		ID:     uuid.New(),
		UserID: ownerID,
		Role:   enums.MemberRoleOwner,
	}
	return org, member
}

func recurringTier() *models.SubscriptionTier {
	tt := enums.TierTypePrimary
	iv := enums.SubscriptionIntervalMonth
	count := 1
	return &models.SubscriptionTier{
		ID:            uuid.New(),
		Name:          "Pro Monthly",
		StripePriceID: "price_pro",
		Mode:          enums.TierModeRecurring,
		Type:          &tt,
		Interval:      &iv,
		IntervalCount: &count,
		Quantity:      1,
	}
}

func newBillingService(t *testing.T, repo Repository, cat catalog.Repository, subs orgsubs.Repository, client StripeBillingClient) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Catalog: cat,
		OrgSubs: subs,
		Stripe:  client,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateCheckoutSession_Recurring(t *testing.T) {
	org, member := ownerFixture()
	tier := recurringTier()
	client := &stubStripe{}
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: tier}, &stubOrgSubs{}, client)

	url, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
		Quantity:       3,
		SuccessURL:     "https://app.acme.test/billing/success",
		CancelURL:      "https://app.acme.test/billing/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_123", url)

	params := client.checkoutParams
	require.NotNil(t, params)
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *params.Mode)
	assert.Equal(t, "cus_existing", *params.Customer)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_pro", *params.LineItems[0].Price)
	assert.Equal(t, int64(3), *params.LineItems[0].Quantity)
	assert.Equal(t, org.ID.String(), params.Metadata["organization_id"])
	assert.Equal(t, tier.ID.String(), params.Metadata["tier_id"])
	require.NotNil(t, params.SubscriptionData)
	assert.False(t, client.customerMade)
}

func TestCreateCheckoutSession_OneTimeUsesPaymentMode(t *testing.T) {
	org, member := ownerFixture()
	tier := recurringTier()
	tier.Mode = enums.TierModeOneTime
	tier.Type = nil
	tier.Interval = nil
	tier.IntervalCount = nil
	client := &stubStripe{}
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: tier}, &stubOrgSubs{}, client)

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *client.checkoutParams.Mode)
	assert.Equal(t, int64(1), *client.checkoutParams.LineItems[0].Quantity)
	assert.Nil(t, client.checkoutParams.SubscriptionData)
}

func TestCreateCheckoutSession_LazyCustomerCreation(t *testing.T) {
	org, member := ownerFixture()
	org.User.StripeCustomerID = nil
	tier := recurringTier()
	client := &stubStripe{}
	repo := &stubRepo{org: org, member: member}
	svc := newBillingService(t, repo, &stubCatalog{tier: tier}, &stubOrgSubs{}, client)

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
	})
	require.NoError(t, err)
	assert.True(t, client.customerMade)
	assert.Equal(t, "cus_new", repo.setCustomer)
	assert.Equal(t, "cus_new", *client.checkoutParams.Customer)
}

func TestCreateCheckoutSession_DuplicateRecurring(t *testing.T) {
	org, member := ownerFixture()
	tier := recurringTier()
	existing := &models.OrganizationSubscription{
		Status: enums.SubscriptionStatusActive,
	}
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: tier}, &stubOrgSubs{existing: existing}, &stubStripe{})

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateCheckoutSession_AddOnRequiresPrimary(t *testing.T) {
	org, member := ownerFixture()
	tier := recurringTier()
	addOn := enums.TierTypeAddOn
	tier.Type = &addOn
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: tier}, &stubOrgSubs{}, &stubStripe{})

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateCheckoutSession_AddOnWithPrimaryHeld(t *testing.T) {
	org, member := ownerFixture()
	tier := recurringTier()
	addOn := enums.TierTypeAddOn
	tier.Type = &addOn

	primary := recurringTier()
	subs := &stubOrgSubs{active: []models.OrganizationSubscription{
		{Status: enums.SubscriptionStatusActive, Tier: primary},
	}}
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: tier}, subs, &stubStripe{})

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         tier.ID,
	})
	require.NoError(t, err)
}

func TestCreateCheckoutSession_NonMemberForbidden(t *testing.T) {
	org, _ := ownerFixture()
	svc := newBillingService(t, &stubRepo{org: org}, &stubCatalog{tier: recurringTier()}, &stubOrgSubs{}, &stubStripe{})

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         uuid.New(),
		OrganizationID: org.ID,
		TierID:         uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCreateCheckoutSession_UnknownTier(t *testing.T) {
	org, member := ownerFixture()
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{}, &stubOrgSubs{}, &stubStripe{})

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateCheckoutSession_MapsStripeErrors(t *testing.T) {
	org, member := ownerFixture()
	client := &stubStripe{err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest}}
	svc := newBillingService(t, &stubRepo{org: org, member: member}, &stubCatalog{tier: recurringTier()}, &stubOrgSubs{}, client)

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:         org.UserID,
		OrganizationID: org.ID,
		TierID:         uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreatePortalSession_OwnerOnly(t *testing.T) {
	org, _ := ownerFixture()
	svc := newBillingService(t, &stubRepo{org: org, count: 1}, &stubCatalog{}, &stubOrgSubs{}, &stubStripe{})

	_, err := svc.CreatePortalSession(context.Background(), uuid.New(), org.ID, "https://app.acme.test/billing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCreatePortalSession_RequiresSubscriptionHistory(t *testing.T) {
	org, _ := ownerFixture()
	svc := newBillingService(t, &stubRepo{org: org, count: 0}, &stubCatalog{}, &stubOrgSubs{}, &stubStripe{})

	_, err := svc.CreatePortalSession(context.Background(), org.UserID, org.ID, "https://app.acme.test/billing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreatePortalSession_Success(t *testing.T) {
	org, _ := ownerFixture()
	client := &stubStripe{}
	svc := newBillingService(t, &stubRepo{org: org, count: 2}, &stubCatalog{}, &stubOrgSubs{}, client)

	url, err := svc.CreatePortalSession(context.Background(), org.UserID, org.ID, "https://app.acme.test/billing")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/bps_123", url)
	require.NotNil(t, client.portalParams)
	assert.Equal(t, "cus_existing", *client.portalParams.Customer)
	assert.Equal(t, "https://app.acme.test/billing", *client.portalParams.ReturnURL)
}
