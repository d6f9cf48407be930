package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aurelion-labs/identra-backend/internal/catalog"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/internal/repo"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE subscriptions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  stripe_product_id TEXT NOT NULL UNIQUE,
  accounts INTEGER NOT NULL DEFAULT 1,
  is_public INTEGER NOT NULL DEFAULT 1,
  features TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE subscription_tiers (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL,
  name TEXT NOT NULL,
  stripe_price_id TEXT NOT NULL UNIQUE,
  mode TEXT NOT NULL,
  type TEXT,
  interval TEXT,
  interval_count INTEGER,
  quantity INTEGER NOT NULL DEFAULT 1,
  price_amount TEXT NOT NULL,
  currency_code TEXT NOT NULL DEFAULT 'usd',
  is_public INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE organization_subscriptions (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  tier_id TEXT NOT NULL,
  stripe_subscription_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  accounts INTEGER NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 1,
  expires_at DATETIME,
  grace_period_days INTEGER,
  interval TEXT,
  interval_count INTEGER,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, tier_id, stripe_subscription_id, status)
);`,
		`CREATE TABLE subscription_events (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  data TEXT,
  error TEXT,
  status TEXT NOT NULL DEFAULT 'normal',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE roles (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  is_public INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE permissions (
  id TEXT PRIMARY KEY,
  codename TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  is_public INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE role_permissions (
  role_id TEXT NOT NULL,
  permission_id TEXT NOT NULL,
  PRIMARY KEY (role_id, permission_id)
);`,
		`CREATE TABLE subscription_roles (
  subscription_id TEXT NOT NULL,
  role_id TEXT NOT NULL,
  PRIMARY KEY (subscription_id, role_id)
);`,
		`CREATE TABLE organization_subscription_roles (
  organization_subscription_id TEXT NOT NULL,
  role_id TEXT NOT NULL,
  PRIMARY KEY (organization_subscription_id, role_id)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type harness struct {
	db      *gorm.DB
	svc     *Service
	orgSubs orgsubs.Repository
	audit   AuditRepository
	now     time.Time
	tenant  uuid.UUID
	orgID   uuid.UUID
	sub     *models.Subscription
	tier    *models.SubscriptionTier
	role    *models.Role
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := setupWebhookTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tenantID := uuid.New()
	sub := &models.Subscription{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Name:            "Pro",
		StripeProductID: "prod_pro",
		Accounts:        10,
	}
	require.NoError(t, db.Create(sub).Error)

	perm := &models.Permission{ID: uuid.New(), Codename: "articles.read", Name: "Read"}
	require.NoError(t, db.Create(perm).Error)
	role := &models.Role{ID: uuid.New(), TenantID: tenantID, Name: "subscriber"}
	require.NoError(t, db.Create(role).Error)
	require.NoError(t, db.Exec(`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`, role.ID, perm.ID).Error)
	require.NoError(t, db.Exec(`INSERT INTO subscription_roles (subscription_id, role_id) VALUES (?, ?)`, sub.ID, role.ID).Error)

	tt := enums.TierTypePrimary
	iv := enums.SubscriptionIntervalMonth
	count := 1
	tier := &models.SubscriptionTier{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		Name:           "Pro Monthly",
		StripePriceID:  "price_pro_monthly",
		Mode:           enums.TierModeRecurring,
		Type:           &tt,
		Interval:       &iv,
		IntervalCount:  &count,
		Quantity:       2,
		PriceAmount:    decimal.NewFromInt(99),
		CurrencyCode:   "usd",
	}
	require.NoError(t, db.Create(tier).Error)

	orgSubsRepo := orgsubs.NewRepository(db)
	auditRepo := NewAuditRepository(db)
	svc, err := NewService(ServiceParams{
		Catalog:           catalog.NewRepository(db),
		OrgSubs:           orgSubsRepo,
		Audit:             auditRepo,
		TransactionRunner: repo.NewBase(db),
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
		GracePeriodDays:   7,
		Now:               func() time.Time { return now },
	})
	require.NoError(t, err)

	return &harness{
		db:      db,
		svc:     svc,
		orgSubs: orgSubsRepo,
		audit:   auditRepo,
		now:     now,
		tenant:  tenantID,
		orgID:   uuid.New(),
		sub:     sub,
		tier:    tier,
		role:    role,
	}
}

func newEvent(t *testing.T, id string, eventType stripe.EventType, payload any) *stripe.Event {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	var object map[string]any
	require.NoError(t, json.Unmarshal(raw, &object))
	return &stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{
			Raw:    raw,
			Object: object,
		},
	}
}

func (h *harness) subscriptionPayload(subID string, status string, periodEnd int64, quantity int64) map[string]any {
	return map[string]any{
		"id":     subID,
		"status": status,
		"metadata": map[string]string{
			"organization_id": h.orgID.String(),
		},
		"items": map[string]any{
			"data": []map[string]any{
				{
					"quantity":           quantity,
					"current_period_end": periodEnd,
					"price":              map[string]any{"id": h.tier.StripePriceID},
				},
			},
		},
	}
}

func (h *harness) auditRows(t *testing.T) []models.SubscriptionEvent {
	t.Helper()
	var rows []models.SubscriptionEvent
	require.NoError(t, h.db.Order("created_at DESC").Find(&rows).Error)
	return rows
}

func TestHandleEvent_CheckoutCompletedOneTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	event := newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_abc",
		"mode":           "payment",
		"payment_status": "paid",
		"metadata": map[string]string{
			"organization_id": h.orgID.String(),
			"tier_id":         h.tier.ID.String(),
		},
	})
	outcome, err := h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "one_time_cs_abc")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)
	assert.Nil(t, record.ExpiresAt)
	assert.Nil(t, record.GracePeriodDays)
	assert.Equal(t, 10, record.Accounts)
	assert.Equal(t, 2, record.Quantity)
	require.Len(t, record.Roles, 1)
	assert.Equal(t, h.role.ID, record.Roles[0].ID)

	rows := h.auditRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventStatusNormal, rows[0].Status)
	assert.Nil(t, rows[0].Error)
}

func TestHandleEvent_CheckoutCompletedSubscriptionModeSkipped(t *testing.T) {
	h := newHarness(t)

	event := newEvent(t, "evt_2", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_sub",
		"mode":           "subscription",
		"payment_status": "paid",
	})
	outcome, err := h.svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestHandleEvent_CheckoutCompletedUnpaidRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	event := newEvent(t, "evt_unpaid", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_unpaid",
		"mode":           "payment",
		"payment_status": "unpaid",
		"metadata": map[string]string{
			"organization_id": h.orgID.String(),
			"tier_id":         h.tier.ID.String(),
		},
	})
	outcome, err := h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "one_time_cs_unpaid")
	require.NoError(t, err)
	assert.Nil(t, record)

	rows := h.auditRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventStatusCritical, rows[0].Status)
	require.NotNil(t, rows[0].Error)
	assert.Contains(t, *rows[0].Error, "not paid")
}

func TestHandleEvent_SubscriptionCreated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	event := newEvent(t, "evt_3", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_123", "trialing", periodEnd, 5))
	outcome, err := h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_123")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, enums.SubscriptionStatusTrialing, record.Status)
	// Provider reports 5 seats against a catalog floor of 2.
	assert.Equal(t, 5, record.Quantity)
	assert.Equal(t, 10, record.Accounts)
	require.NotNil(t, record.GracePeriodDays)
	assert.Equal(t, 7, *record.GracePeriodDays)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, time.Unix(periodEnd, 0).UTC(), record.ExpiresAt.UTC())
	require.NotNil(t, record.Interval)
	assert.Equal(t, enums.SubscriptionIntervalMonth, *record.Interval)
	require.Len(t, record.Roles, 1)
}

func TestHandleEvent_SubscriptionCreatedDelegatesWhenRecordExists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	created := newEvent(t, "evt_4", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_dup", "active", periodEnd, 1))
	_, err := h.svc.HandleEvent(ctx, created)
	require.NoError(t, err)

	again := newEvent(t, "evt_5", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_dup", "past_due", periodEnd, 1))
	outcome, err := h.svc.HandleEvent(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var count int64
	require.NoError(t, h.db.Model(&models.OrganizationSubscription{}).
		Where("stripe_subscription_id = ?", "sub_dup").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_dup")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPastDue, record.Status)
}

func TestHandleEvent_SubscriptionCreatedReusesRecurringRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	first := newEvent(t, "evt_resub_1", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_first", "active", periodEnd, 1))
	_, err := h.svc.HandleEvent(ctx, first)
	require.NoError(t, err)

	// Re-subscription after a lapse arrives under a fresh provider id.
	second := newEvent(t, "evt_resub_2", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_second", "active", periodEnd, 1))
	outcome, err := h.svc.HandleEvent(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var count int64
	require.NoError(t, h.db.Model(&models.OrganizationSubscription{}).
		Where("organization_id = ? AND tier_id = ?", h.orgID, h.tier.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_second")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)

	stale, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_first")
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestHandleEvent_SubscriptionUpdatedUnknownFallsBackToCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	event := newEvent(t, "evt_6", stripe.EventTypeCustomerSubscriptionUpdated,
		h.subscriptionPayload("sub_orphan", "active", periodEnd, 1))
	outcome, err := h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_orphan")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)
}

func TestHandleEvent_SubscriptionUpdatedTierChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_7", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_tc", "active", periodEnd, 1)))
	require.NoError(t, err)

	// Second tier under a differently provisioned parent subscription.
	otherSub := &models.Subscription{
		ID:              uuid.New(),
		TenantID:        h.tenant,
		Name:            "Enterprise",
		StripeProductID: "prod_ent",
		Accounts:        50,
	}
	require.NoError(t, h.db.Create(otherSub).Error)
	otherRole := &models.Role{ID: uuid.New(), TenantID: h.tenant, Name: "enterprise"}
	require.NoError(t, h.db.Create(otherRole).Error)
	require.NoError(t, h.db.Exec(`INSERT INTO subscription_roles (subscription_id, role_id) VALUES (?, ?)`, otherSub.ID, otherRole.ID).Error)

	tt := enums.TierTypePrimary
	iv := enums.SubscriptionIntervalYear
	cnt := 1
	otherTier := &models.SubscriptionTier{
		ID:             uuid.New(),
		SubscriptionID: otherSub.ID,
		Name:           "Enterprise Yearly",
		StripePriceID:  "price_ent_yearly",
		Mode:           enums.TierModeRecurring,
		Type:           &tt,
		Interval:       &iv,
		IntervalCount:  &cnt,
		Quantity:       1,
		PriceAmount:    decimal.NewFromInt(999),
		CurrencyCode:   "usd",
	}
	require.NoError(t, h.db.Create(otherTier).Error)

	payload := h.subscriptionPayload("sub_tc", "active", periodEnd, 1)
	payload["items"] = map[string]any{
		"data": []map[string]any{
			{
				"quantity":           int64(1),
				"current_period_end": periodEnd,
				"price":              map[string]any{"id": "price_ent_yearly"},
			},
		},
	}
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_8", stripe.EventTypeCustomerSubscriptionUpdated, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_tc")
	require.NoError(t, err)
	assert.Equal(t, otherTier.ID, record.TierID)
	assert.Equal(t, 50, record.Accounts)
	require.NotNil(t, record.Interval)
	assert.Equal(t, enums.SubscriptionIntervalYear, *record.Interval)
	require.Len(t, record.Roles, 1)
	assert.Equal(t, otherRole.ID, record.Roles[0].ID)
}

func TestHandleEvent_SubscriptionDeletedScheduled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_9", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_sched", "active", periodEnd, 1)))
	require.NoError(t, err)

	// The deletion payload carries a different period end; the stored
	// paid-through expiry must not move.
	payload := h.subscriptionPayload("sub_sched", "canceled", h.now.AddDate(0, 3, 0).Unix(), 1)
	payload["cancel_at_period_end"] = true
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_10", stripe.EventTypeCustomerSubscriptionDeleted, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_sched")
	require.NoError(t, err)
	// Paid-through access survives a scheduled cancellation.
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, time.Unix(periodEnd, 0).UTC(), record.ExpiresAt.UTC())
}

func TestHandleEvent_SubscriptionDeletedImmediate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_11", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_now", "active", periodEnd, 1)))
	require.NoError(t, err)

	payload := h.subscriptionPayload("sub_now", "canceled", periodEnd, 1)
	payload["cancel_at_period_end"] = false
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_12", stripe.EventTypeCustomerSubscriptionDeleted, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_now")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCanceled, record.Status)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, h.now, record.ExpiresAt.UTC())
}

func TestHandleEvent_SubscriptionDeletedUnknownSkips(t *testing.T) {
	h := newHarness(t)

	payload := h.subscriptionPayload("sub_ghost", "canceled", 0, 1)
	outcome, err := h.svc.HandleEvent(context.Background(),
		newEvent(t, "evt_13", stripe.EventTypeCustomerSubscriptionDeleted, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestHandleEvent_InvoicePaidRenews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()
	renewedEnd := h.now.AddDate(0, 2, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_14", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_renew", "past_due", periodEnd, 1)))
	require.NoError(t, err)

	invoice := map[string]any{
		"id":           "in_1",
		"subscription": "sub_renew",
		"lines": map[string]any{
			"data": []map[string]any{
				{"period": map[string]any{"end": renewedEnd}},
			},
		},
	}
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_15", stripe.EventTypeInvoicePaid, invoice))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_renew")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, time.Unix(renewedEnd, 0).UTC(), record.ExpiresAt.UTC())
}

func TestHandleEvent_InvoicePaidNestedParentReference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_16", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_nested", "past_due", periodEnd, 1)))
	require.NoError(t, err)

	invoice := map[string]any{
		"id": "in_2",
		"parent": map[string]any{
			"subscription_details": map[string]any{
				"subscription": "sub_nested",
			},
		},
	}
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_17", stripe.EventTypeInvoicePaid, invoice))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_nested")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, record.Status)
}

func TestHandleEvent_InvoiceFailedMarksPastDue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	_, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_18", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_fail", "active", periodEnd, 1)))
	require.NoError(t, err)

	invoice := map[string]any{"id": "in_3", "subscription": "sub_fail"}
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_19", stripe.EventTypeInvoicePaymentFailed, invoice))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_fail")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPastDue, record.Status)
}

func TestHandleEvent_RedeliverySkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	periodEnd := h.now.AddDate(0, 1, 0).Unix()

	event := newEvent(t, "evt_same", stripe.EventTypeCustomerSubscriptionCreated,
		h.subscriptionPayload("sub_redeliver", "active", periodEnd, 1))
	outcome, err := h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	outcome, err = h.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	var count int64
	require.NoError(t, h.db.Model(&models.OrganizationSubscription{}).
		Where("stripe_subscription_id = ?", "sub_redeliver").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, h.auditRows(t), 1)
}

func TestHandleEvent_FailureRecordedAsCritical(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := h.subscriptionPayload("sub_bad", "active", 0, 1)
	payload["items"] = map[string]any{
		"data": []map[string]any{
			{"price": map[string]any{"id": "price_unknown"}},
		},
	}
	outcome, err := h.svc.HandleEvent(ctx, newEvent(t, "evt_bad", stripe.EventTypeCustomerSubscriptionCreated, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	rows := h.auditRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventStatusCritical, rows[0].Status)
	require.NotNil(t, rows[0].Error)
	assert.Contains(t, *rows[0].Error, "price_unknown")

	record, err := h.orgSubs.GetByStripeSubscriptionID(ctx, "sub_bad")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestHandleEvent_UnhandledTypeSkipped(t *testing.T) {
	h := newHarness(t)

	event := newEvent(t, "evt_misc", stripe.EventType("customer.created"), map[string]any{"id": "cus_1"})
	outcome, err := h.svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	// Unrecognized types leave no trace in the event trail.
	assert.Empty(t, h.auditRows(t))
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		provider stripe.SubscriptionStatus
		want     enums.SubscriptionStatus
	}{
		{stripe.SubscriptionStatusIncomplete, enums.SubscriptionStatusPending},
		{stripe.SubscriptionStatusIncompleteExpired, enums.SubscriptionStatusExpired},
		{stripe.SubscriptionStatusTrialing, enums.SubscriptionStatusTrialing},
		{stripe.SubscriptionStatusActive, enums.SubscriptionStatusActive},
		{stripe.SubscriptionStatusPastDue, enums.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatusCanceled, enums.SubscriptionStatusCanceled},
		{stripe.SubscriptionStatusUnpaid, enums.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatus("paused"), enums.SubscriptionStatusPending},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s", tc.provider), func(t *testing.T) {
			assert.Equal(t, tc.want, mapStatus(tc.provider))
		})
	}
}
