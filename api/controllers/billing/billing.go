package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/api/middleware"
	"github.com/aurelion-labs/identra-backend/api/responses"
	"github.com/aurelion-labs/identra-backend/api/validators"
	billingsvc "github.com/aurelion-labs/identra-backend/internal/billing"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

// Service describes the billing methods used by the HTTP controllers.
type Service interface {
	ListCatalog(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error)
	CreateCheckoutSession(ctx context.Context, input billingsvc.CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, userID, organizationID uuid.UUID, returnURL string) (string, error)
}

type tierResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Mode          string  `json:"mode"`
	Type          *string `json:"type,omitempty"`
	Interval      *string `json:"interval,omitempty"`
	IntervalCount *int    `json:"interval_count,omitempty"`
	Quantity      int     `json:"quantity"`
	PriceAmount   string  `json:"price_amount"`
	CurrencyCode  string  `json:"currency_code"`
}

type catalogEntryResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Accounts int            `json:"accounts"`
	Features []string       `json:"features"`
	Tiers    []tierResponse `json:"tiers"`
}

type catalogResponse struct {
	Subscriptions []catalogEntryResponse `json:"subscriptions"`
}

type checkoutRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	TierID         string `json:"tier_id" validate:"required,uuid"`
	Quantity       int64  `json:"quantity" validate:"omitempty,min=1"`
	SuccessURL     string `json:"success_url" validate:"required,url"`
	CancelURL      string `json:"cancel_url" validate:"required,url"`
}

type portalRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	ReturnURL      string `json:"return_url" validate:"required,url"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

// Catalog lists the tenant's public subscriptions and their tiers.
func Catalog(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(ctx)
		if tenantID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		subs, err := svc.ListCatalog(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCatalogResponse(subs))
	}
}

// CreateCheckout starts a hosted checkout session for a tier purchase.
func CreateCheckout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		organizationID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id"))
			return
		}
		tierID, err := uuid.Parse(req.TierID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier id"))
			return
		}

		url, err := svc.CreateCheckoutSession(ctx, billingsvc.CheckoutInput{
			UserID:         userID,
			OrganizationID: organizationID,
			TierID:         tierID,
			Quantity:       req.Quantity,
			SuccessURL:     req.SuccessURL,
			CancelURL:      req.CancelURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{URL: url})
	}
}

// CreatePortal starts a hosted billing portal session for the owner.
func CreatePortal(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req portalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		organizationID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id"))
			return
		}

		url, err := svc.CreatePortalSession(ctx, userID, organizationID, req.ReturnURL)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{URL: url})
	}
}

func toCatalogResponse(subs []models.Subscription) catalogResponse {
	out := catalogResponse{Subscriptions: make([]catalogEntryResponse, 0, len(subs))}
	for i := range subs {
		sub := &subs[i]
		entry := catalogEntryResponse{
			ID:       sub.ID.String(),
			Name:     sub.Name,
			Accounts: sub.Accounts,
			Features: sub.Features,
			Tiers:    make([]tierResponse, 0, len(sub.Tiers)),
		}
		for j := range sub.Tiers {
			entry.Tiers = append(entry.Tiers, toTierResponse(&sub.Tiers[j]))
		}
		out.Subscriptions = append(out.Subscriptions, entry)
	}
	return out
}

func toTierResponse(tier *models.SubscriptionTier) tierResponse {
	resp := tierResponse{
		ID:           tier.ID.String(),
		Name:         tier.Name,
		Mode:         string(tier.Mode),
		Quantity:     tier.Quantity,
		PriceAmount:  tier.PriceAmount.StringFixed(2),
		CurrencyCode: tier.CurrencyCode,
	}
	if tier.Type != nil {
		s := string(*tier.Type)
		resp.Type = &s
	}
	if tier.Interval != nil {
		s := string(*tier.Interval)
		resp.Interval = &s
	}
	if tier.IntervalCount != nil {
		n := *tier.IntervalCount
		resp.IntervalCount = &n
	}
	return resp
}
