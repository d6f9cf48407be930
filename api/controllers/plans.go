package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/api/middleware"
	"github.com/aurelion-labs/identra-backend/api/responses"
	"github.com/aurelion-labs/identra-backend/api/validators"
	"github.com/aurelion-labs/identra-backend/internal/plans"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

type planGrantResponse struct {
	ID        string  `json:"id"`
	PlanID    string  `json:"plan_id"`
	PlanName  string  `json:"plan_name,omitempty"`
	ExpiresAt *string `json:"expires_at,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type planGrantListResponse struct {
	Grants []planGrantResponse `json:"grants"`
}

type planGrantRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

// ListPlanGrants returns the caller's live plan grants.
func ListPlanGrants(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plans service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		grants, err := svc.ListActive(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPlanGrantList(grants))
	}
}

// GrantPlan assigns a plan to the caller.
func GrantPlan(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plans service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req planGrantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		planID, err := uuid.Parse(req.PlanID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		grant, err := svc.Grant(ctx, userID, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPlanGrantResponse(grant))
	}
}

// RevokePlan removes one of the caller's plan grants.
func RevokePlan(svc *plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plans service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req planGrantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		planID, err := uuid.Parse(req.PlanID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		if err := svc.Revoke(ctx, userID, planID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

func toPlanGrantList(grants []models.UserSubscription) planGrantListResponse {
	out := planGrantListResponse{Grants: make([]planGrantResponse, 0, len(grants))}
	for i := range grants {
		out.Grants = append(out.Grants, toPlanGrantResponse(&grants[i]))
	}
	return out
}

func toPlanGrantResponse(grant *models.UserSubscription) planGrantResponse {
	resp := planGrantResponse{
		ID:        grant.ID.String(),
		PlanID:    grant.SubscriptionPlanID.String(),
		CreatedAt: grant.CreatedAt.UTC().Format(time.RFC3339),
	}
	if grant.SubscriptionPlan != nil {
		resp.PlanName = grant.SubscriptionPlan.Name
	}
	if grant.ExpiresAt != nil {
		s := grant.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	return resp
}
