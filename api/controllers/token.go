package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/api/middleware"
	"github.com/aurelion-labs/identra-backend/api/responses"
	"github.com/aurelion-labs/identra-backend/api/validators"
	pkgauth "github.com/aurelion-labs/identra-backend/pkg/auth"
	"github.com/aurelion-labs/identra-backend/pkg/config"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

// PermissionProjector resolves the permission codenames embedded in tokens.
type PermissionProjector interface {
	Project(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID) ([]string, error)
	MembershipRole(ctx context.Context, userID, organizationID uuid.UUID) (*enums.MemberRole, error)
}

type issueTokenRequest struct {
	OrganizationID *string `json:"organization_id,omitempty" validate:"omitempty,uuid"`
}

type issueTokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Permissions []string `json:"permissions"`
}

// IssueToken re-scopes the caller's session: it projects the effective
// permissions for the requested scope and mints a fresh JWT carrying them.
// Requesting an organization the caller does not belong to is a 403.
func IssueToken(projector PermissionProjector, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if projector == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projector unavailable"))
			return
		}

		claims := middleware.ClaimsFromContext(ctx)
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req issueTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var organizationID *uuid.UUID
		if req.OrganizationID != nil {
			id, err := uuid.Parse(*req.OrganizationID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id"))
				return
			}
			organizationID = &id
		}

		permissions, err := projector.Project(ctx, claims.UserID, organizationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var role *enums.MemberRole
		if organizationID != nil {
			role, err = projector.MembershipRole(ctx, claims.UserID, *organizationID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
			UserID:         claims.UserID,
			TenantID:       claims.TenantID,
			OrganizationID: organizationID,
			Role:           role,
			Permissions:    permissions,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		responses.WriteSuccess(w, issueTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   cfg.ExpirationMinutes * 60,
			Permissions: permissions,
		})
	}
}
