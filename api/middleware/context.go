package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/auth"
)

type contextKey string

const ctxClaims contextKey = "access_claims"

// ClaimsFromContext returns the verified token claims seeded by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *auth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*auth.AccessTokenClaims); ok {
		return v
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// TenantIDFromContext returns the authenticated tenant id, or uuid.Nil.
func TenantIDFromContext(ctx context.Context) uuid.UUID {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.TenantID
	}
	return uuid.Nil
}

// WithClaims injects verified claims into the context.
func WithClaims(ctx context.Context, claims *auth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}
