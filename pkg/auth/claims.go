package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	TenantID       uuid.UUID
	OrganizationID *uuid.UUID
	Role           *enums.MemberRole
	Permissions    []string
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients. Permissions
// carries the projected permission codenames for the token's scope, sorted
// and deduplicated at mint time.
type AccessTokenClaims struct {
	UserID         uuid.UUID         `json:"user_id"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	OrganizationID *uuid.UUID        `json:"organization_id,omitempty"`
	Role           *enums.MemberRole `json:"role,omitempty"`
	Permissions    []string          `json:"permissions"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the token carries the given codename.
func (c *AccessTokenClaims) HasPermission(codename string) bool {
	for _, p := range c.Permissions {
		if p == codename {
			return true
		}
	}
	return false
}
