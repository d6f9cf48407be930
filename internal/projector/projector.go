package projector

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	"github.com/aurelion-labs/identra-backend/pkg/enums"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
)

// ServiceParams groups dependencies for the permission projector.
type ServiceParams struct {
	Repo    Repository
	OrgSubs orgsubs.Repository
	Now     func() time.Time
}

// Service flattens a user's effective permissions into the sorted codename
// list embedded in access tokens.
type Service struct {
	repo    Repository
	orgSubs orgsubs.Repository
	now     func() time.Time
}

// NewService builds a projector service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.OrgSubs == nil {
		return nil, errors.New("orgsubs repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, orgSubs: params.OrgSubs, now: now}, nil
}

// Project resolves the permission codenames a user holds. With no
// organization the grant comes from the user's own roles, direct permissions,
// and the tenant's defaults. Inside an organization the grant comes from the
// roles snapshotted on the organization's active subscriptions, narrowed for
// plain members to their individually assigned permissions.
func (s *Service) Project(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID) ([]string, error) {
	user, err := s.repo.GetUserWithGrants(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if organizationID == nil {
		return s.projectPersonal(ctx, user)
	}
	return s.projectOrganization(ctx, user, *organizationID)
}

// MembershipRole returns the user's role within the organization, or nil when
// they are not a member.
func (s *Service) MembershipRole(ctx context.Context, userID, organizationID uuid.UUID) (*enums.MemberRole, error) {
	member, err := s.repo.GetMembership(ctx, organizationID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load membership")
	}
	if member == nil {
		return nil, nil
	}
	role := member.Role
	return &role, nil
}

func (s *Service) projectPersonal(ctx context.Context, user *models.User) ([]string, error) {
	seen := map[string]struct{}{}
	for _, role := range user.Roles {
		for _, perm := range role.Permissions {
			seen[perm.Codename] = struct{}{}
		}
	}
	for _, perm := range user.Permissions {
		seen[perm.Codename] = struct{}{}
	}

	defaults, err := s.repo.GetTenantDefaultRoles(ctx, user.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load tenant defaults")
	}
	for _, role := range defaults {
		for _, perm := range role.Permissions {
			seen[perm.Codename] = struct{}{}
		}
	}
	return sortedCodenames(seen), nil
}

func (s *Service) projectOrganization(ctx context.Context, user *models.User, organizationID uuid.UUID) ([]string, error) {
	member, err := s.repo.GetMembership(ctx, organizationID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load membership")
	}
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this organization")
	}

	active, err := s.orgSubs.GetActiveByOrganization(ctx, organizationID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load active subscriptions")
	}

	// Union of every permission granted by roles on active subscriptions.
	grantedByID := map[uuid.UUID]models.Permission{}
	for _, record := range active {
		for _, role := range record.Roles {
			for _, perm := range role.Permissions {
				grantedByID[perm.ID] = perm
			}
		}
	}

	seen := map[string]struct{}{}
	if member.Role.IsOwnerOrAdmin() {
		for _, perm := range grantedByID {
			seen[perm.Codename] = struct{}{}
		}
		return sortedCodenames(seen), nil
	}

	// Plain members only keep assigned permissions that an active
	// subscription also grants.
	for _, perm := range member.Permissions {
		if _, ok := grantedByID[perm.ID]; ok {
			seen[perm.Codename] = struct{}{}
		}
	}
	return sortedCodenames(seen), nil
}

func sortedCodenames(seen map[string]struct{}) []string {
	result := make([]string, 0, len(seen))
	for codename := range seen {
		result = append(result, codename)
	}
	sort.Strings(result)
	return result
}
