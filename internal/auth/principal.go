package auth

import (
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/models"
)

// Principal is the authenticated caller: user id, role, tenant scope and any
// fine-grained role grants. It is built once per request from token claims
// plus a fresh tenant-active check, and threaded explicitly through every
// call into the core; business logic never consults ambient session state.
type Principal struct {
	UserID   uuid.UUID
	Role     models.UserRole
	TenantID *uuid.UUID

	// TenantActive is false when the principal's tenant has been deactivated
	// or entered the deletion grace window.
	TenantActive bool

	Grants []models.RoleGrant
}

// InTenant reports whether the principal belongs to the given tenant.
func (p *Principal) InTenant(tenantID uuid.UUID) bool {
	return p.TenantID != nil && *p.TenantID == tenantID
}

// HasGrant reports whether the principal holds an active grant for the role
// within the given scope.
func (p *Principal) HasGrant(role models.UserRole, tenantID, soloTeacherID *uuid.UUID) bool {
	for i := range p.Grants {
		g := &p.Grants[i]
		if g.Role == role && g.MatchesScope(tenantID, soloTeacherID) {
			return true
		}
	}
	return false
}

// IsSoloTeacher reports whether the principal operates a solo-teacher account
// (a self-scoped teacher grant with no tenant).
func (p *Principal) IsSoloTeacher() bool {
	if p.TenantID != nil {
		return false
	}
	self := p.UserID
	return p.HasGrant(models.RoleTeacher, nil, &self)
}
