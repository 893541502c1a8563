// Package guard enforces tenant isolation for the Schoolgrid platform.
//
// Every tenant-scoped request carries an explicit Actor (decoded upstream
// from an already-verified identity token) and a requested school ID taken
// from the URL. The guard is a pure gate: it allows the platform bypass role
// through unconditionally, requires an exact school match for everyone else,
// and never degrades a mismatch into an empty result set.
package guard

import "errors"

// Errors
var (
	ErrTenantMismatch = errors.New("guard: tenant mismatch")
)

// Role is an actor's platform role.
type Role string

const (
	// RoleSuperAdmin is the platform bypass role, exempt from isolation checks.
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleSchoolAdmin Role = "SCHOOL_ADMIN"
	RoleTeacher     Role = "TEACHER"
	RoleStaff       Role = "STAFF"
)

// ValidRole returns true if the role name is recognised.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin, RoleTeacher, RoleStaff:
		return true
	}
	return false
}

// TenantScoped returns true for roles bound to a single school.
func TenantScoped(r Role) bool {
	return ValidRole(r) && r != RoleSuperAdmin
}

// Actor is the authenticated caller. SchoolID is empty for platform roles.
// Token verification happens upstream; the guard receives a trusted,
// already-decoded identity.
type Actor struct {
	Role     Role
	SchoolID string
}

// Check applies the isolation rule: the bypass role is always allowed,
// tenant-scoped roles are allowed only against their own school. There is no
// partial match and no hierarchy between tenants.
func Check(actor Actor, requestedSchoolID string) error {
	if actor.Role == RoleSuperAdmin {
		return nil
	}
	if actor.SchoolID != "" && actor.SchoolID == requestedSchoolID {
		return nil
	}
	return ErrTenantMismatch
}
