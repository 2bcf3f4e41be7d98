package auth

import "adeptify/internal/model"

// ScopeKind names the tenant dimension a resource belongs to.
type ScopeKind string

const (
	ScopeCentre ScopeKind = "centre"
	ScopeCurs   ScopeKind = "curs"
	ScopeUser   ScopeKind = "user"
)

type rule func(id Identity, requested string) bool

func allowAll(Identity, string) bool { return true }

func deny(Identity, string) bool { return false }

func matchCentre(id Identity, requested string) bool {
	return requested != "" && id.CentreID != "" && id.CentreID == requested
}

func matchCurs(id Identity, requested string) bool {
	return requested != "" && id.CursID != "" && id.CursID == requested
}

func matchSelf(id Identity, requested string) bool {
	return requested != "" && id.ID.String() == requested
}

// scopePolicy is the whole tenant authorization matrix.
// Roles or scopes missing from it are denied.
var scopePolicy = map[model.Role]map[ScopeKind]rule{
	model.RoleSuperAdmin: {
		ScopeCentre: allowAll,
		ScopeCurs:   allowAll,
		ScopeUser:   allowAll,
	},
	model.RoleAdminCentre: {
		ScopeCentre: matchCentre,
		ScopeCurs:   allowAll,
		ScopeUser:   matchSelf,
	},
	model.RoleAdminCurs: {
		ScopeCentre: matchCentre,
		ScopeCurs:   matchCurs,
		ScopeUser:   matchSelf,
	},
}

// Allow reports whether id may act on the resource identified by requested
// within the given scope.
func Allow(id Identity, scope ScopeKind, requested string) bool {
	byScope, ok := scopePolicy[id.Role]
	if !ok {
		return false
	}
	r, ok := byScope[scope]
	if !ok {
		r = deny
	}
	return r(id, requested)
}

// Role tiers used by the route guards.
var (
	SuperAdminRoles  = []model.Role{model.RoleSuperAdmin}
	AdminCentreRoles = []model.Role{model.RoleSuperAdmin, model.RoleAdminCentre}
	AdminCursRoles   = []model.Role{model.RoleSuperAdmin, model.RoleAdminCentre, model.RoleAdminCurs}
)

// HasRole reports whether role is one of allowed.
func HasRole(role model.Role, allowed ...model.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CanAssignRole reports whether creator may create a user with target role.
func CanAssignRole(creator, target model.Role) bool {
	switch creator {
	case model.RoleSuperAdmin:
		return target.Valid()
	case model.RoleAdminCentre:
		return target == model.RoleAdminCurs
	default:
		return false
	}
}
