package authz

import (
	"fmt"
	"strings"
)

// =============================================================================
// ENGINE - Typed queries over the policy tables
// =============================================================================

// Engine evaluates authorization queries against the static policy tables.
// All methods are pure reads: no side effects, no errors, safe for
// concurrent use. A zero match always means deny.
type Engine struct {
	permissions map[Role]map[Permission]bool
	actions     map[Action][]Role
	routes      []routeRule
}

// NewEngine builds an engine over the declared policy tables.
// It panics if the route matrix violates the prefix-disjointness invariant:
// that is a configuration defect and must fail at startup, not surface as
// ambiguous allow/deny decisions at request time.
func NewEngine() *Engine {
	e := &Engine{
		permissions: permissionMatrix,
		actions:     actionMatrix,
		routes:      routeMatrix,
	}
	if err := validateRoutePrefixes(e.routes); err != nil {
		panic(fmt.Sprintf("authz: %v", err))
	}
	return e
}

// validateRoutePrefixes rejects tables where one rule's prefix shadows
// another's. With disjoint prefixes, "first declared match wins" can never
// depend on declaration order in practice.
func validateRoutePrefixes(rules []routeRule) error {
	for i, a := range rules {
		if a.Prefix == "" || !strings.HasPrefix(a.Prefix, "/") {
			return fmt.Errorf("route prefix %q must start with /", a.Prefix)
		}
		for _, b := range rules[i+1:] {
			if strings.HasPrefix(a.Prefix, b.Prefix) || strings.HasPrefix(b.Prefix, a.Prefix) {
				return fmt.Errorf("route prefixes %q and %q overlap", a.Prefix, b.Prefix)
			}
		}
	}
	return nil
}

// HasPermission reports whether role holds the given capability.
// Unknown roles and unknown permission keys yield false.
func (e *Engine) HasPermission(role Role, perm Permission) bool {
	perms, ok := e.permissions[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// CanPerformAction reports whether role may perform the named action.
// Unknown actions yield false.
func (e *Engine) CanPerformAction(role Role, action Action) bool {
	for _, allowed := range e.actions[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// CanAccessRoute reports whether role may access the given path.
// The first declared rule whose prefix matches the path is authoritative;
// a path matching no rule is denied.
func (e *Engine) CanAccessRoute(role Role, path string) bool {
	for _, rule := range e.routes {
		if !strings.HasPrefix(path, rule.Prefix) {
			continue
		}
		for _, allowed := range rule.Roles {
			if allowed == role {
				return true
			}
		}
		return false
	}
	return false
}

// CanManageUser reports whether actor may manage an account with the target
// role. super_admin manages any role; hr manages employees only. This is a
// two-argument policy, deliberately separate from the permission matrix.
func (e *Engine) CanManageUser(actor, target Role) bool {
	switch actor {
	case RoleSuperAdmin:
		return target.Known()
	case RoleHR:
		return target == RoleEmployee
	}
	return false
}

// CanEditOffer reports whether the actor may edit the offer owned by
// offerSupplierID. super_admin edits any offer; a supplier edits only
// their own.
func (e *Engine) CanEditOffer(actor Role, offerSupplierID, actorID string) bool {
	switch actor {
	case RoleSuperAdmin:
		return true
	case RoleSupplier:
		return offerSupplierID != "" && offerSupplierID == actorID
	}
	return false
}
