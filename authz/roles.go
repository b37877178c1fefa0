/*
Package authz decides whether a (role, action, resource) triple is permitted.

PURPOSE:
  Consolidates every permission lookup behind typed query operations so the
  fail-closed default is enforced once, not re-implemented at each call site.
  The policy tables are static data, immutable after initialization, and the
  queries are pure functions - safe to call concurrently without locks.

KEY CONCEPTS:
  - Role: closed set of portal roles (super_admin, hr, supplier, employee).
    No algorithmic hierarchy: every role+action pair is looked up by name.
  - Permission: fixed boolean capabilities per role
  - Action: named operations gated by role
  - Route prefix: path-prefix access control for the portal's sections

FAIL-CLOSED INVARIANT:
  Unknown role, permission, action, or path yields false. Absence of a match
  is a deny decision, not an exceptional condition. None of the queries can
  error.

SEE ALSO:
  - tables.go: The matrices themselves (pure data)
  - engine.go: Query operations over the tables
*/
package authz

// Role is a portal role. The set is closed and exhaustive.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleHR         Role = "hr"
	RoleSupplier   Role = "supplier"
	RoleEmployee   Role = "employee"
)

// Known reports whether r is one of the defined portal roles.
func (r Role) Known() bool {
	switch r {
	case RoleSuperAdmin, RoleHR, RoleSupplier, RoleEmployee:
		return true
	}
	return false
}

// Permission is a boolean capability granted to a role.
type Permission string

const (
	PermManageUsers         Permission = "manage_users"
	PermManageOffers        Permission = "manage_offers"
	PermApproveOffers       Permission = "approve_offers"
	PermViewAnalytics       Permission = "view_analytics"
	PermManageSuppliers     Permission = "manage_suppliers"
	PermAccessAllDashboards Permission = "access_all_dashboards"
)

// Action is a named operation gated by role. The set is closed.
type Action string

const (
	ActionCreateOffer     Action = "create_offer"
	ActionEditOffer       Action = "edit_offer"
	ActionApproveOffer    Action = "approve_offer"
	ActionDeleteOffer     Action = "delete_offer"
	ActionCreateUser      Action = "create_user"
	ActionDeleteUser      Action = "delete_user"
	ActionRedeemOffer     Action = "redeem_offer"
	ActionViewAnalytics   Action = "view_analytics"
	ActionManageSuppliers Action = "manage_suppliers"
)
