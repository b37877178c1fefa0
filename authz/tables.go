/*
tables.go - The policy tables (pure data)

PURPOSE:
  Three static matrices consulted by the engine's queries:
  - permission matrix: role -> capability booleans
  - action matrix:     action -> roles allowed to perform it
  - route matrix:      path prefix -> roles allowed under it

ROUTE MATRIX ORDERING:
  The route matrix is an ordered slice, not a map. Lookup takes the first
  declared prefix that matches, so iteration order is fixed by declaration.
  Prefixes must be kept disjoint at the declaration level; NewEngine asserts
  this at configuration load time.

CHANGING POLICY:
  Edit the tables here. There is no runtime mutation path: the tables are
  immutable after initialization and require no synchronization.
*/
package authz

// permissionMatrix maps each role to its fixed capability set.
// Every capability is stated explicitly; nothing is derived.
var permissionMatrix = map[Role]map[Permission]bool{
	RoleSuperAdmin: {
		PermManageUsers:         true,
		PermManageOffers:        true,
		PermApproveOffers:       true,
		PermViewAnalytics:       true,
		PermManageSuppliers:     true,
		PermAccessAllDashboards: true,
	},
	RoleHR: {
		PermManageUsers:         true,
		PermManageOffers:        false,
		PermApproveOffers:       true,
		PermViewAnalytics:       true,
		PermManageSuppliers:     false,
		PermAccessAllDashboards: false,
	},
	RoleSupplier: {
		PermManageUsers:         false,
		PermManageOffers:        true,
		PermApproveOffers:       false,
		PermViewAnalytics:       false,
		PermManageSuppliers:     false,
		PermAccessAllDashboards: false,
	},
	RoleEmployee: {
		PermManageUsers:         false,
		PermManageOffers:        false,
		PermApproveOffers:       false,
		PermViewAnalytics:       false,
		PermManageSuppliers:     false,
		PermAccessAllDashboards: false,
	},
}

// actionMatrix maps each action to the roles permitted to perform it.
var actionMatrix = map[Action][]Role{
	ActionCreateOffer:     {RoleSuperAdmin, RoleSupplier},
	ActionEditOffer:       {RoleSuperAdmin, RoleSupplier},
	ActionApproveOffer:    {RoleSuperAdmin, RoleHR},
	ActionDeleteOffer:     {RoleSuperAdmin},
	ActionCreateUser:      {RoleSuperAdmin, RoleHR},
	ActionDeleteUser:      {RoleSuperAdmin},
	ActionRedeemOffer:     {RoleEmployee},
	ActionViewAnalytics:   {RoleSuperAdmin, RoleHR},
	ActionManageSuppliers: {RoleSuperAdmin},
}

// routeRule grants a set of roles access to every path under Prefix.
type routeRule struct {
	Prefix string
	Roles  []Role
}

// routeMatrix is consulted in declaration order; first match wins.
// Prefixes must be disjoint (no rule's prefix may be a prefix of another's).
var routeMatrix = []routeRule{
	{Prefix: "/admin", Roles: []Role{RoleSuperAdmin}},
	{Prefix: "/hr", Roles: []Role{RoleSuperAdmin, RoleHR}},
	{Prefix: "/supplier", Roles: []Role{RoleSuperAdmin, RoleSupplier}},
	{Prefix: "/perks", Roles: []Role{RoleSuperAdmin, RoleHR, RoleEmployee}},
	{Prefix: "/analytics", Roles: []Role{RoleSuperAdmin, RoleHR}},
}
