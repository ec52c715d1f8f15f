package shared

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PermissionCatalogVersion increases whenever a permission is appended.
// Identifiers are never removed: roles persisted in the backend refer to them.
const PermissionCatalogVersion = 4

// PermAll is the wildcard permission granting every capability.
const PermAll = "*"

// Core platform permissions.
const (
	PermDashboardView = "view_dashboard"

	PermUsersView   = "view_users"
	PermUsersAdd    = "add_user"
	PermUsersEdit   = "edit_user"
	PermUsersDelete = "delete_user"

	PermRolesView   = "view_roles"
	PermRolesAdd    = "add_role"
	PermRolesEdit   = "edit_role"
	PermRolesDelete = "delete_role"

	PermSettingsView = "view_settings"
	PermSettingsEdit = "edit_settings"
)

// DashboardScopes lists permissions of the dashboard module.
func DashboardScopes() []string {
	return []string{PermDashboardView}
}

// UserScopes lists permissions related to user management.
func UserScopes() []string {
	return []string{
		PermUsersView,
		PermUsersAdd,
		PermUsersEdit,
		PermUsersDelete,
	}
}

// RoleScopes lists permissions related to role management.
func RoleScopes() []string {
	return []string{
		PermRolesView,
		PermRolesAdd,
		PermRolesEdit,
		PermRolesDelete,
	}
}

// SettingsScopes lists permissions related to business settings.
func SettingsScopes() []string {
	return []string{
		PermSettingsView,
		PermSettingsEdit,
	}
}

// CatalogGroup is one business module together with its permissions.
type CatalogGroup struct {
	Module      string   `json:"module"`
	Permissions []string `json:"permissions"`
}

// Catalog enumerates every known permission grouped by module in
// declaration order.
func Catalog() []CatalogGroup {
	return []CatalogGroup{
		{Module: "dashboard", Permissions: DashboardScopes()},
		{Module: "products", Permissions: ProductScopes()},
		{Module: "customers", Permissions: CustomerScopes()},
		{Module: "suppliers", Permissions: SupplierScopes()},
		{Module: "staff", Permissions: StaffScopes()},
		{Module: "sales", Permissions: SalesScopes()},
		{Module: "purchases", Permissions: PurchaseScopes()},
		{Module: "accounting", Permissions: AccountingScopes()},
		{Module: "users", Permissions: UserScopes()},
		{Module: "roles", Permissions: RoleScopes()},
		{Module: "settings", Permissions: SettingsScopes()},
		{Module: "reports", Permissions: ReportScopes()},
	}
}

var knownPermissions = func() map[string]struct{} {
	known := map[string]struct{}{PermAll: {}}
	for _, group := range Catalog() {
		for _, p := range group.Permissions {
			known[p] = struct{}{}
		}
	}
	return known
}()

// IsKnownPermission reports whether p belongs to the catalog. The wildcard
// counts as known.
func IsKnownPermission(p string) bool {
	_, ok := knownPermissions[p]
	return ok
}

// SortedCatalog returns the catalog with each module's permissions ordered
// alphabetically for display in role editors.
func SortedCatalog() []CatalogGroup {
	groups := Catalog()
	coll := collate.New(language.English, collate.IgnoreCase)
	for i := range groups {
		coll.SortStrings(groups[i].Permissions)
	}
	return groups
}
