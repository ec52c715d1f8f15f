package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

const unauthorizedPath = "/unauthorized"

func scenarioTree(t *testing.T) *navigation.Tree {
	t.Helper()
	tree, err := navigation.New(
		navigation.Node{Path: "/dashboard", Permission: shared.PermDashboardView},
		navigation.Node{Path: "/customers", Permission: shared.PermCustomerView},
	)
	require.NoError(t, err)
	return tree
}

func TestIsAuthorizedTruthTable(t *testing.T) {
	sets := map[string]PermissionSet{
		"empty":    NewPermissionSet(),
		"zero":     {},
		"orders":   NewPermissionSet(shared.PermOrderView),
		"mixed":    NewPermissionSet(shared.PermOrderView, shared.PermCustomerView),
		"wildcard": NewPermissionSet(shared.PermAll),
		"unknown":  NewPermissionSet("launch_rockets"),
	}
	nodes := []navigation.Node{
		{Path: "/open"},
		{Path: "/orders", Permission: shared.PermOrderView},
		{Path: "/customers", Permission: shared.PermCustomerView},
		{Path: "/staff", Permission: shared.PermStaffView},
		{Path: "/rockets", Permission: "launch_rockets"},
	}
	for name, set := range sets {
		for _, n := range nodes {
			known := n.Permission == "" || shared.IsKnownPermission(n.Permission)
			want := known && (n.Permission == "" || set.Has(n.Permission) || set.Has(shared.PermAll))
			assert.Equal(t, want, IsAuthorized(set, n), "set=%s node=%s", name, n.Path)
		}
	}
}

func TestIsAuthorizedEmptySetSeesOpenNodesOnly(t *testing.T) {
	empty := NewPermissionSet()
	assert.True(t, IsAuthorized(empty, navigation.Node{Path: "/profile"}))
	assert.False(t, IsAuthorized(empty, navigation.Node{Path: "/dashboard", Permission: shared.PermDashboardView}))
}

func TestFirstAllowedRouteScenarios(t *testing.T) {
	tree := scenarioTree(t)

	t.Run("A customers only", func(t *testing.T) {
		got := FirstAllowedRoute(NewPermissionSet(shared.PermCustomerView), tree, unauthorizedPath)
		assert.Equal(t, "/customers", got)
	})
	t.Run("B no permissions", func(t *testing.T) {
		got := FirstAllowedRoute(NewPermissionSet(), tree, unauthorizedPath)
		assert.Equal(t, unauthorizedPath, got)
	})
	t.Run("C wildcard", func(t *testing.T) {
		got := FirstAllowedRoute(NewPermissionSet(shared.PermAll), tree, unauthorizedPath)
		assert.Equal(t, "/dashboard", got)
	})
}

func TestFirstAllowedRouteIsTotal(t *testing.T) {
	empty, err := navigation.New()
	require.NoError(t, err)

	assert.Equal(t, unauthorizedPath, FirstAllowedRoute(NewPermissionSet(shared.PermAll), empty, unauthorizedPath))
	assert.Equal(t, unauthorizedPath, FirstAllowedRoute(PermissionSet{}, nil, unauthorizedPath))
	assert.Equal(t, "", FirstAllowedRoute(PermissionSet{}, scenarioTree(t), ""))
}

func TestFirstAllowedRouteReturnsTreePathOrFallback(t *testing.T) {
	tree, err := navigation.Default()
	require.NoError(t, err)

	sets := []PermissionSet{
		NewPermissionSet(),
		NewPermissionSet(shared.PermAll),
		NewPermissionSet(shared.PermPayrollView),
		NewPermissionSet(shared.PermExpenseView, shared.PermReportView),
		NewPermissionSet("not_in_catalog"),
	}
	for _, set := range sets {
		got := FirstAllowedRoute(set, tree, unauthorizedPath)
		if got == unauthorizedPath {
			continue
		}
		n, ok := tree.Find(got)
		require.True(t, ok, "route %s not in tree", got)
		assert.True(t, n.Navigable())
		assert.True(t, IsAuthorized(set, n))
	}
}

func TestFirstAllowedRouteIsDeterministic(t *testing.T) {
	tree, err := navigation.Default()
	require.NoError(t, err)
	set := NewPermissionSet(shared.PermReportView, shared.PermAccountView, shared.PermPurchaseView)

	first := FirstAllowedRoute(set, tree, unauthorizedPath)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, FirstAllowedRoute(set, tree, unauthorizedPath))
	}
	assert.Equal(t, "/purchases", first)
}

func TestFirstAllowedRouteSkipsGroups(t *testing.T) {
	tree, err := navigation.New(
		navigation.Node{Path: "/sales", Kind: navigation.KindGroup, Children: []navigation.Node{
			{Path: "/sales/orders", Permission: shared.PermOrderView},
		}},
	)
	require.NoError(t, err)

	assert.Equal(t, "/sales/orders", FirstAllowedRoute(NewPermissionSet(shared.PermAll), tree, unauthorizedPath))
}

func TestFirstAllowedRoutePrefersContentParent(t *testing.T) {
	tree, err := navigation.New(
		navigation.Node{Path: "/settings", Permission: shared.PermSettingsView, Children: []navigation.Node{
			{Path: "/settings/business", Permission: shared.PermSettingsEdit},
		}},
	)
	require.NoError(t, err)

	both := NewPermissionSet(shared.PermSettingsView, shared.PermSettingsEdit)
	assert.Equal(t, "/settings", FirstAllowedRoute(both, tree, unauthorizedPath))

	childOnly := NewPermissionSet(shared.PermSettingsEdit)
	assert.Equal(t, "/settings/business", FirstAllowedRoute(childOnly, tree, unauthorizedPath))
}

func TestWildcardDominance(t *testing.T) {
	tree, err := navigation.Default()
	require.NoError(t, err)

	var first string
	tree.Walk(func(n navigation.Node, _ int) bool {
		if n.Navigable() {
			first = n.Path
			return false
		}
		return true
	})
	got := FirstAllowedRoute(NewPermissionSet(shared.PermAll, shared.PermReportView), tree, unauthorizedPath)
	assert.Equal(t, first, got)
}

func TestVisibleTree(t *testing.T) {
	tree, err := navigation.New(
		navigation.Node{Path: "/dashboard", Permission: shared.PermDashboardView},
		navigation.Node{Path: "/sales", Kind: navigation.KindGroup, Children: []navigation.Node{
			{Path: "/sales/orders", Permission: shared.PermOrderView},
			{Path: "/sales/returns", Permission: shared.PermSaleReturnView},
		}},
		navigation.Node{Path: "/accounting", Kind: navigation.KindGroup, Children: []navigation.Node{
			{Path: "/accounting/accounts", Permission: shared.PermAccountView},
		}},
		navigation.Node{Path: "/settings", Permission: shared.PermSettingsView, Children: []navigation.Node{
			{Path: "/settings/business", Permission: shared.PermSettingsEdit},
		}},
		navigation.Node{Path: "/profile"},
	)
	require.NoError(t, err)

	visible := VisibleTree(NewPermissionSet(shared.PermOrderView, shared.PermSettingsEdit), tree)

	paths := make([]string, 0, len(visible))
	for _, n := range visible {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"/sales", "/settings", "/profile"}, paths)

	require.Len(t, visible[0].Children, 1)
	assert.Equal(t, "/sales/orders", visible[0].Children[0].Path)

	assert.Equal(t, navigation.KindGroup, visible[1].Kind, "unreachable parent is shown as a label")
	require.Len(t, visible[1].Children, 1)

	assert.Len(t, VisibleTree(NewPermissionSet(shared.PermAll), tree), 5)
	assert.Empty(t, VisibleTree(NewPermissionSet(), nil))
}
