package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/landing"
	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/view"
)

func newRouter(t *testing.T) (http.Handler, *Handler) {
	t.Helper()
	tree, err := navigation.Default()
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	resolver := landing.Resolver{Tree: tree, DashboardPath: "/dashboard", UnauthorizedPath: "/unauthorized"}
	mw := rbac.Middleware{Permissions: session.PermissionsFromRequest}
	h := NewHandler(nil, templates, shared.NewCSRFManager("secret"), tree, mw, resolver)
	r := chi.NewRouter()
	h.MountRoutes(r)
	r.Route("/api", h.MountAPI)
	r.Get("/unauthorized", h.Unauthorized)
	return r, h
}

func get(t *testing.T, router http.Handler, path string, role *rbac.Role) *httptest.ResponseRecorder {
	t.Helper()
	store := session.NewStore(&session.MemoryTokens{})
	require.NoError(t, store.SetCredentials(context.Background(), session.User{ID: 1, Email: "staff@odyssey.local", Role: role}, "tok"))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(session.ContextWithStore(req.Context(), store))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func role(perms ...string) *rbac.Role {
	return &rbac.Role{ID: 1, Name: "tester", Permissions: perms}
}

func TestPageRendersWithFilteredSidebar(t *testing.T) {
	router, _ := newRouter(t)
	rr := get(t, router, "/customers", role(shared.PermCustomerView, shared.PermOrderView))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `href="/customers"`)
	assert.Contains(t, body, `href="/sales/orders"`)
	assert.NotContains(t, body, `href="/users"`)
	assert.NotContains(t, body, `href="/sales/returns"`)
	assert.Contains(t, body, "/session/watch?path=%2Fcustomers")
}

func TestPageDeniedWithoutPermission(t *testing.T) {
	router, _ := newRouter(t)
	rr := get(t, router, "/users", role(shared.PermCustomerView))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "No access")
}

func TestRootFallsBackToFirstAllowedRoute(t *testing.T) {
	router, _ := newRouter(t)

	rr := get(t, router, "/", role(shared.PermStaffView))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/staffs/list", rr.Header().Get("Location"))

	rr = get(t, router, "/dashboard", role(shared.PermCustomerView))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/customers", rr.Header().Get("Location"))
}

func TestDashboardRendersShortcuts(t *testing.T) {
	router, _ := newRouter(t)
	rr := get(t, router, "/dashboard", role(shared.PermDashboardView, shared.PermReportView))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Shortcuts")
	assert.Contains(t, body, `href="/reports"`)
	assert.Contains(t, body, "tester")
}

func TestNavigationAPI(t *testing.T) {
	router, _ := newRouter(t)
	rr := get(t, router, "/api/navigation", role(shared.PermPayrollView))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status      string            `json:"status"`
		Role        string            `json:"role"`
		Permissions []string          `json:"permissions"`
		Landing     string            `json:"landing"`
		Tree        []navigation.Node `json:"tree"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "authenticated_with_role", resp.Status)
	assert.Equal(t, "tester", resp.Role)
	assert.Equal(t, []string{shared.PermPayrollView}, resp.Permissions)
	assert.Equal(t, "/staffs/payroll", resp.Landing)

	require.NotEmpty(t, resp.Tree)
	assert.Equal(t, "/staffs", resp.Tree[0].Path)
	assert.Equal(t, navigation.KindGroup, resp.Tree[0].Kind)
	require.Len(t, resp.Tree[0].Children, 1)
	assert.Equal(t, "/staffs/payroll", resp.Tree[0].Children[0].Path)
}

func TestWildcardSeesEveryPage(t *testing.T) {
	router, h := newRouter(t)
	for _, page := range h.tree.Pages() {
		rr := get(t, router, page.Path, role(shared.PermAll))
		assert.Equal(t, http.StatusOK, rr.Code, page.Path)
	}
}

func TestUnauthorizedPageExplainsMissingRole(t *testing.T) {
	router, _ := newRouter(t)
	rr := get(t, router, "/unauthorized", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "has not been assigned a role")
	assert.Contains(t, rr.Body.String(), `action="/sign-out"`)
}

func TestShortcutsFlattenGroups(t *testing.T) {
	nodes := []navigation.Node{
		{Path: "/dashboard", Label: "Dashboard", Kind: navigation.KindPage},
		{Path: "/sales", Label: "Sales", Kind: navigation.KindGroup, Children: []navigation.Node{
			{Path: "/sales/orders", Label: "Orders", Kind: navigation.KindPage},
		}},
		{Path: "/settings", Label: "Settings", Kind: navigation.KindPage, Children: []navigation.Node{
			{Path: "/settings/invoice", Label: "Invoice", Kind: navigation.KindPage},
		}},
	}
	got := shortcuts(nodes, "/dashboard")
	require.Len(t, got, 2)
	assert.Equal(t, "/sales/orders", got[0].Path)
	assert.Equal(t, "/settings", got[1].Path)
	assert.Empty(t, got[1].Children)
}
