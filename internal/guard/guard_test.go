package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

type countingRecorder map[string]int

func (c countingRecorder) GuardDecision(outcome string) { c[outcome]++ }

func withRole() session.State {
	role := &rbac.Role{ID: 1, Name: "manager", Permissions: []string{shared.PermCustomerView}}
	return session.State{Token: "tok", Role: role, Permissions: role.PermissionSet()}
}

func TestDecideAnonymousKeepsRequestedLocation(t *testing.T) {
	d := New("", "").Decide(session.State{}, "/customers?page=2")
	require.Equal(t, SignIn, d.Outcome)

	u, err := url.Parse(d.Target)
	require.NoError(t, err)
	assert.Equal(t, DefaultSignInPath, u.Path)
	assert.Equal(t, "/customers?page=2", u.Query().Get(RedirectParam))
}

func TestDecideWithoutRoleGoesToUnauthorized(t *testing.T) {
	d := New("/login", "/denied").Decide(session.State{Token: "tok"}, "/users")
	assert.Equal(t, Decision{Outcome: Unauthorized, Target: "/denied"}, d)
}

func TestDecideWithRoleAllows(t *testing.T) {
	d := New("", "").Decide(withRole(), "/customers")
	assert.Equal(t, Allow, d.Outcome)
	assert.Empty(t, d.Target)
}

func TestRequireRedirects(t *testing.T) {
	rec := countingRecorder{}
	g := Guard{Metrics: rec}
	called := false
	h := g.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/staffs/payroll", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fstaffs%2Fpayroll", rr.Header().Get("Location"))
	assert.Equal(t, 1, rec["sign_in"])
}

func TestRequireRedirectsNoRoleSession(t *testing.T) {
	store := session.NewStore(&session.MemoryTokens{})
	require.NoError(t, store.SetCredentials(context.Background(), session.User{ID: 3}, "tok"))

	h := New("", "").Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(session.ContextWithStore(req.Context(), store))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, DefaultUnauthorizedPath, rr.Header().Get("Location"))
}

func TestRequireAllowsAndDisablesCaching(t *testing.T) {
	store := session.NewStore(&session.MemoryTokens{})
	user := session.User{ID: 9, Role: &rbac.Role{ID: 1, Name: "owner", Permissions: []string{shared.PermAll}}}
	require.NoError(t, store.SetCredentials(context.Background(), user, "tok"))

	h := New("", "").Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(session.ContextWithStore(req.Context(), store))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestRequireDatastarRequestGetsEventStream(t *testing.T) {
	h := New("", "").Require(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/customers", nil)
	req.Header.Set("Datastar-Request", "true")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rr.Body.String(), "/sign-in")
}

func TestWatchNavigatesOnLogout(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(&session.MemoryTokens{})
	require.NoError(t, store.SetCredentials(ctx, session.User{ID: 1, Role: &rbac.Role{ID: 1, Name: "owner", Permissions: []string{shared.PermAll}}}, "tok"))

	targets := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- New("", "").Watch(ctx, store, "/reports", func(target string) { targets <- target })
	}()

	require.Eventually(t, func() bool { return store.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Logout(ctx))

	select {
	case target := <-targets:
		assert.Equal(t, "/sign-in?redirect=%2Freports", target)
	case <-time.After(time.Second):
		t.Fatal("watch did not navigate")
	}
	assert.NoError(t, <-done)
}

func TestWatchNavigatesImmediatelyWhenAlreadyDenied(t *testing.T) {
	store := session.NewStore(&session.MemoryTokens{})
	var got string
	err := New("", "").Watch(context.Background(), store, "/", func(target string) { got = target })
	require.NoError(t, err)
	assert.Equal(t, "/sign-in?redirect=%2F", got)
}

func TestWatchStopsWithContext(t *testing.T) {
	store := session.NewStore(&session.MemoryTokens{})
	require.NoError(t, store.SetCredentials(context.Background(), session.User{ID: 1, Role: &rbac.Role{ID: 1, Name: "owner"}}, "tok"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New("", "").Watch(ctx, store, "/dashboard", func(string) { t.Fatal("unexpected navigation") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, store.Subscribers())
}

func TestWatchHandlerWithoutSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/session/watch?path=%2Fcustomers", nil)
	rr := httptest.NewRecorder()
	New("", "").WatchHandler().ServeHTTP(rr, req)

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rr.Body.String(), "/sign-in?redirect=%2Fcustomers")
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"/customers?page=2":       "/customers?page=2",
		"":                        "/",
		"customers":               "/",
		"//evil.example/":         "/",
		"/\\evil.example":         "/",
		"https://evil.example/x":  "/",
		"/settings/invoice#total": "/settings/invoice#total",
	}
	for raw, want := range cases {
		assert.Equal(t, want, SafeRedirect(raw, "/"), raw)
	}
}
