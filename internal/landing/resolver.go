// Package landing decides where the console's root route sends a user who
// may not be allowed to see the dashboard.
package landing

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-console/internal/guard"
	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
)

// Outcome labels reported to the Recorder.
const (
	OutcomeDashboard    = "dashboard"
	OutcomeFallback     = "fallback"
	OutcomeUnauthorized = "unauthorized"
)

// Recorder receives landing outcomes for metrics.
type Recorder interface {
	LandingOutcome(outcome string)
}

// Result is either Render (show the dashboard) or a Redirect target.
type Result struct {
	Render   bool
	Redirect string
}

// Resolver computes the landing destination.
type Resolver struct {
	Tree *navigation.Tree
	// DashboardPath is the route of the dashboard itself.
	DashboardPath string
	// DashboardPermission is what the dashboard is expected to require.
	// Empty means the permission declared on the dashboard node.
	DashboardPermission string
	UnauthorizedPath    string
	Logger              *slog.Logger
	Metrics             Recorder
}

func (r Resolver) dashboardPermission() string {
	if r.DashboardPermission != "" {
		return r.DashboardPermission
	}
	if n, ok := r.Tree.Find(r.DashboardPath); ok {
		return n.Permission
	}
	return ""
}

func (r Resolver) unauthorized() string {
	if r.UnauthorizedPath == "" {
		return guard.DefaultUnauthorizedPath
	}
	return r.UnauthorizedPath
}

// RootPath is always served by the landing handler next to DashboardPath.
const RootPath = "/"

// ownsPath reports whether the landing handler itself answers path.
func (r Resolver) ownsPath(path string) bool {
	return path == RootPath || path == r.DashboardPath
}

// Resolve never redirects to a path the landing handler is mounted on, so
// a misdeclared tree cannot produce a redirect loop.
func (r Resolver) Resolve(set rbac.PermissionSet) Result {
	if set.Grants(r.dashboardPermission()) {
		r.record(OutcomeDashboard)
		return Result{Render: true}
	}
	fallback := r.unauthorized()
	route := rbac.FirstAllowedRoute(set, r.Tree, fallback)
	if r.ownsPath(route) {
		if r.Logger != nil {
			r.Logger.Warn("landing loop avoided", slog.String("route", route), slog.String("dashboard", r.DashboardPath))
		}
		route = fallback
	}
	if route == fallback {
		r.record(OutcomeUnauthorized)
	} else {
		r.record(OutcomeFallback)
	}
	return Result{Redirect: route}
}

// Handler renders the dashboard through render or redirects elsewhere. It
// belongs behind guard.Require, so the session is authenticated with a role.
func (r Resolver) Handler(render http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		set, _ := session.PermissionsFromRequest(req)
		res := r.Resolve(set)
		if res.Render {
			render.ServeHTTP(w, req)
			return
		}
		guard.Redirect(w, req, res.Redirect)
	})
}

func (r Resolver) record(outcome string) {
	if r.Metrics != nil {
		r.Metrics.LandingOutcome(outcome)
	}
}
