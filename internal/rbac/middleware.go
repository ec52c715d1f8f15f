package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-console/internal/navigation"
)

// PermissionsFunc resolves the permission set of the request's principal.
// ok is false when the request carries no authenticated principal.
type PermissionsFunc func(r *http.Request) (set PermissionSet, ok bool)

// Middleware wires RBAC authorization helpers for HTTP handlers. The
// console-side check is advisory; the backend stays authoritative.
type Middleware struct {
	Permissions PermissionsFunc
	Logger      *slog.Logger
	// Denied renders the 403 response. Nil writes a plain text body.
	Denied http.Handler
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.current(r)
			if !ok {
				m.forbid(w, r)
				return
			}
			if granted.GrantsAny(normalized...) {
				next.ServeHTTP(w, r)
				return
			}
			m.denied(r, normalized)
			m.forbid(w, r)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.current(r)
			if !ok {
				m.forbid(w, r)
				return
			}
			for _, p := range normalized {
				if !granted.Grants(p) {
					m.denied(r, normalized)
					m.forbid(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireNode applies the navigation node's own requirement, so routes
// mounted from the tree enforce exactly what the sidebar advertises.
func (m Middleware) RequireNode(node navigation.Node) func(http.Handler) http.Handler {
	if node.Permission == "" {
		return m.RequireAny()
	}
	return m.RequireAny(node.Permission)
}

func (m Middleware) current(r *http.Request) (PermissionSet, bool) {
	if m.Permissions == nil {
		return PermissionSet{}, false
	}
	return m.Permissions(r)
}

func (m Middleware) forbid(w http.ResponseWriter, r *http.Request) {
	if m.Denied != nil {
		m.Denied.ServeHTTP(w, r)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (m Middleware) denied(r *http.Request, required []string) {
	if m.Logger == nil {
		return
	}
	m.Logger.Info("rbac denied",
		slog.String("path", r.URL.Path),
		slog.Any("required", required),
	)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
