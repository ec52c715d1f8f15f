package session

import (
	"context"
	"net/http"

	"github.com/odyssey-erp/odyssey-console/internal/rbac"
)

type storeContextKey struct{}

// ContextWithStore stores the session Store in context.
func ContextWithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, s)
}

// StoreFromContext extracts the session Store from context.
func StoreFromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeContextKey{}).(*Store)
	return s
}

// StateFromContext returns the current snapshot, or the anonymous state
// when no store is attached.
func StateFromContext(ctx context.Context) State {
	if s := StoreFromContext(ctx); s != nil {
		return s.State()
	}
	return State{}
}

// PermissionsFromRequest adapts the request session to rbac.PermissionsFunc.
func PermissionsFromRequest(r *http.Request) (rbac.PermissionSet, bool) {
	st := StateFromContext(r.Context())
	if !st.Authenticated() {
		return rbac.PermissionSet{}, false
	}
	return st.Permissions, true
}
