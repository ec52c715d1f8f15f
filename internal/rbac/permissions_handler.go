package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// RoleLister lists roles with their permissions.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]Role, error)
}

// PermissionsHandler exposes the permission catalog and roles to the role
// editor.
type PermissionsHandler struct {
	logger *slog.Logger
	roles  RoleLister
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, roles RoleLister, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, roles: roles, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoles)
	})
}

type catalogResponse struct {
	Version  int                   `json:"version"`
	Wildcard string                `json:"wildcard"`
	Groups   []shared.CatalogGroup `json:"groups"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{
		Version:  shared.PermissionCatalogVersion,
		Wildcard: shared.PermAll,
		Groups:   shared.SortedCatalog(),
	})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.ListRoles(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("list roles", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}
