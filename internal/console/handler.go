// Package console serves the admin console pages: one page per navigable
// node of the navigation tree, the dashboard behind the landing resolver,
// and the sidebar data as JSON.
package console

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/landing"
	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/view"
)

// Handler renders console pages.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	tree      *navigation.Tree
	rbac      rbac.Middleware
	landing   landing.Resolver
}

// NewHandler constructs a Handler. Routes denied by rbac render the
// unauthorized page with status 403.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, tree *navigation.Tree, mw rbac.Middleware, resolver landing.Resolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, templates: templates, csrf: csrf, tree: tree, landing: resolver}
	mw.Denied = h.unauthorized(http.StatusForbidden)
	h.rbac = mw
	return h
}

// MountRoutes registers the protected console routes. The caller is
// expected to wrap r with the route guard.
func (h *Handler) MountRoutes(r chi.Router) {
	dashboard := h.landing.Handler(http.HandlerFunc(h.showDashboard))
	r.Method(http.MethodGet, landing.RootPath, dashboard)
	if h.landing.DashboardPath != "" && h.landing.DashboardPath != landing.RootPath {
		r.Method(http.MethodGet, h.landing.DashboardPath, dashboard)
	}
	for _, node := range h.tree.Pages() {
		if node.Path == h.landing.DashboardPath || node.Path == landing.RootPath {
			continue
		}
		r.With(h.rbac.RequireNode(node)).Get(node.Path, h.showPage(node))
	}
}

// MountAPI registers the JSON routes, relative to the API prefix.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/navigation", h.navigation)
}

// Unauthorized serves the terminal no-access page.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.unauthorized(http.StatusOK).ServeHTTP(w, r)
}

type dashboardData struct {
	Role      string
	ExpiresAt time.Time
	Shortcuts []navigation.Node
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	st := session.StateFromContext(r.Context())
	nav := rbac.VisibleTree(st.Permissions, h.tree)
	data := dashboardData{ExpiresAt: st.ExpiresAt, Shortcuts: shortcuts(nav, h.landing.DashboardPath)}
	if st.Role != nil {
		data.Role = st.Role.Name
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", h.title(h.landing.DashboardPath, "Dashboard"), nav, data)
}

type sectionData struct {
	Node     navigation.Node
	Children []navigation.Node
}

func (h *Handler) showPage(node navigation.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		nav := rbac.VisibleTree(st.Permissions, h.tree)
		data := sectionData{Node: node}
		if visible, ok := findNode(nav, node.Path); ok {
			data.Children = visible.Children
		}
		h.render(w, r, http.StatusOK, "pages/section.html", node.Label, nav, data)
	}
}

type unauthorizedData struct {
	Reason   string
	SignedIn bool
}

func (h *Handler) unauthorized(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		data := unauthorizedData{Reason: "no_route", SignedIn: st.Authenticated()}
		if st.Status() == session.AuthenticatedNoRole {
			data.Reason = "no_role"
		}
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
		viewData := view.TemplateData{
			Title:       "No access",
			CSRFToken:   csrfToken,
			CurrentPath: r.URL.Path,
			Data:        data,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := h.templates.Render(w, "pages/unauthorized.html", viewData); err != nil {
			h.logger.Error("render unauthorized", slog.Any("error", err))
		}
	}
}

type navigationResponse struct {
	Status      string             `json:"status"`
	Role        string             `json:"role,omitempty"`
	Permissions rbac.PermissionSet `json:"permissions"`
	Landing     string             `json:"landing"`
	Tree        []navigation.Node  `json:"tree"`
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	st := session.StateFromContext(r.Context())
	res := h.landing.Resolve(st.Permissions)
	resp := navigationResponse{
		Status:      st.Status().String(),
		Permissions: st.Permissions,
		Landing:     res.Redirect,
		Tree:        rbac.VisibleTree(st.Permissions, h.tree),
	}
	if res.Render {
		resp.Landing = h.landing.DashboardPath
	}
	if st.Role != nil {
		resp.Role = st.Role.Name
	}
	if resp.Tree == nil {
		resp.Tree = []navigation.Node{}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, nav []navigation.Node, data any) {
	st := session.StateFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		User:        st.User,
		Nav:         nav,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
	}
}

func (h *Handler) title(path, fallback string) string {
	if n, ok := h.tree.Find(path); ok && n.Label != "" {
		return n.Label
	}
	return fallback
}

func findNode(nodes []navigation.Node, path string) (navigation.Node, bool) {
	for _, n := range nodes {
		if n.Path == path {
			return n, true
		}
		if found, ok := findNode(n.Children, path); ok {
			return found, true
		}
	}
	return navigation.Node{}, false
}

// shortcuts lists the visible top-level pages other than the dashboard,
// descending into groups.
func shortcuts(nodes []navigation.Node, dashboardPath string) []navigation.Node {
	var out []navigation.Node
	for _, n := range nodes {
		if !n.Navigable() {
			out = append(out, shortcuts(n.Children, dashboardPath)...)
			continue
		}
		if n.Path == dashboardPath {
			continue
		}
		n.Children = nil
		out = append(out, n)
	}
	return out
}
