package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-console/internal/guard"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	backend        Backend
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	registry       *session.Registry
	signInPath     string
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, backend Backend, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, registry *session.Registry, signInPath string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if signInPath == "" {
		signInPath = guard.DefaultSignInPath
	}
	return &Handler{
		logger:         logger,
		backend:        backend,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		registry:       registry,
		signInPath:     signInPath,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(h.signInPath, h.showSignIn)
	r.Post(h.signInPath, h.handleSignIn)
	r.Post("/sign-out", h.handleSignOut)
}

type signInForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type signInPageData struct {
	Form     signInForm
	Errors   map[string]string
	Redirect string
}

func (h *Handler) showSignIn(w http.ResponseWriter, r *http.Request) {
	redirect := guard.SafeRedirect(r.URL.Query().Get(guard.RedirectParam), "/")
	if session.StateFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, signInPageData{Redirect: redirect})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := signInForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	data := signInPageData{
		Form:     signInForm{Email: form.Email},
		Errors:   make(map[string]string),
		Redirect: guard.SafeRedirect(r.PostFormValue(guard.RedirectParam), "/"),
	}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				data.Errors[fieldErr.Field()] = fieldErr.Error()
			}
		}
		h.render(w, r, http.StatusBadRequest, data)
		return
	}

	store := session.StoreFromContext(r.Context())
	if store == nil {
		h.logger.Error("session store missing during sign in")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := WithClientInfo(r.Context(), r.RemoteAddr, r.UserAgent())
	user, token, err := h.backend.Login(ctx, form.Email, form.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		data.Errors["general"] = "Invalid email or password"
		h.render(w, r, http.StatusBadRequest, data)
		return
	case err != nil:
		h.logger.Error("sign in", slog.Any("error", err))
		data.Errors["general"] = "Sign in is unavailable right now, please try again"
		h.render(w, r, http.StatusServiceUnavailable, data)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess != nil && h.registry != nil {
		// Fresh id on sign-in; the store follows the browser session.
		previous := h.sessionManager.Renew(sess)
		h.registry.Forget(previous)
		store = h.registry.Get(sess.ID)
	}
	if err := store.SetCredentials(r.Context(), user, token); err != nil {
		h.logger.Error("store credentials", slog.Any("error", err))
		data.Errors["general"] = "Sign in is unavailable right now, please try again"
		h.render(w, r, http.StatusInternalServerError, data)
		return
	}
	if sess != nil {
		sess.SetUser(strconv.FormatInt(user.ID, 10))
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
	}
	h.logger.Info("signed in", slog.Int64("user_id", user.ID), slog.String("status", store.Status().String()))
	http.Redirect(w, r, data.Redirect, http.StatusSeeOther)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if store := session.StoreFromContext(r.Context()); store != nil {
		if token := store.State().Token; token != "" {
			if err := h.backend.Logout(r.Context(), token); err != nil {
				h.logger.Warn("backend logout", slog.Any("error", err))
			}
		}
		if err := store.Logout(r.Context()); err != nil {
			h.logger.Warn("clear session", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
		if h.registry != nil {
			h.registry.Forget(sess.ID)
		}
	}
	http.Redirect(w, r, h.signInPath, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data signInPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/signin.html", viewData); err != nil {
		h.logger.Error("render sign in", slog.Any("error", err))
	}
}
