// Package guard protects console routes: anonymous visitors are sent to
// sign-in with their requested location preserved, accounts without a
// role are sent to the unauthorized page, everyone else is let through.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/odyssey-erp/odyssey-console/internal/session"
)

const (
	// DefaultSignInPath is where anonymous visitors are redirected.
	DefaultSignInPath = "/sign-in"
	// DefaultUnauthorizedPath is the terminal page for accounts without access.
	DefaultUnauthorizedPath = "/unauthorized"
	// RedirectParam carries the originally requested location.
	RedirectParam = "redirect"
)

// Outcome is the result of a guard check.
type Outcome int

const (
	// Allow renders the protected content.
	Allow Outcome = iota
	// SignIn redirects an anonymous visitor to sign-in.
	SignIn
	// Unauthorized redirects an account without a role.
	Unauthorized
)

func (o Outcome) String() string {
	switch o {
	case SignIn:
		return "sign_in"
	case Unauthorized:
		return "unauthorized"
	default:
		return "allow"
	}
}

// Decision is the outcome together with the redirect target, if any.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Recorder receives guard outcomes for metrics.
type Recorder interface {
	GuardDecision(outcome string)
}

// Guard checks the request session before protected handlers run.
type Guard struct {
	SignInPath       string
	UnauthorizedPath string
	Logger           *slog.Logger
	Metrics          Recorder
}

// New builds a Guard, defaulting empty paths.
func New(signInPath, unauthorizedPath string) Guard {
	return Guard{SignInPath: signInPath, UnauthorizedPath: unauthorizedPath}
}

func (g Guard) signIn() string {
	if g.SignInPath == "" {
		return DefaultSignInPath
	}
	return g.SignInPath
}

func (g Guard) unauthorized() string {
	if g.UnauthorizedPath == "" {
		return DefaultUnauthorizedPath
	}
	return g.UnauthorizedPath
}

// Decide maps a session snapshot and the requested URI (path plus query)
// to a Decision.
func (g Guard) Decide(st session.State, requestURI string) Decision {
	switch st.Status() {
	case session.Anonymous:
		target := g.signIn()
		if requestURI != "" {
			target += "?" + url.Values{RedirectParam: {requestURI}}.Encode()
		}
		return Decision{Outcome: SignIn, Target: target}
	case session.AuthenticatedNoRole:
		return Decision{Outcome: Unauthorized, Target: g.unauthorized()}
	default:
		return Decision{Outcome: Allow}
	}
}

// Require is HTTP middleware applying Decide on every request.
func (g Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(session.StateFromContext(r.Context()), r.URL.RequestURI())
		g.record(d)
		if d.Outcome == Allow {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
			return
		}
		Redirect(w, r, d.Target)
	})
}

// Watch re-evaluates the guard whenever the store changes and calls
// navigate once as soon as the decision is no longer Allow. It returns nil
// after navigating, or the context error when ctx ends first.
func (g Guard) Watch(ctx context.Context, store *session.Store, requestURI string, navigate func(target string)) error {
	updates, cancel := store.Subscribe()
	defer cancel()

	if d := g.Decide(store.State(), requestURI); d.Outcome != Allow {
		navigate(d.Target)
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-updates:
			d := g.Decide(st, requestURI)
			if d.Outcome == Allow {
				continue
			}
			g.record(d)
			navigate(d.Target)
			return nil
		}
	}
}

// WatchHandler streams a server-sent redirect to an open page once its
// session stops satisfying the guard. The page passes its own location in
// the path query parameter.
func (g Guard) WatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestURI := SafeRedirect(r.URL.Query().Get("path"), "/")
		// The stream outlives the server write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		sse := datastar.NewSSE(w, r)
		navigate := func(target string) {
			if err := sse.Redirect(target); err != nil && g.Logger != nil {
				g.Logger.Warn("session watch redirect", slog.Any("error", err))
			}
		}
		store := session.StoreFromContext(r.Context())
		if store == nil {
			navigate(g.Decide(session.State{}, requestURI).Target)
			return
		}
		_ = g.Watch(r.Context(), store, requestURI, navigate)
	}
}

func (g Guard) record(d Decision) {
	if g.Metrics != nil {
		g.Metrics.GuardDecision(d.Outcome.String())
	}
}

// Redirect sends the browser to target: a server-sent redirect for
// Datastar requests, a 303 otherwise.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isDatastar(r) {
		_ = datastar.NewSSE(w, r).Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// SafeRedirect returns raw when it is a local absolute path and fallback
// otherwise, so a redirect parameter cannot send users off-site.
func SafeRedirect(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}
