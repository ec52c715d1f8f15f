package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/view"
)

type handlerEnv struct {
	handler  *Handler
	sessions *shared.SessionManager
	registry *session.Registry
	repo     *stubRepo
	redis    *miniredis.Miniredis
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	repo := newStubRepo(t, "correct horse", true)
	registry := session.NewRegistry(func(id string) *session.Store {
		return session.NewStore(sessions.Tokens(id))
	})
	backend := NewPGBackend(repo, roleMap{7: cashierRole()}, time.Hour)
	h := NewHandler(nil, backend, templates, sessions, shared.NewCSRFManager("csrfsecret"), registry, "")
	return &handlerEnv{handler: h, sessions: sessions, registry: registry, repo: repo, redis: mr}
}

// request attaches a fresh browser session and its console store.
func (e *handlerEnv) request(t *testing.T, method, target string, form url.Values) (*http.Request, *shared.Session) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess, err := e.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = session.ContextWithStore(ctx, e.registry.Get(sess.ID))
	return req.WithContext(ctx), sess
}

func TestSignInPage(t *testing.T) {
	env := newHandlerEnv(t)
	req, sess := env.request(t, http.MethodGet, "/sign-in?redirect=%2Fcustomers", nil)
	rr := httptest.NewRecorder()
	env.handler.showSignIn(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `name="redirect" value="/customers"`)
	assert.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestSignInPageDropsOffsiteRedirect(t *testing.T) {
	env := newHandlerEnv(t)
	req, _ := env.request(t, http.MethodGet, "/sign-in?redirect=https%3A%2F%2Fevil.example", nil)
	rr := httptest.NewRecorder()
	env.handler.showSignIn(rr, req)
	assert.Contains(t, rr.Body.String(), `name="redirect" value="/"`)
}

func TestSignInSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	form := url.Values{"email": {"kasir@odyssey.local"}, "password": {"correct horse"}, "redirect": {"/sales/orders?page=2"}}
	req, sess := env.request(t, http.MethodPost, "/sign-in", form)
	anonymousID := sess.ID
	rr := httptest.NewRecorder()
	env.handler.handleSignIn(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sales/orders?page=2", rr.Header().Get("Location"))
	assert.NotEqual(t, anonymousID, sess.ID, "session id rotates on sign-in")
	assert.Equal(t, 1, env.registry.Len())

	store := env.registry.Get(sess.ID)
	assert.Equal(t, session.AuthenticatedWithRole, store.Status())
	assert.Equal(t, "7", sess.User())

	persisted, err := env.sessions.Tokens(sess.ID).PersistedToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.State().Token, persisted)
	assert.Contains(t, env.repo.sessions, persisted)
}

func TestSignInInvalidCredentials(t *testing.T) {
	env := newHandlerEnv(t)
	form := url.Values{"email": {"kasir@odyssey.local"}, "password": {"wrong password"}}
	req, sess := env.request(t, http.MethodPost, "/sign-in", form)
	rr := httptest.NewRecorder()
	env.handler.handleSignIn(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")
	assert.Equal(t, session.Anonymous, env.registry.Get(sess.ID).Status())
}

func TestSignInValidation(t *testing.T) {
	env := newHandlerEnv(t)
	form := url.Values{"email": {"not-an-email"}, "password": {""}}
	req, _ := env.request(t, http.MethodPost, "/sign-in", form)
	rr := httptest.NewRecorder()
	env.handler.handleSignIn(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Error:Field validation for &#39;Email&#39;")
	assert.Empty(t, env.repo.sessions)
}

func TestSignInPageRedirectsAuthenticatedUser(t *testing.T) {
	env := newHandlerEnv(t)
	req, sess := env.request(t, http.MethodGet, "/sign-in?redirect=%2Freports", nil)
	user := session.User{ID: 7, Role: cashierRole()}
	require.NoError(t, env.registry.Get(sess.ID).SetCredentials(context.Background(), user, "tok"))

	rr := httptest.NewRecorder()
	env.handler.showSignIn(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/reports", rr.Header().Get("Location"))
}

func TestSignOut(t *testing.T) {
	env := newHandlerEnv(t)
	form := url.Values{"email": {"kasir@odyssey.local"}, "password": {"correct horse"}}
	req, sess := env.request(t, http.MethodPost, "/sign-in", form)
	env.handler.handleSignIn(httptest.NewRecorder(), req)
	store := env.registry.Get(sess.ID)
	token := store.State().Token
	require.NotEmpty(t, token)

	updates, cancel := store.Subscribe()
	defer cancel()

	out := httptest.NewRequest(http.MethodPost, "/sign-out", nil)
	ctx := shared.ContextWithSession(out.Context(), sess)
	ctx = session.ContextWithStore(ctx, store)
	rr := httptest.NewRecorder()
	env.handler.handleSignOut(rr, out.WithContext(ctx))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sign-in", rr.Header().Get("Location"))
	assert.Equal(t, session.Anonymous, store.Status())
	assert.NotContains(t, env.repo.sessions, token)
	assert.Equal(t, 0, env.registry.Len())

	select {
	case st := <-updates:
		assert.Equal(t, session.Anonymous, st.Status())
	default:
		t.Fatal("open pages were not notified")
	}
}
