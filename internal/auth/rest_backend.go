package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/odyssey-erp/odyssey-console/internal/session"
)

const defaultRetryWaitMax = 2 * time.Second

// RESTConfig configures RESTBackend.
type RESTConfig struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// RESTBackend talks to an external authentication API:
//
//	POST {base}/auth/login   {"email","password"} -> {"user","token"}
//	GET  {base}/auth/me      Authorization: Bearer  -> {"user"}
//	POST {base}/auth/logout  Authorization: Bearer
type RESTBackend struct {
	client  *http.Client
	baseURL string
}

// NewRESTBackend builds a RESTBackend retrying connection failures and 5xx
// responses.
func NewRESTBackend(cfg RESTConfig) *RESTBackend {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = defaultRetryWaitMax
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}
	retryClient.Logger = nil

	return &RESTBackend{
		client:  retryClient.StandardClient(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

type meResponse struct {
	User session.User `json:"user"`
}

// Login exchanges credentials for a user and token.
func (b *RESTBackend) Login(ctx context.Context, email, password string) (session.User, string, error) {
	body, err := json.Marshal(loginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return session.User{}, "", fmt.Errorf("auth: encode login: %w", err)
	}
	var out loginResponse
	status, err := b.do(ctx, http.MethodPost, "/auth/login", "", body, &out)
	if err != nil {
		return session.User{}, "", err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return session.User{}, "", ErrInvalidCredentials
	case status != http.StatusOK:
		return session.User{}, "", fmt.Errorf("auth: login: unexpected status %d", status)
	case out.Token == "":
		return session.User{}, "", fmt.Errorf("auth: login: %w", session.ErrEmptyToken)
	}
	return out.User, out.Token, nil
}

// Me fetches the user owning token.
func (b *RESTBackend) Me(ctx context.Context, token string) (session.User, error) {
	var out meResponse
	status, err := b.do(ctx, http.MethodGet, "/auth/me", token, nil, &out)
	if err != nil {
		return session.User{}, err
	}
	switch status {
	case http.StatusOK:
		return out.User, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return session.User{}, ErrUnauthenticated
	default:
		return session.User{}, fmt.Errorf("auth: me: unexpected status %d", status)
	}
}

// Logout revokes token. A token the API already rejects counts as revoked.
func (b *RESTBackend) Logout(ctx context.Context, token string) error {
	status, err := b.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusUnauthorized {
		return fmt.Errorf("auth: logout: unexpected status %d", status)
	}
	return nil
}

func (b *RESTBackend) do(ctx context.Context, method, path, token string, body []byte, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("auth: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: %s %s: status %d", ErrBackendUnavailable, method, path, resp.StatusCode)
	}
	if out == nil || resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, fmt.Errorf("auth: decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}

var _ Backend = (*RESTBackend)(nil)
