package auth

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown account, an
	// inactive account or a wrong password.
	ErrInvalidCredentials = shared.ErrInvalidCredentials
	// ErrUnauthenticated is returned by Me when the token is not (or no
	// longer) accepted.
	ErrUnauthenticated = session.ErrUnauthenticated
	// ErrBackendUnavailable wraps transport failures talking to the backend.
	ErrBackendUnavailable = errors.New("auth: backend unavailable")
)

// Backend is the authentication service the console signs in against.
// Me satisfies session.UserLoader.
type Backend interface {
	Login(ctx context.Context, email, password string) (session.User, string, error)
	Me(ctx context.Context, token string) (session.User, error)
	Logout(ctx context.Context, token string) error
}

// Account is a console user row.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRecord is an issued auth token.
type SessionRecord struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

type clientInfoKey struct{}

type clientInfo struct {
	ip, userAgent string
}

// WithClientInfo attaches the caller address and user agent recorded with
// issued tokens.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

func clientInfoFrom(ctx context.Context) clientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(clientInfo)
	return info
}
