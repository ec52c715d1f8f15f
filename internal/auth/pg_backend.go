package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// RoleSource resolves the role assigned to a user. rbac.Service satisfies it.
type RoleSource interface {
	RoleForUser(ctx context.Context, userID int64) (*rbac.Role, error)
}

// PGBackend authenticates against the users table and issues opaque tokens
// stored in auth_sessions.
type PGBackend struct {
	repo     Repository
	roles    RoleSource
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

// NewPGBackend constructs a PGBackend issuing tokens valid for ttl.
func NewPGBackend(repo Repository, roles RoleSource, ttl time.Duration) *PGBackend {
	return &PGBackend{
		repo:     repo,
		roles:    roles,
		ttl:      ttl,
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
	}
}

// Login validates email/password credentials and issues a token.
func (b *PGBackend) Login(ctx context.Context, email, password string) (session.User, string, error) {
	acc, err := b.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return session.User{}, "", ErrInvalidCredentials
		}
		return session.User{}, "", err
	}
	if !acc.IsActive {
		return session.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return session.User{}, "", ErrInvalidCredentials
	}

	token, err := b.issue(ctx, acc.ID)
	if err != nil {
		return session.User{}, "", err
	}
	user, err := b.user(ctx, acc)
	if err != nil {
		return session.User{}, "", err
	}
	return user, token, nil
}

func (b *PGBackend) issue(ctx context.Context, userID int64) (string, error) {
	info := clientInfoFrom(ctx)
	now := b.now()
	for attempt := 0; attempt < 2; attempt++ {
		rec := SessionRecord{
			Token:     b.newToken(),
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(b.ttl),
			IP:        info.ip,
			UserAgent: info.userAgent,
		}
		err := b.repo.CreateSession(ctx, rec)
		if err == nil {
			return rec.Token, nil
		}
		if !errors.Is(err, ErrTokenCollision) {
			return "", err
		}
	}
	return "", ErrTokenCollision
}

// Me resolves the user owning token. Unknown, expired and deactivated
// tokens yield ErrUnauthenticated.
func (b *PGBackend) Me(ctx context.Context, token string) (session.User, error) {
	rec, err := b.repo.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return session.User{}, ErrUnauthenticated
		}
		return session.User{}, err
	}
	if !rec.ExpiresAt.After(b.now()) {
		return session.User{}, ErrUnauthenticated
	}
	acc, err := b.repo.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return session.User{}, ErrUnauthenticated
		}
		return session.User{}, err
	}
	if !acc.IsActive {
		return session.User{}, ErrUnauthenticated
	}
	return b.user(ctx, acc)
}

// Logout revokes token.
func (b *PGBackend) Logout(ctx context.Context, token string) error {
	return b.repo.DeleteSession(ctx, token)
}

// PruneExpired deletes tokens that are past their expiry.
func (b *PGBackend) PruneExpired(ctx context.Context) (int64, error) {
	return b.repo.DeleteExpiredSessions(ctx, b.now())
}

func (b *PGBackend) user(ctx context.Context, acc *Account) (session.User, error) {
	user := session.User{ID: acc.ID, Email: acc.Email, Name: acc.Name}
	if b.roles == nil {
		return user, nil
	}
	role, err := b.roles.RoleForUser(ctx, acc.ID)
	if err != nil {
		return session.User{}, fmt.Errorf("auth: load role: %w", err)
	}
	user.Role = role
	return user, nil
}

var _ Backend = (*PGBackend)(nil)
