package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// ErrTokenCollision reports an auth_sessions primary key conflict.
var ErrTokenCollision = errors.New("auth: token already issued")

// Repository defines persistence operations for the Postgres backend.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	CreateSession(ctx context.Context, rec SessionRecord) error
	FindSession(ctx context.Context, token string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// Querier is the subset of pgxpool.Pool used by PGRepository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db Querier) *PGRepository {
	return &PGRepository{db: db}
}

const accountColumns = `id, email, name, password_hash, is_active, created_at, updated_at`

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findAccount(ctx, `SELECT `+accountColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return r.findAccount(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGRepository) findAccount(ctx context.Context, query string, arg any) (*Account, error) {
	var (
		acc       Account
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &acc.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find account: %w", err)
	}
	acc.CreatedAt = createdAt.Time
	acc.UpdatedAt = updatedAt.Time
	return &acc, nil
}

// CreateSession persists a newly issued token.
func (r *PGRepository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.db.Exec(ctx, `INSERT INTO auth_sessions (id, user_id, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Token,
		rec.UserID,
		pgtype.Timestamptz{Time: rec.CreatedAt.UTC(), Valid: true},
		pgtype.Timestamptz{Time: rec.ExpiresAt.UTC(), Valid: true},
		pgtype.Text{String: rec.IP, Valid: rec.IP != ""},
		pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""},
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTokenCollision
		}
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// FindSession loads an issued token.
func (r *PGRepository) FindSession(ctx context.Context, token string) (*SessionRecord, error) {
	var (
		rec       = SessionRecord{Token: token}
		createdAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
		ip        pgtype.Text
		ua        pgtype.Text
	)
	err := r.db.QueryRow(ctx, `SELECT user_id, created_at, expires_at, ip, user_agent FROM auth_sessions WHERE id = $1`, token).
		Scan(&rec.UserID, &createdAt, &expiresAt, &ip, &ua)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find session: %w", err)
	}
	rec.CreatedAt = createdAt.Time
	rec.ExpiresAt = expiresAt.Time
	rec.IP = ip.String
	rec.UserAgent = ua.String
	return &rec, nil
}

// DeleteSession removes an issued token. Deleting an unknown token is not
// an error.
func (r *PGRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, token); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes tokens that expired before the cutoff.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, pgtype.Timestamptz{Time: before.UTC(), Valid: true})
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
