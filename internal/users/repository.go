package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-console/internal/platform/db"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users with their role name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, COALESCE(r.name, ''), u.is_active, u.created_at, u.updated_at
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts an account and links its role in one transaction.
func (r *Repository) Create(ctx context.Context, acc NewAccount) (User, error) {
	u := User{Email: acc.Email, Name: acc.Name, Role: acc.Role, IsActive: true}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		roleID, err := roleID(ctx, tx, acc.Role)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`, acc.Email, acc.Name, acc.PasswordHash, roleID).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrEmailTaken
			}
			return fmt.Errorf("users: insert: %w", err)
		}
		return nil
	})
	return u, err
}

// AssignRole replaces the role of userID. An empty role removes it.
func (r *Repository) AssignRole(ctx context.Context, userID int64, role string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		id, err := roleID(ctx, tx, role)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET role_id = $1, updated_at = now() WHERE id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("users: assign role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func roleID(ctx context.Context, tx pgx.Tx, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownRole
		}
		return nil, fmt.Errorf("users: find role: %w", err)
	}
	return &id, nil
}
