package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/auth-gateway/internal/apperror"
	"github.com/sakif/auth-gateway/internal/model"
	"github.com/sakif/auth-gateway/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const selectUser = `SELECT id, username, email, password_hash, created_at FROM users`

// Create inserts a new user. A taken email is rejected by the users_email_key
// constraint and reported as apperror.ErrDuplicateEmail.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("postgres: finding user by email: %w", err)
	}
	return u, nil
}

func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
