package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhive/tasks-api/internal"
)

const userColumns = "id, username, email, password_hash, first_name, last_name, is_active, created_at, updated_at"

// User represents the repository used for interacting with User records.
type User struct {
	pool *pgxpool.Pool
}

// NewUser instantiates the User repository.
func NewUser(pool *pgxpool.Pool) *User {
	return &User{
		pool: pool,
	}
}

// Create inserts a new user record; username and email collisions are conflicts.
func (u *User) Create(ctx context.Context, params internal.RegisterParams, passwordHash string) (internal.User, error) {
	defer newOTELSpan(ctx, "User.Create").End()

	user, err := scanUser(u.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		params.Username, params.Email, passwordHash, params.FirstName, params.LastName))
	if err != nil {
		return internal.User{}, translateError(err, "insert user")
	}

	return user, nil
}

// Find returns a user by id.
func (u *User) Find(ctx context.Context, id uuid.UUID) (internal.User, error) {
	defer newOTELSpan(ctx, "User.Find").End()

	return u.findBy(ctx, "id = $1", id)
}

// FindByUsername returns a user by username.
func (u *User) FindByUsername(ctx context.Context, username string) (internal.User, error) {
	defer newOTELSpan(ctx, "User.FindByUsername").End()

	return u.findBy(ctx, "username = $1", username)
}

func (u *User) findBy(ctx context.Context, where string, arg interface{}) (internal.User, error) {
	user, err := scanUser(u.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.User{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "user not found")
		}

		return internal.User{}, translateError(err, "select user")
	}

	return user, nil
}

// ListActive returns every active user, for the assignee picker.
func (u *User) ListActive(ctx context.Context) ([]internal.User, error) {
	defer newOTELSpan(ctx, "User.ListActive").End()

	rows, err := u.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active ORDER BY username ASC")
	if err != nil {
		return nil, translateError(err, "select users")
	}
	defer rows.Close()

	var res []internal.User

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translateError(err, "scan user")
		}

		res = append(res, user)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, "rows")
	}

	return res, nil
}

// Deactivate soft-deletes a user. Owned records are kept.
func (u *User) Deactivate(ctx context.Context, id uuid.UUID) error {
	defer newOTELSpan(ctx, "User.Deactivate").End()

	res, err := u.pool.Exec(ctx,
		"UPDATE users SET is_active = false, updated_at = now() WHERE id = $1", id)
	if err != nil {
		return translateError(err, "deactivate user")
	}

	if res.RowsAffected() == 0 {
		return internal.NewErrorf(internal.ErrorCodeNotFound, "user not found")
	}

	return nil
}

func scanUser(row pgx.Row) (internal.User, error) {
	var user internal.User

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return internal.User{}, err
	}

	return user, nil
}
