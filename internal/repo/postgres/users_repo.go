package postgres

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/api/query"
	"github.com/wildtrek/tours/internal/domain"
)

const userCols = `id, name, email, photo, role, password_hash, password_changed_at,
password_reset_hash, password_reset_expires, active, created_at`

// userListFields is the filter/sort allow-list for admin user listings.
var userListFields = map[string]bool{
	"name": true, "email": true, "role": true, "createdAt": true, "id": true,
}

var userListCols = map[string]string{
	"name": "name", "email": "email", "role": "role", "createdAt": "created_at", "id": "id",
}

// userPatchCols is what an admin PATCH may touch; password columns are
// deliberately absent.
var userPatchCols = map[string]string{
	"name": "name", "email": "email", "photo": "photo", "role": "role", "active": "active",
}

type UsersRepo interface {
	Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindActiveByID(ctx context.Context, id int64) (*domain.User, error)
	FindByResetHash(ctx context.Context, resetHash string) (*domain.User, error)
	SetResetToken(ctx context.Context, id int64, resetHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, patch map[string]any) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) error

	// Generic store surface for the admin resource routes.
	List(ctx context.Context, opts query.ListOptions) ([]domain.User, error)
	Find(ctx context.Context, id int64) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, patch map[string]any) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserListFields exposes the allow-list to the handler layer.
func UserListFields() map[string]bool { return userListFields }

type UsersRepoImpl struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepoImpl { return &UsersRepoImpl{pool: pool} }

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordHash,
		&u.PasswordChangedAt, &u.PasswordResetHash, &u.PasswordResetExpires,
		&u.Active, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	const q = `
INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, name, email, passwordHash))
}

func (r *UsersRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *UsersRepoImpl) FindActiveByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// FindByResetHash matches a stored reset-token hash that has not expired yet.
func (r *UsersRepoImpl) FindByResetHash(ctx context.Context, resetHash string) (*domain.User, error) {
	const q = `
SELECT ` + userCols + `
FROM users
WHERE password_reset_hash = $1 AND password_reset_expires > now() AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, resetHash))
}

func (r *UsersRepoImpl) SetResetToken(ctx context.Context, id int64, resetHash string, expires time.Time) error {
	const q = `UPDATE users SET password_reset_hash = $2, password_reset_expires = $3 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, resetHash, expires)
	return err
}

func (r *UsersRepoImpl) ClearResetToken(ctx context.Context, id int64) error {
	const q = `UPDATE users SET password_reset_hash = NULL, password_reset_expires = NULL WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// SetPassword stores a new hash, clears any reset token and stamps
// password_changed_at slightly in the past so a token issued in the same
// second still verifies.
func (r *UsersRepoImpl) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `
UPDATE users
SET password_hash = $2,
    password_changed_at = now() - interval '1 second',
    password_reset_hash = NULL,
    password_reset_expires = NULL
WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	return err
}

func (r *UsersRepoImpl) UpdateProfile(ctx context.Context, id int64, patch map[string]any) (*domain.User, error) {
	return r.Update(ctx, id, patch)
}

// Deactivate is the soft delete behind DELETE /me.
func (r *UsersRepoImpl) Deactivate(ctx context.Context, id int64) error {
	const q = `UPDATE users SET active = false WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UsersRepoImpl) List(ctx context.Context, opts query.ListOptions) ([]domain.User, error) {
	q, args := appendListClauses(
		`SELECT `+userCols+` FROM users WHERE active`,
		opts, userListCols, nil, "created_at DESC",
	)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UsersRepoImpl) Find(ctx context.Context, id int64) (*domain.User, error) {
	return r.FindActiveByID(ctx, id)
}

// Insert is not supported; accounts are created through signup so the
// password pipeline cannot be bypassed.
func (r *UsersRepoImpl) Insert(ctx context.Context, _ *domain.User) (*domain.User, error) {
	return nil, apierror.New(http.StatusInternalServerError, apierror.CodeInternalError,
		"this route is not defined; please use /signup instead")
}

func (r *UsersRepoImpl) Update(ctx context.Context, id int64, patch map[string]any) (*domain.User, error) {
	q, args, ok := buildUpdate("users", patch, userPatchCols, id, userCols)
	if !ok {
		return r.FindActiveByID(ctx, id)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, args...))
}

func (r *UsersRepoImpl) Delete(ctx context.Context, id int64) error {
	// Admin deletes are soft too; history hangs off user rows.
	return r.Deactivate(ctx, id)
}
