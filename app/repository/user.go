package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
)

const selectUserQuery = `
		SELECT id, first_name, last_name, email, username, password_hash, role, is_verified, verified_at,
		       verification_token, verification_token_expires, reset_token, reset_token_expires, created_at, updated_at
		FROM users`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, username, password_hash, role, is_verified,
		                   verification_token, verification_token_expires, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.VerificationToken,
		user.VerificationTokenExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, selectUserQuery+` WHERE LOWER(email) = LOWER(?)`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, selectUserQuery+` WHERE username = ?`, username)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	return r.findOne(ctx, selectUserQuery+` WHERE id = ?`, id)
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*entity.User, error) {
	return r.findOne(ctx, selectUserQuery+` WHERE verification_token = ?`, tokenHash)
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*entity.User, error) {
	return r.findOne(ctx, selectUserQuery+` WHERE reset_token = ?`, tokenHash)
}

// MarkVerified consumes the verification token only if it is still the
// user's live token. Callers must check the affected row count.
func (r *UserRepository) MarkVerified(ctx context.Context, userID uint64, tokenHash string, at time.Time) (int64, error) {
	query := `
		UPDATE users SET
			is_verified = 1,
			verified_at = ?,
			verification_token = NULL,
			verification_token_expires = NULL,
			updated_at = ?
		WHERE id = ? AND verification_token = ? AND is_verified = 0
	`
	result, err := r.db.ExecContext(ctx, query, at, at, userID, tokenHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetVerificationToken replaces the verification token of an unverified
// account. Zero rows affected means the account is already verified.
func (r *UserRepository) SetVerificationToken(ctx context.Context, userID uint64, tokenHash string, expires, now time.Time) (int64, error) {
	query := `
		UPDATE users SET
			verification_token = ?,
			verification_token_expires = ?,
			updated_at = ?
		WHERE id = ? AND is_verified = 0
	`
	result, err := r.db.ExecContext(ctx, query, tokenHash, expires, now, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID uint64, tokenHash string, expires, now time.Time) error {
	query := `
		UPDATE users SET
			reset_token = ?,
			reset_token_expires = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, tokenHash, expires, now, userID)
	return err
}

// ResetPassword replaces the password digest and clears the reset token in one
// statement, provided the token is still live at now.
func (r *UserRepository) ResetPassword(ctx context.Context, userID uint64, tokenHash, passwordHash string, now time.Time) (int64, error) {
	query := `
		UPDATE users SET
			password_hash = ?,
			reset_token = NULL,
			reset_token_expires = NULL,
			updated_at = ?
		WHERE id = ? AND reset_token = ? AND reset_token_expires >= ?
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now, userID, tokenHash, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID uint64, tokenHash string, now time.Time) error {
	query := `
		UPDATE users SET
			reset_token = NULL,
			reset_token_expires = NULL,
			updated_at = ?
		WHERE id = ? AND reset_token = ?
	`
	_, err := r.db.ExecContext(ctx, query, now, userID, tokenHash)
	return err
}

func (r *UserRepository) UpdateRole(ctx context.Context, email, role string, now time.Time) (int64, error) {
	query := `UPDATE users SET role = ?, updated_at = ? WHERE LOWER(email) = LOWER(?)`
	result, err := r.db.ExecContext(ctx, query, role, now, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	user := &entity.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.VerifiedAt,
		&user.VerificationToken,
		&user.VerificationTokenExpires,
		&user.ResetToken,
		&user.ResetTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
