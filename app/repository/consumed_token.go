package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
)

type ConsumedTokenRepository struct {
	db DBTX
}

func NewConsumedTokenRepository(db DBTX) *ConsumedTokenRepository {
	return &ConsumedTokenRepository{db: db}
}

func (r *ConsumedTokenRepository) Create(ctx context.Context, token *entity.ConsumedToken) error {
	query := `
		INSERT INTO consumed_tokens (token_hash, purpose, user_id, consumed_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, token.TokenHash, token.Purpose, token.UserID, token.ConsumedAt)
	return translateError(err)
}

func (r *ConsumedTokenRepository) Exists(ctx context.Context, tokenHash, purpose string) (bool, error) {
	query := `SELECT 1 FROM consumed_tokens WHERE token_hash = ? AND purpose = ? LIMIT 1`

	var one int
	err := r.db.QueryRowContext(ctx, query, tokenHash, purpose).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
