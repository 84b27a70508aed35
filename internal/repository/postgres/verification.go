package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

type verificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) repository.VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	query := `INSERT INTO verifications (telegram, code_hash, expires_at)
	          VALUES ($1, $2, $3) RETURNING id::text, created_at`
	err := r.db.QueryRowContext(ctx, query, v.Telegram, v.CodeHash, v.ExpiresAt).Scan(&v.ID, &v.CreatedAt)
	return translate(err)
}

func (r *verificationRepository) ListUsable(ctx context.Context, telegram string) ([]domain.Verification, error) {
	query := `SELECT id::text, telegram, code_hash, created_at, expires_at
	          FROM verifications
	          WHERE telegram = $1 AND consumed_at IS NULL AND expires_at > now()
	          ORDER BY created_at DESC LIMIT 5`
	rows, err := r.db.QueryContext(ctx, query, telegram)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		var v domain.Verification
		if err := rows.Scan(&v.ID, &v.Telegram, &v.CodeHash, &v.CreatedAt, &v.ExpiresAt); err != nil {
			return nil, translate(err)
		}
		out = append(out, v)
	}
	return out, translate(rows.Err())
}

func (r *verificationRepository) Consume(ctx context.Context, id string) error {
	query := `UPDATE verifications SET consumed_at = now() WHERE id = $1 AND consumed_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: verification %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *verificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	logger.StoreCall("DELETE", "verifications", "before", before)
	result, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at < $1`, before)
	if err != nil {
		logger.StoreResult("DELETE", 0, err)
		return 0, translate(err)
	}
	n, err := result.RowsAffected()
	logger.StoreResult("DELETE", n, err)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}
