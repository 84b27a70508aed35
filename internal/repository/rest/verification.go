package rest

import (
	"context"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/repository"

	"github.com/supabase-community/postgrest-go"
)

type verificationRecord struct {
	ID         string     `json:"id"`
	Telegram   string     `json:"telegram"`
	CodeHash   string     `json:"code_hash"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

type verificationRepository struct {
	client *postgrest.Client
}

func NewVerificationRepository(client *postgrest.Client) repository.VerificationRepository {
	return &verificationRepository{client: client}
}

func (r *verificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	var rows []verificationRecord
	_, err := r.client.From(tableVerifications).
		Insert(map[string]any{
			"telegram":   v.Telegram,
			"code_hash":  v.CodeHash,
			"expires_at": v.ExpiresAt.UTC().Format(time.RFC3339Nano),
		}, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	if err != nil {
		return translate(err)
	}
	if len(rows) > 0 {
		v.ID = rows[0].ID
		v.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

func (r *verificationRepository) ListUsable(ctx context.Context, telegram string) ([]domain.Verification, error) {
	var rows []verificationRecord
	_, err := r.client.From(tableVerifications).Select("*", "", false).
		Eq("telegram", telegram).
		Is("consumed_at", "null").
		Gt("expires_at", time.Now().UTC().Format(time.RFC3339)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(5, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]domain.Verification, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Verification{
			ID:        row.ID,
			Telegram:  row.Telegram,
			CodeHash:  row.CodeHash,
			CreatedAt: row.CreatedAt,
			ExpiresAt: row.ExpiresAt,
		})
	}
	return out, nil
}

func (r *verificationRepository) Consume(ctx context.Context, id string) error {
	var rows []verificationRecord
	_, err := r.client.From(tableVerifications).
		Update(map[string]any{"consumed_at": time.Now().UTC().Format(time.RFC3339Nano)}, returnRepresentation, "").
		Eq("id", id).
		Is("consumed_at", "null").
		ExecuteTo(&rows)
	if err != nil {
		return translate(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: verification %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *verificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var rows []verificationRecord
	_, err := r.client.From(tableVerifications).
		Delete(returnRepresentation, "").
		Lt("expires_at", before.UTC().Format(time.RFC3339Nano)).
		ExecuteTo(&rows)
	if err != nil {
		return 0, translate(err)
	}
	return int64(len(rows)), nil
}
