package rest

import (
	"context"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/repository"

	"github.com/supabase-community/postgrest-go"
)

type paymentRecord struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	Amount          float64   `json:"amount"`
	Gateway         *string   `json:"gateway"`
	Status          string    `json:"status"`
	TelegramChatID  *string   `json:"telegram_chat_id"`
	MemberID        *string   `json:"member_id"`
	TxnID           *string   `json:"txn_id"`
	Notes           *string   `json:"notes"`
	ReturnURL       *string   `json:"return_url"`
	ProviderStatus  *string   `json:"provider_status"`
	CreatedAt       time.Time `json:"created_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
}

func (r paymentRecord) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:              r.ID,
		OrderID:         r.OrderID,
		Amount:          r.Amount,
		Gateway:         str(r.Gateway),
		Status:          domain.PaymentStatus(r.Status),
		TelegramChatID:  str(r.TelegramChatID),
		MemberID:        str(r.MemberID),
		TxnID:           str(r.TxnID),
		Notes:           str(r.Notes),
		ReturnURL:       str(r.ReturnURL),
		ProviderStatus:  str(r.ProviderStatus),
		CreatedAt:       r.CreatedAt,
		StatusChangedAt: r.StatusChangedAt,
	}
}

type paymentRepository struct {
	client *postgrest.Client
}

func NewPaymentRepository(client *postgrest.Client) repository.PaymentRepository {
	return &paymentRepository{client: client}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	status := p.Status
	if status == "" {
		status = domain.PaymentStatusPending
	}
	insert := map[string]any{
		"order_id":         p.OrderID,
		"amount":           p.Amount,
		"gateway":          ptr(p.Gateway),
		"status":           status,
		"telegram_chat_id": ptr(p.TelegramChatID),
		"member_id":        ptr(p.MemberID),
		"notes":            ptr(p.Notes),
		"return_url":       ptr(p.ReturnURL),
	}
	var rows []paymentRecord
	_, err := r.client.From(tablePayments).
		Insert(insert, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	switch {
	case hasCode(err, "23505"):
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, p.OrderID)
	case hasCode(err, "23503"), hasCode(err, "22P02"):
		return fmt.Errorf("%w: member %s", domain.ErrNotFound, p.MemberID)
	case err != nil:
		return translate(err)
	case len(rows) == 0:
		return fmt.Errorf("%w: insert returned no row", domain.ErrStoreUnavailable)
	}
	*p = *rows[0].toDomain()
	return nil
}

func (r *paymentRepository) one(q *postgrest.FilterBuilder, what string) (*domain.Payment, error) {
	var rows []paymentRecord
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: payment %s", domain.ErrNotFound, what)
	}
	return rows[0].toDomain(), nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.one(r.client.From(tablePayments).Select("*", "", false).Eq("order_id", orderID), orderID)
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.one(r.client.From(tablePayments).Select("*", "", false).Eq("id", id), id)
}

// SetStatus writes status when the payment holds an allowed predecessor. A
// change of status stamps status_changed_at; rewriting the same status keeps it.
func (r *paymentRepository) SetStatus(ctx context.Context, id string, status domain.PaymentStatus, txnID string) (*domain.Payment, error) {
	var changing []string
	repeat := false
	for _, s := range status.AllowedPredecessors() {
		if s == status {
			repeat = true
			continue
		}
		changing = append(changing, string(s))
	}

	if len(changing) > 0 {
		update := map[string]any{"status": status, "status_changed_at": time.Now().UTC().Format(time.RFC3339Nano)}
		p, err := r.guardedStatus(id, update, txnID, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
			return q.In("status", changing)
		})
		if p != nil || err != nil {
			return p, err
		}
	}
	if repeat {
		p, err := r.guardedStatus(id, map[string]any{"status": status}, txnID, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
			return q.Eq("status", string(status))
		})
		if p != nil || err != nil {
			return p, err
		}
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidTransition, id, current.Status)
}

// guardedStatus applies update to the row when guard matches. A nil payment
// with a nil error means the guard matched nothing.
func (r *paymentRepository) guardedStatus(id string, update map[string]any, txnID string, guard func(*postgrest.FilterBuilder) *postgrest.FilterBuilder) (*domain.Payment, error) {
	if txnID != "" {
		update["txn_id"] = txnID
	}
	var rows []paymentRecord
	q := r.client.From(tablePayments).Update(update, returnRepresentation, "").Eq("id", id)
	if _, err := guard(q).ExecuteTo(&rows); err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (r *paymentRepository) update(id string, values map[string]any) (*domain.Payment, error) {
	return r.one(r.client.From(tablePayments).Update(values, returnRepresentation, "").Eq("id", id), id)
}

func (r *paymentRepository) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Payment, error) {
	return r.update(id, map[string]any{"telegram_chat_id": chatID})
}

func (r *paymentRepository) LinkMembership(ctx context.Context, id, memberID string) (*domain.Payment, error) {
	p, err := r.update(id, map[string]any{"member_id": memberID})
	if hasCode(err, "23503") {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, memberID)
	}
	return p, err
}

func (r *paymentRepository) SetProviderStatus(ctx context.Context, id, providerStatus, txnID string) (*domain.Payment, error) {
	values := map[string]any{"provider_status": providerStatus}
	if txnID != "" {
		values["txn_id"] = txnID
	}
	return r.update(id, values)
}

func (r *paymentRepository) List(ctx context.Context, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(r.client.From(tablePayments).Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, ""))
}

func (r *paymentRepository) ListByStatusBefore(ctx context.Context, status domain.PaymentStatus, before time.Time, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(r.client.From(tablePayments).Select("*", "", false).
		Eq("status", string(status)).
		Lt("status_changed_at", before.UTC().Format(time.RFC3339Nano)).
		Order("status_changed_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, ""))
}

func (r *paymentRepository) list(q *postgrest.FilterBuilder) ([]domain.Payment, error) {
	var rows []paymentRecord
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, translate(err)
	}
	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, *row.toDomain())
	}
	return payments, nil
}
