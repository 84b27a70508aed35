package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"

	"github.com/lib/pq"
)

const paymentColumns = `id::text, order_id, amount, COALESCE(gateway, ''), status, COALESCE(telegram_chat_id, ''),
	COALESCE(member_id::text, ''), COALESCE(txn_id, ''), COALESCE(notes, ''), COALESCE(return_url, ''),
	COALESCE(provider_status, ''), created_at, status_changed_at`

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Gateway, &p.Status, &p.TelegramChatID,
		&p.MemberID, &p.TxnID, &p.Notes, &p.ReturnURL, &p.ProviderStatus, &p.CreatedAt, &p.StatusChangedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (order_id, amount, gateway, status, telegram_chat_id, member_id, notes, return_url)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id::text, created_at, status_changed_at`
	logger.StoreCall("INSERT", "payments", "orderID", p.OrderID)

	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	err := r.db.QueryRowContext(ctx, query,
		p.OrderID, p.Amount, nullIfEmpty(p.Gateway), p.Status, nullIfEmpty(p.TelegramChatID),
		nullIfEmpty(p.MemberID), nullIfEmpty(p.Notes), nullIfEmpty(p.ReturnURL),
	).Scan(&p.ID, &p.CreatedAt, &p.StatusChangedAt)

	switch pqCode(err) {
	case codeUniqueViolation:
		err = fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, p.OrderID)
	case codeForeignKeyViolation, codeInvalidText:
		err = fmt.Errorf("%w: member %s", domain.ErrNotFound, p.MemberID)
	default:
		if err != nil {
			err = translate(err)
		}
	}
	logger.StoreResult("INSERT", 1, err, "paymentID", p.ID)
	return err
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *paymentRepository) SetStatus(ctx context.Context, id string, status domain.PaymentStatus, txnID string) (*domain.Payment, error) {
	query := `UPDATE payments SET status = $1,
	              status_changed_at = CASE WHEN status = $1 THEN status_changed_at ELSE NOW() END,
	              txn_id = COALESCE(NULLIF($2, ''), txn_id)
	          WHERE id = $3 AND status = ANY($4) RETURNING ` + paymentColumns
	logger.StoreCall("UPDATE", "payments.status", "paymentID", id, "status", status)

	allowed := domain.StatusStrings(status.AllowedPredecessors())
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, status, txnID, id, pq.Array(allowed)))
	if errors.Is(err, sql.ErrNoRows) {
		if current, getErr := r.GetByID(ctx, id); getErr != nil {
			err = getErr
		} else {
			err = fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidTransition, id, current.Status)
		}
	} else if err != nil {
		err = translate(err)
	}
	logger.StoreResult("UPDATE", 1, err, "paymentID", id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Payment, error) {
	query := `UPDATE payments SET telegram_chat_id = $1 WHERE id = $2 RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, chatID, id))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *paymentRepository) LinkMembership(ctx context.Context, id, memberID string) (*domain.Payment, error) {
	query := `UPDATE payments SET member_id = $1 WHERE id = $2 RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, memberID, id))
	if code := pqCode(err); code == codeForeignKeyViolation || code == codeInvalidText {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *paymentRepository) SetProviderStatus(ctx context.Context, id, providerStatus, txnID string) (*domain.Payment, error) {
	query := `UPDATE payments SET provider_status = $1, txn_id = COALESCE(NULLIF($2, ''), txn_id)
	          WHERE id = $3 RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, providerStatus, txnID, id))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *paymentRepository) List(ctx context.Context, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *paymentRepository) ListByStatusBefore(ctx context.Context, status domain.PaymentStatus, before time.Time, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	logger.StoreCall("SELECT", "payments", "status", status, "before", before)
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 AND status_changed_at < $2 ORDER BY status_changed_at ASC LIMIT $3`
	payments, err := r.query(ctx, query, string(status), before, limit)
	logger.StoreResult("SELECT", int64(len(payments)), err)
	return payments, err
}

func (r *paymentRepository) query(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, translate(err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return payments, nil
}
