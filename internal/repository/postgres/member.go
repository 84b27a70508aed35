package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"

	"github.com/lib/pq"
)

const memberColumns = `id::text, COALESCE(sponsor_id::text, ''), COALESCE(position, ''), COALESCE(name, ''),
	COALESCE(username, ''), COALESCE(phone, ''), COALESCE(telegram_chat_id, ''), status, level,
	COALESCE(left_child_id::text, ''), COALESCE(right_child_id::text, ''), created_at`

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

func scanMember(row rowScanner) (*domain.Member, error) {
	m := &domain.Member{}
	err := row.Scan(&m.ID, &m.SponsorID, &m.Position, &m.Name, &m.Username, &m.Phone, &m.TelegramChatID,
		&m.Status, &m.Level, &m.LeftChildID, &m.RightChildID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) CreatePending(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (sponsor_id, position, name, username, phone, telegram_chat_id, status, level)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id::text, created_at`
	logger.StoreCall("INSERT", "members", "sponsorID", m.SponsorID, "position", m.Position)

	m.Status = domain.MemberStatusPending
	err := r.db.QueryRowContext(ctx, query,
		nullIfEmpty(m.SponsorID), nullIfEmpty(string(m.Position)), nullIfEmpty(m.Name), nullIfEmpty(m.Username),
		nullIfEmpty(m.Phone), nullIfEmpty(m.TelegramChatID), m.Status, m.Level,
	).Scan(&m.ID, &m.CreatedAt)

	switch pqCode(err) {
	case codeUniqueViolation:
		err = fmt.Errorf("%w: %s slot of sponsor %s", domain.ErrSlotConflict, m.Position, m.SponsorID)
	case codeForeignKeyViolation, codeInvalidText:
		err = fmt.Errorf("%w: %s", domain.ErrSponsorNotFound, m.SponsorID)
	default:
		if err != nil {
			err = translate(err)
		}
	}
	logger.StoreResult("INSERT", 1, err, "memberID", m.ID)
	return err
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (r *memberRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(translate(err), domain.ErrNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return m, nil
}

func (r *memberRepository) FindPendingBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
	          WHERE sponsor_id = $1 AND position = $2 AND status = 'pending'
	          ORDER BY created_at LIMIT 1`
	return r.findOne(ctx, query, sponsorID, pos)
}

func (r *memberRepository) FindOpenBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
	          WHERE sponsor_id = $1 AND position = $2 AND status <> 'rejected'
	          ORDER BY created_at LIMIT 1`
	return r.findOne(ctx, query, sponsorID, pos)
}

func (r *memberRepository) FindPendingByChatIdentity(ctx context.Context, chatID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members
	          WHERE telegram_chat_id = $1 AND status = 'pending'
	          ORDER BY created_at DESC LIMIT 1`
	return r.findOne(ctx, query, chatID)
}

func (r *memberRepository) SetStatus(ctx context.Context, id string, status domain.MemberStatus) (*domain.Member, error) {
	allowed := make([]string, 0, 2)
	for _, s := range status.AllowedPredecessors() {
		allowed = append(allowed, string(s))
	}
	query := `UPDATE members SET status = $1 WHERE id = $2 AND status = ANY($3) RETURNING ` + memberColumns
	logger.StoreCall("UPDATE", "members.status", "memberID", id, "status", status)

	m, err := scanMember(r.db.QueryRowContext(ctx, query, status, id, pq.Array(allowed)))
	if errors.Is(err, sql.ErrNoRows) {
		// Either the row is missing or the guard rejected the write.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			err = getErr
		} else {
			err = fmt.Errorf("%w: member %s to %s", domain.ErrInvalidTransition, id, status)
		}
	} else if err != nil {
		err = translate(err)
	}
	logger.StoreResult("UPDATE", 1, err, "memberID", id)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Member, error) {
	query := `UPDATE members SET telegram_chat_id = $1 WHERE id = $2 RETURNING ` + memberColumns
	m, err := scanMember(r.db.QueryRowContext(ctx, query, chatID, id))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (r *memberRepository) AttachChild(ctx context.Context, sponsorID string, pos domain.Position, childID string) (*domain.Member, error) {
	var column string
	switch pos {
	case domain.PositionLeft:
		column = "left_child_id"
	case domain.PositionRight:
		column = "right_child_id"
	default:
		return nil, fmt.Errorf("%w: position %q", domain.ErrInvalidInput, pos)
	}

	query := fmt.Sprintf(`UPDATE members SET %[1]s = $1 WHERE id = $2 AND (%[1]s IS NULL OR %[1]s = $1) RETURNING `+memberColumns, column)
	logger.StoreCall("UPDATE", "members."+column, "sponsorID", sponsorID, "childID", childID)

	m, err := scanMember(r.db.QueryRowContext(ctx, query, childID, sponsorID))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, sponsorID); errors.Is(getErr, domain.ErrNotFound) {
			err = fmt.Errorf("%w: %s", domain.ErrSponsorNotFound, sponsorID)
		} else if getErr != nil {
			err = getErr
		} else {
			err = fmt.Errorf("%w: %s slot of sponsor %s", domain.ErrSlotConflict, pos, sponsorID)
		}
	} else if err != nil {
		err = translate(err)
	}
	logger.StoreResult("UPDATE", 1, err, "sponsorID", sponsorID)
	if err != nil {
		return nil, err
	}
	return m, nil
}
