package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MarkFilter narrows the marks listed for one ticket.
type MarkFilter struct {
	TicketID      string
	SupportUserID *string
	Status        *domain.MarkStatus
	Limit         int
	Offset        int
}

// MarkRepository persists support marks.
type MarkRepository interface {
	Create(ctx context.Context, mark *domain.SupportTicketMark) error
	Update(ctx context.Context, mark *domain.SupportTicketMark) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SupportTicketMark, error)
	ListByTicket(ctx context.Context, filter MarkFilter) ([]domain.SupportTicketMark, int, error)
}

type markRepository struct {
	pool *pgxpool.Pool
}

// NewMarkRepository builds repository.
func NewMarkRepository(pool *pgxpool.Pool) MarkRepository {
	return &markRepository{pool: pool}
}

const markColumns = `id::text, ticket_id::text, support_user_id::text, support_status, comment, created_at`

func (r *markRepository) Create(ctx context.Context, mark *domain.SupportTicketMark) error {
	const query = `
        INSERT INTO support_ticket_marks (ticket_id, support_user_id, support_status, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, query,
		mark.TicketID,
		mark.SupportUserID,
		mark.Status,
		mark.Comment,
	).Scan(&mark.ID, &mark.CreatedAt)
	return translate(err)
}

func (r *markRepository) Update(ctx context.Context, mark *domain.SupportTicketMark) error {
	const query = `UPDATE support_ticket_marks SET support_status=$1, comment=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, mark.Status, mark.Comment, mark.ID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *markRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM support_ticket_marks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *markRepository) GetByID(ctx context.Context, id string) (*domain.SupportTicketMark, error) {
	mark, err := scanMark(r.pool.QueryRow(ctx, `SELECT `+markColumns+` FROM support_ticket_marks WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return mark, nil
}

// ListByTicket returns marks newest first.
func (r *markRepository) ListByTicket(ctx context.Context, filter MarkFilter) ([]domain.SupportTicketMark, int, error) {
	clauses := []string{"ticket_id=$1"}
	args := []any{filter.TicketID}

	if filter.SupportUserID != nil {
		args = append(args, *filter.SupportUserID)
		clauses = append(clauses, fmt.Sprintf("support_user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("support_status=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM support_ticket_marks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM support_ticket_marks WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		markColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.SupportTicketMark{}
	for rows.Next() {
		mark, err := scanMark(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *mark)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func scanMark(row pgx.Row) (*domain.SupportTicketMark, error) {
	var mark domain.SupportTicketMark
	if err := row.Scan(
		&mark.ID,
		&mark.TicketID,
		&mark.SupportUserID,
		&mark.Status,
		&mark.Comment,
		&mark.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &mark, nil
}
