package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_by, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedBy,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
	return translate(err)
}

// ListByTicket returns entries oldest first.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id::text, ticket_id::text, changed_by::text, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedBy,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
