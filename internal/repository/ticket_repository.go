package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list parameters shared by the user, support and admin views.
type TicketFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	// SearchDescription widens SearchTerm from title to title + description.
	SearchDescription bool
	Ordering          string
	Limit             int
	Offset            int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTitle(ctx context.Context, title string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	AddAssignee(ctx context.Context, ticketID, userID string) error
	RemoveAssignee(ctx context.Context, ticketID, userID string) error
	ReplaceAssignees(ctx context.Context, ticketID string, userIDs []string) (added, removed []string, err error)
	CountCreatedBetween(ctx context.Context, after, before time.Time) (int, error)
	MostActiveSupport(ctx context.Context) ([]domain.SupportActivity, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id::text, t.title, t.description, t.status, t.priority, t.created_by::text,
               ARRAY(SELECT a.user_id::text FROM ticket_assignees a
                     WHERE a.ticket_id = t.id ORDER BY a.assigned_at, a.user_id) AS assigned_to,
               t.completed_by::text, t.created_at, t.updated_at, t.closed_at
        FROM tickets t`

var ticketOrdering = map[string]string{
	"id":         "t.id",
	"status":     "t.status",
	"priority":   "CASE t.priority WHEN 'LOW' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END",
	"created_at": "t.created_at",
	"updated_at": "t.updated_at",
	"title":      "t.title",
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, created_by, completed_by, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id::text, created_at, updated_at`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.CreatedBy,
			ticket.CompletedBy,
			ticket.ClosedAt,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		return insertAssignees(ctx, tx, ticket.ID, ticket.AssignedTo)
	})
	return translate(err)
}

// Update persists the scalar columns. The assignee set is only changed through
// AddAssignee, RemoveAssignee and ReplaceAssignees; the stored set is read back.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            completed_by=$5, closed_at=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at,
            ARRAY(SELECT a.user_id::text FROM ticket_assignees a
                  WHERE a.ticket_id = tickets.id ORDER BY a.assigned_at, a.user_id)`

	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CompletedBy,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt, &ticket.AssignedTo)
	return translate(err)
}

// ReplaceAssignees makes userIDs the assignee set of the ticket and reports the
// difference against the previous set.
func (r *ticketRepository) ReplaceAssignees(ctx context.Context, ticketID string, userIDs []string) (added, removed []string, err error) {
	if userIDs == nil {
		userIDs = []string{}
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            DELETE FROM ticket_assignees
            WHERE ticket_id=$1 AND NOT (user_id = ANY($2::uuid[]))
            RETURNING user_id::text`, ticketID, userIDs)
		if err != nil {
			return err
		}
		if removed, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
            INSERT INTO ticket_assignees (ticket_id, user_id)
            SELECT $1, u FROM unnest($2::uuid[]) AS u
            ON CONFLICT DO NOTHING
            RETURNING user_id::text`, ticketID, userIDs)
		if err != nil {
			return err
		}
		added, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, nil, translate(err)
	}
	return added, removed, nil
}

func insertAssignees(ctx context.Context, tx pgx.Tx, ticketID string, userIDs []string) error {
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_assignees (ticket_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			ticketID, userID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetByTitle(ctx context.Context, title string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.title=$1`, title)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_assignees a WHERE a.ticket_id = t.id AND a.user_id=$%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		if filter.SearchDescription {
			clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
		} else {
			clauses = append(clauses, fmt.Sprintf("LOWER(t.title) LIKE %s", placeholder))
		}
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketSelect, where, orderBy(filter.Ordering, ticketOrdering, "t.created_at ASC"), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// AddAssignee is idempotent: a second take by the same user leaves one row.
func (r *ticketRepository) AddAssignee(ctx context.Context, ticketID, userID string) error {
	const query = `
        INSERT INTO ticket_assignees (ticket_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, ticketID, userID)
	return translate(err)
}

func (r *ticketRepository) RemoveAssignee(ctx context.Context, ticketID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ticket_assignees WHERE ticket_id=$1 AND user_id=$2`, ticketID, userID)
	return err
}

func (r *ticketRepository) CountCreatedBetween(ctx context.Context, after, before time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE created_at > $1 AND created_at < $2`, after, before,
	).Scan(&total)
	return total, err
}

// MostActiveSupport returns every user tied for the highest number of completed tickets.
func (r *ticketRepository) MostActiveSupport(ctx context.Context) ([]domain.SupportActivity, error) {
	const query = `
        WITH counts AS (
            SELECT completed_by, COUNT(*) AS total
            FROM tickets
            WHERE completed_by IS NOT NULL
            GROUP BY completed_by
        )
        SELECT c.completed_by::text, u.username, c.total
        FROM counts c
        JOIN users u ON u.id = c.completed_by
        WHERE c.total = (SELECT MAX(total) FROM counts)
        ORDER BY u.username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SupportActivity{}
	for rows.Next() {
		var activity domain.SupportActivity
		if err := rows.Scan(&activity.UserID, &activity.Username, &activity.Total); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CompletedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
