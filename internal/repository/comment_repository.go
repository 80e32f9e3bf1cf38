package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages the comment thread of a ticket.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Comment, int, error)
	ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error)
	Ancestors(ctx context.Context, id string) ([]string, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentColumns = `id::text, ticket_id::text, created_by::text, parent_id::text, comment_text, created_on`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, created_by, parent_id, comment_text)
        VALUES ($1,$2,$3,$4)
        RETURNING id::text, created_on`
	err := r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.CreatedBy,
		comment.ParentID,
		comment.Text,
	).Scan(&comment.ID, &comment.CreatedOn)
	return translate(err)
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	const query = `UPDATE comments SET parent_id=$1, comment_text=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, comment.ParentID, comment.Text, comment.ID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the comment; replies go with it through the foreign key cascade.
func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := scanComment(r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Comment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE ticket_id=$1`, ticketID).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset = normalizePage(limit, offset)
	const query = `
        SELECT ` + commentColumns + `
        FROM comments WHERE ticket_id=$1 ORDER BY created_on ASC, id ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments, err := scanComments(rows)
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListReplies returns direct children only.
func (r *commentRepository) ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error) {
	const query = `
        SELECT ` + commentColumns + `
        FROM comments WHERE parent_id=$1 ORDER BY created_on ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// Ancestors walks parent links upward from id, nearest first, excluding id itself.
func (r *commentRepository) Ancestors(ctx context.Context, id string) ([]string, error) {
	const query = `
        WITH RECURSIVE chain(id, parent_id, depth) AS (
            SELECT id, parent_id, 0 FROM comments WHERE id=$1
            UNION ALL
            SELECT c.id, c.parent_id, chain.depth + 1
            FROM comments c JOIN chain ON c.id = chain.parent_id
            WHERE chain.depth < 1000
        )
        SELECT id::text FROM chain WHERE depth > 0 ORDER BY depth`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var ancestor string
		if err := rows.Scan(&ancestor); err != nil {
			return nil, err
		}
		result = append(result, ancestor)
	}
	return result, rows.Err()
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.CreatedBy,
		&comment.ParentID,
		&comment.Text,
		&comment.CreatedOn,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}

func scanComments(rows pgx.Rows) ([]domain.Comment, error) {
	result := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}
