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

// UserFilter captures admin directory search parameters.
type UserFilter struct {
	Role       *domain.Role
	IsActive   *bool
	SearchTerm *string
	Ordering   string
	Limit      int
	Offset     int
}

// UserRepository defines persistence access for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	CountByActive(ctx context.Context) (domain.UserActivityCounts, error)
	CountJoinedBetween(ctx context.Context, from, to time.Time) (int, error)
	CountByRole(ctx context.Context) (map[domain.Role]int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id::text, username, email, password_hash, role, is_active, date_joined, last_login, updated_at`

var userOrdering = map[string]string{
	"id":          "id",
	"username":    "username",
	"email":       "email",
	"role":        "role",
	"date_joined": "date_joined",
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id::text, date_joined, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.DateJoined, &user.UpdatedAt)
	return translate(err)
}

// Update persists the user. Leaving the SUPPORT role drops every ticket assignment
// in the same transaction, since only support users may be assignees.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, email=$2, password_hash=$3, role=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.IsActive,
			user.ID,
		).Scan(&user.UpdatedAt); err != nil {
			return err
		}
		if user.Role == domain.RoleSupport {
			return nil
		}
		_, err := tx.Exec(ctx, `DELETE FROM ticket_assignees WHERE user_id=$1`, user.ID)
		return err
	})
	return translate(err)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(username) LIKE %s OR LOWER(email) LIKE %s)", placeholder, placeholder))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		userColumns, where, orderBy(filter.Ordering, userOrdering, "date_joined ASC"), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) CountByActive(ctx context.Context) (domain.UserActivityCounts, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE is_active), COUNT(*) FILTER (WHERE NOT is_active)
        FROM users`
	var counts domain.UserActivityCounts
	err := r.pool.QueryRow(ctx, query).Scan(&counts.Active, &counts.Inactive)
	return counts, err
}

func (r *userRepository) CountJoinedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE date_joined >= $1 AND date_joined <= $2`, from, to,
	).Scan(&total)
	return total, err
}

func (r *userRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Role]int, len(domain.Roles))
	for _, role := range domain.Roles {
		counts[role] = 0
	}
	for rows.Next() {
		var (
			role  domain.Role
			total int
		)
		if err := rows.Scan(&role, &total); err != nil {
			return nil, err
		}
		counts[role] = total
	}
	return counts, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.DateJoined,
		&user.LastLogin,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}
