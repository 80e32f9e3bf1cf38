// Package repotest provides in-memory repository implementations for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Store holds every table in memory and applies the same uniqueness and cascade
// rules as the Postgres schema.
type Store struct {
	mu       sync.Mutex
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	marks    map[string]domain.SupportTicketMark
	comments map[string]domain.Comment
	sessions map[string]string
	history  []domain.TicketHistory

	clock time.Time
}

// NewStore returns an empty store whose clock starts at a fixed instant.
func NewStore() *Store {
	return &Store{
		users:    map[string]domain.User{},
		tickets:  map[string]domain.Ticket{},
		marks:    map[string]domain.SupportTicketMark{},
		comments: map[string]domain.Comment{},
		sessions: map[string]string{},
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the clock so that inserts get strictly increasing timestamps.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Marks returns the mark repository view of the store.
func (s *Store) Marks() repository.MarkRepository { return &markRepo{s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() repository.CommentRepository { return &commentRepo{s} }

// History returns the ticket history repository.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepo{s} }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{s} }

// SetCreatedAt rewrites a ticket's creation time for date-range tests.
func (s *Store) SetCreatedAt(ticketID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[ticketID]; ok {
		t.CreatedAt = at
		s.tickets[ticketID] = t
	}
}

// SetDateJoined rewrites a user's join time for date-range tests.
func (s *Store) SetDateJoined(userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.DateJoined = at
		s.users[userID] = u
	}
}

func missingReference(name string) error {
	return apperrors.NewValidationError("referenced record does not exist", map[string]any{"constraint": name})
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = append([]string{}, t.AssignedTo...)
	if t.CompletedBy != nil {
		id := *t.CompletedBy
		t.CompletedBy = &id
	}
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		t.ClosedAt = &at
	}
	return t
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// sortBy orders items by a client ordering key, honouring a leading "-" for descending.
func sortBy[T any](items []T, key, fallback string, field func(T, string) string) {
	if key == "" {
		key = fallback
	}
	desc := strings.HasPrefix(key, "-")
	name := strings.TrimPrefix(key, "-")
	if field(*new(T), name) == "\x00" {
		desc = strings.HasPrefix(fallback, "-")
		name = strings.TrimPrefix(fallback, "-")
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := field(items[i], name), field(items[j], name)
		if desc {
			return a > b
		}
		return a < b
	})
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

type userRepo struct{ s *Store }

func (r *userRepo) checkUnique(u *domain.User) error {
	for _, existing := range r.s.users {
		if existing.ID == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return repository.DuplicateError("user", "username")
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.DuplicateError("user", "email")
		}
	}
	return nil
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(user); err != nil {
		return err
	}
	now := r.s.tick()
	user.ID = uuid.NewString()
	user.DateJoined = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = r.s.tick()
	user.DateJoined = existing.DateJoined
	r.s.users[user.ID] = *user
	if user.Role != domain.RoleSupport {
		for tid, t := range r.s.tickets {
			if t.IsAssigned(user.ID) {
				t.AssignedTo = without(t.AssignedTo, user.ID)
				r.s.tickets[tid] = t
			}
		}
	}
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	for tid, t := range r.s.tickets {
		if t.CreatedBy == id {
			r.s.deleteTicketLocked(tid)
			continue
		}
		t.AssignedTo = without(t.AssignedTo, id)
		if t.CompletedBy != nil && *t.CompletedBy == id {
			t.CompletedBy = nil
		}
		r.s.tickets[tid] = t
	}
	for mid, m := range r.s.marks {
		if m.SupportUserID == id {
			delete(r.s.marks, mid)
		}
	}
	for cid, c := range r.s.comments {
		if c.CreatedBy == id {
			r.s.deleteCommentLocked(cid)
		}
	}
	for i, h := range r.s.history {
		if h.ChangedBy != nil && *h.ChangedBy == id {
			r.s.history[i].ChangedBy = nil
		}
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.User{}
	for _, u := range r.s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.SearchTerm != nil && !contains(u.Username, *filter.SearchTerm) && !contains(u.Email, *filter.SearchTerm) {
			continue
		}
		result = append(result, u)
	}
	sortBy(result, filter.Ordering, "date_joined", func(u domain.User, key string) string {
		switch key {
		case "id":
			return u.ID
		case "username":
			return u.Username
		case "email":
			return u.Email
		case "role":
			return string(u.Role)
		case "date_joined":
			return stamp(u.DateJoined)
		}
		return "\x00"
	})
	return page(result, filter.Limit, filter.Offset), len(result), nil
}

func (r *userRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastLogin = &at
	r.s.users[id] = u
	return nil
}

func (r *userRepo) CountByActive(_ context.Context) (domain.UserActivityCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts domain.UserActivityCounts
	for _, u := range r.s.users {
		if u.IsActive {
			counts.Active++
		} else {
			counts.Inactive++
		}
	}
	return counts, nil
}

func (r *userRepo) CountJoinedBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for _, u := range r.s.users {
		if !u.DateJoined.Before(from) && !u.DateJoined.After(to) {
			total++
		}
	}
	return total, nil
}

func (r *userRepo) CountByRole(_ context.Context) (map[domain.Role]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.Role]int{}
	for _, role := range domain.Roles {
		counts[role] = 0
	}
	for _, u := range r.s.users {
		counts[u.Role]++
	}
	return counts, nil
}
