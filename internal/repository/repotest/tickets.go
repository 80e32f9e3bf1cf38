package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var priorityRank = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:    "0",
	domain.TicketPriorityMedium: "1",
	domain.TicketPriorityHigh:   "2",
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) check(t *domain.Ticket) error {
	for _, existing := range r.s.tickets {
		if existing.ID != t.ID && existing.Title == t.Title {
			return repository.DuplicateError("ticket", "title")
		}
	}
	if _, ok := r.s.users[t.CreatedBy]; !ok {
		return missingReference("tickets_created_by_fkey")
	}
	if t.CompletedBy != nil {
		if _, ok := r.s.users[*t.CompletedBy]; !ok {
			return missingReference("tickets_completed_by_fkey")
		}
	}
	for _, id := range t.AssignedTo {
		if _, ok := r.s.users[id]; !ok {
			return missingReference("ticket_assignees_user_id_fkey")
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	result := []string{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.check(ticket); err != nil {
		return err
	}
	now := r.s.tick()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.AssignedTo = dedupe(ticket.AssignedTo)
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.check(ticket); err != nil {
		return err
	}
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = r.s.tick()
	ticket.AssignedTo = append([]string{}, existing.AssignedTo...)
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	r.s.deleteTicketLocked(id)
	return nil
}

func (s *Store) deleteTicketLocked(id string) {
	delete(s.tickets, id)
	for mid, m := range s.marks {
		if m.TicketID == id {
			delete(s.marks, mid)
		}
	}
	for cid, c := range s.comments {
		if c.TicketID == id {
			delete(s.comments, cid)
		}
	}
	kept := s.history[:0]
	for _, h := range s.history {
		if h.TicketID != id {
			kept = append(kept, h)
		}
	}
	s.history = kept
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneTicket(t)
	return &clone, nil
}

func (r *ticketRepo) GetByTitle(_ context.Context, title string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tickets {
		if t.Title == title {
			clone := cloneTicket(t)
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.Ticket{}
	for _, t := range r.s.tickets {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && !t.IsAssigned(*filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !oneOf(t.Status, filter.Statuses) {
			continue
		}
		if len(filter.Priorities) > 0 && !oneOf(t.Priority, filter.Priorities) {
			continue
		}
		if filter.SearchTerm != nil {
			match := contains(t.Title, *filter.SearchTerm)
			if filter.SearchDescription {
				match = match || contains(t.Description, *filter.SearchTerm)
			}
			if !match {
				continue
			}
		}
		result = append(result, cloneTicket(t))
	}
	sortBy(result, filter.Ordering, "created_at", func(t domain.Ticket, key string) string {
		switch key {
		case "id":
			return t.ID
		case "title":
			return t.Title
		case "status":
			return string(t.Status)
		case "priority":
			return priorityRank[t.Priority]
		case "created_at":
			return stamp(t.CreatedAt)
		case "updated_at":
			return stamp(t.UpdatedAt)
		}
		return "\x00"
	})
	return page(result, filter.Limit, filter.Offset), len(result), nil
}

func oneOf[T comparable](v T, set []T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

func (r *ticketRepo) AddAssignee(_ context.Context, ticketID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticketID]
	if !ok {
		return missingReference("ticket_assignees_ticket_id_fkey")
	}
	if _, ok := r.s.users[userID]; !ok {
		return missingReference("ticket_assignees_user_id_fkey")
	}
	if !t.IsAssigned(userID) {
		t.AssignedTo = append(t.AssignedTo, userID)
		r.s.tickets[ticketID] = t
	}
	return nil
}

func (r *ticketRepo) RemoveAssignee(_ context.Context, ticketID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticketID]
	if !ok {
		return nil
	}
	t.AssignedTo = without(t.AssignedTo, userID)
	r.s.tickets[ticketID] = t
	return nil
}

func (r *ticketRepo) ReplaceAssignees(_ context.Context, ticketID string, userIDs []string) (added, removed []string, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticketID]
	if !ok {
		return nil, nil, missingReference("ticket_assignees_ticket_id_fkey")
	}
	next := dedupe(userIDs)
	wanted := make(map[string]bool, len(next))
	for _, id := range next {
		if _, ok := r.s.users[id]; !ok {
			return nil, nil, missingReference("ticket_assignees_user_id_fkey")
		}
		wanted[id] = true
	}
	kept := []string{}
	for _, id := range t.AssignedTo {
		if wanted[id] {
			kept = append(kept, id)
		} else {
			removed = append(removed, id)
		}
	}
	for _, id := range next {
		if !t.IsAssigned(id) {
			kept = append(kept, id)
			added = append(added, id)
		}
	}
	t.AssignedTo = kept
	r.s.tickets[ticketID] = t
	return added, removed, nil
}

func without(ids []string, drop string) []string {
	kept := []string{}
	for _, id := range ids {
		if id != drop {
			kept = append(kept, id)
		}
	}
	return kept
}

func (r *ticketRepo) CountCreatedBetween(_ context.Context, after, before time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for _, t := range r.s.tickets {
		if t.CreatedAt.After(after) && t.CreatedAt.Before(before) {
			total++
		}
	}
	return total, nil
}

func (r *ticketRepo) MostActiveSupport(_ context.Context) ([]domain.SupportActivity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	best := 0
	for _, t := range r.s.tickets {
		if t.CompletedBy == nil {
			continue
		}
		counts[*t.CompletedBy]++
		if counts[*t.CompletedBy] > best {
			best = counts[*t.CompletedBy]
		}
	}
	result := []domain.SupportActivity{}
	for id, total := range counts {
		if total == best {
			result = append(result, domain.SupportActivity{UserID: id, Username: r.s.users[id].Username, Total: total})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}
