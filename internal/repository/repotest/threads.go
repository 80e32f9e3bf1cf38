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

type markRepo struct{ s *Store }

func (r *markRepo) Create(_ context.Context, mark *domain.SupportTicketMark) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[mark.TicketID]; !ok {
		return missingReference("support_ticket_marks_ticket_id_fkey")
	}
	if _, ok := r.s.users[mark.SupportUserID]; !ok {
		return missingReference("support_ticket_marks_support_user_id_fkey")
	}
	mark.ID = uuid.NewString()
	mark.CreatedAt = r.s.tick()
	r.s.marks[mark.ID] = *mark
	return nil
}

func (r *markRepo) Update(_ context.Context, mark *domain.SupportTicketMark) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.marks[mark.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Status = mark.Status
	existing.Comment = mark.Comment
	r.s.marks[mark.ID] = existing
	return nil
}

func (r *markRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.marks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.marks, id)
	return nil
}

func (r *markRepo) GetByID(_ context.Context, id string) (*domain.SupportTicketMark, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.marks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r *markRepo) ListByTicket(_ context.Context, filter repository.MarkFilter) ([]domain.SupportTicketMark, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.SupportTicketMark{}
	for _, m := range r.s.marks {
		if m.TicketID != filter.TicketID {
			continue
		}
		if filter.SupportUserID != nil && m.SupportUserID != *filter.SupportUserID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, filter.Limit, filter.Offset), len(result), nil
}

type commentRepo struct{ s *Store }

func (r *commentRepo) checkParent(c *domain.Comment) error {
	if c.ParentID == nil {
		return nil
	}
	parent, ok := r.s.comments[*c.ParentID]
	if !ok || parent.TicketID != c.TicketID {
		return missingReference("comments_parent_fkey")
	}
	return nil
}

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return missingReference("comments_ticket_id_fkey")
	}
	if _, ok := r.s.users[comment.CreatedBy]; !ok {
		return missingReference("comments_created_by_fkey")
	}
	if err := r.checkParent(comment); err != nil {
		return err
	}
	comment.ID = uuid.NewString()
	comment.CreatedOn = r.s.tick()
	r.s.comments[comment.ID] = *comment
	return nil
}

func (r *commentRepo) Update(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.comments[comment.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkParent(comment); err != nil {
		return err
	}
	existing.ParentID = comment.ParentID
	existing.Text = comment.Text
	r.s.comments[comment.ID] = existing
	return nil
}

func (r *commentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	r.s.deleteCommentLocked(id)
	return nil
}

func (s *Store) deleteCommentLocked(id string) {
	delete(s.comments, id)
	for cid, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			s.deleteCommentLocked(cid)
		}
	}
}

func (r *commentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *commentRepo) sorted(keep func(domain.Comment) bool) []domain.Comment {
	result := []domain.Comment{}
	for _, c := range r.s.comments {
		if keep(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedOn.Before(result[j].CreatedOn) })
	return result
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.Comment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := r.sorted(func(c domain.Comment) bool { return c.TicketID == ticketID })
	return page(result, limit, offset), len(result), nil
}

func (r *commentRepo) ListReplies(_ context.Context, parentID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(c domain.Comment) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (r *commentRepo) Ancestors(_ context.Context, id string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []string{}
	current, ok := r.s.comments[id]
	for ok && current.ParentID != nil && len(result) < 1000 {
		result = append(result, *current.ParentID)
		current, ok = r.s.comments[*current.ParentID]
	}
	return result, nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Save(_ context.Context, tokenID, userID string, _ time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[tokenID] = userID
	return nil
}

func (r *sessionRepo) Consume(_ context.Context, tokenID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	userID, ok := r.s.sessions[tokenID]
	if !ok {
		return "", repository.ErrSessionNotFound
	}
	delete(r.s.sessions, tokenID)
	return userID, nil
}

func (r *sessionRepo) Ping(context.Context) error { return nil }

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return missingReference("ticket_history_ticket_id_fkey")
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.s.tick()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}
