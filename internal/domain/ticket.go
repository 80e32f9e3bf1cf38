package domain

import "time"

const (
	TicketTitleMaxLen       = 30
	TicketDescriptionMaxLen = 250
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedBy   string
	AssignedTo  []string
	CompletedBy *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsAssigned reports whether userID is in the assigned support set.
func (t *Ticket) IsAssigned(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// IsClosed reports whether the ticket is CLOSED.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// SetStatus moves the ticket to status. closed_at is stamped on entering CLOSED and
// cleared, together with completed_by, on leaving it.
func (t *Ticket) SetStatus(status TicketStatus, now time.Time) {
	if status == TicketStatusClosed {
		if t.ClosedAt == nil {
			closedAt := now
			t.ClosedAt = &closedAt
		}
	} else {
		t.ClosedAt = nil
		t.CompletedBy = nil
	}
	t.Status = status
}

// Close transitions to CLOSED and records who completed it, if anyone.
func (t *Ticket) Close(now time.Time, completedBy *string) {
	t.SetStatus(TicketStatusClosed, now)
	if completedBy != nil {
		id := *completedBy
		t.CompletedBy = &id
	}
}

// UserIDs returns every user referenced by the ticket.
func (t *Ticket) UserIDs() []string {
	ids := make([]string, 0, len(t.AssignedTo)+2)
	ids = append(ids, t.CreatedBy)
	ids = append(ids, t.AssignedTo...)
	if t.CompletedBy != nil {
		ids = append(ids, *t.CompletedBy)
	}
	return ids
}

// SupportActivity is one row of the completed-tickets leaderboard.
type SupportActivity struct {
	UserID   string
	Username string
	Total    int
}
