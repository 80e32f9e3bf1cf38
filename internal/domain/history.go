package domain

import "time"

// HistoryChange names what a ticket history entry records.
type HistoryChange string

const (
	HistoryCreated    HistoryChange = "CREATED"
	HistoryStatus     HistoryChange = "STATUS"
	HistoryAssigned   HistoryChange = "ASSIGNED"
	HistoryUnassigned HistoryChange = "UNASSIGNED"
)

// TicketHistory is one audit entry. ChangedBy is nil once the acting user is deleted.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  *string
	ChangeType HistoryChange
	OldValue   *string
	NewValue   *string
	CreatedAt  time.Time
}
