package domain

import "time"

const MarkCommentMaxLen = 500

// MarkStatus tags how a support user sees the ticket at the time of the mark.
type MarkStatus string

const (
	MarkStatusNeedsClarification     MarkStatus = "NEEDS_CLARIFICATION"
	MarkStatusWaitingForUserResponse MarkStatus = "WAITING_FOR_USER_RESPONSE"
	MarkStatusInProgress             MarkStatus = "IN_PROGRESS"
)

// Valid reports whether s is a known mark status.
func (s MarkStatus) Valid() bool {
	switch s {
	case MarkStatusNeedsClarification, MarkStatusWaitingForUserResponse, MarkStatusInProgress:
		return true
	}
	return false
}

// SupportTicketMark is a support annotation on a ticket's progress.
type SupportTicketMark struct {
	ID            string
	TicketID      string
	SupportUserID string
	Status        MarkStatus
	Comment       string
	CreatedAt     time.Time
}
