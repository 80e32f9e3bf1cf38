package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketReleased      EventType = "ticket_released"
	EventMarkAdded           EventType = "mark_added"
	EventCommentAdded        EventType = "comment_added"
)

// AllEventTypes lists every type a subscriber may want to follow.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketReleased,
	EventMarkAdded,
	EventCommentAdded,
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatedBy string                `json:"created_by"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	CompletedBy *string             `json:"completed_by,omitempty"`
}

// TicketAssignmentPayload is shared by assigned and released events.
type TicketAssignmentPayload struct {
	UserID string `json:"user_id"`
}

// MarkAddedPayload payload.
type MarkAddedPayload struct {
	MarkID         string            `json:"mark_id"`
	SupportStatus  domain.MarkStatus `json:"support_status"`
	CommentPreview string            `json:"comment_preview"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string  `json:"comment_id"`
	ParentID    *string `json:"parent_id,omitempty"`
	TextPreview string  `json:"text_preview"`
}
