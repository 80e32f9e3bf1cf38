package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketCreateRequest payload for POST /tickets/user/ and full PUT updates.
type TicketCreateRequest struct {
	Title       string `json:"title" validate:"required,max=30"`
	Description string `json:"description" validate:"required,max=250"`
}

// TicketPatchRequest payload for partial owner updates.
type TicketPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=30"`
	Description *string `json:"description" validate:"omitempty,max=250"`
}

// SupportTicketUpdateRequest is the only body a support user may send.
type SupportTicketUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN IN_PROGRESS CLOSED"`
}

// AdminTicketRequest payload for admin create and PUT.
type AdminTicketRequest struct {
	Title       string   `json:"title" validate:"required,max=30"`
	Description string   `json:"description" validate:"required,max=250"`
	Status      *string  `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS CLOSED"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	CreatedBy   *string  `json:"created_by" validate:"omitempty,uuid"`
	AssignedTo  []string `json:"assigned_to" validate:"omitempty,dive,uuid"`
	CompletedBy *string  `json:"completed_by" validate:"omitempty,uuid"`
}

// AdminTicketPatchRequest payload for partial admin updates.
type AdminTicketPatchRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=30"`
	Description *string   `json:"description" validate:"omitempty,max=250"`
	Status      *string   `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS CLOSED"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssignedTo  *[]string `json:"assigned_to" validate:"omitempty,dive,uuid"`
	CompletedBy *string   `json:"completed_by" validate:"omitempty,uuid"`
}

// CreatedBetweenRequest payload for POST /tickets/admin/created/.
type CreatedBetweenRequest struct {
	CreatedFirst  string `json:"created_first" validate:"required"`
	CreatedSecond string `json:"created_second" validate:"required"`
}

// UserTicketResponse is the owner's view of a ticket. Priority is internal to the
// support desk.
type UserTicketResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedBy   string              `json:"created_by"`
	AssignedTo  []string            `json:"assigned_to"`
	CompletedBy *string             `json:"completed_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
}

// SupportTicketResponse is the assignee's view of a ticket.
type SupportTicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  []string              `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// AdminTicketResponse exposes every ticket field.
type AdminTicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  []string              `json:"assigned_to"`
	CompletedBy *string               `json:"completed_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// SupportActivityResponse is one row of most_active_support.
type SupportActivityResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Closed   int    `json:"closed_tickets"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string               `json:"id"`
	Ticket     string               `json:"ticket"`
	ChangedBy  *string              `json:"changed_by"`
	ChangeType domain.HistoryChange `json:"change_type"`
	OldValue   *string              `json:"old_value"`
	NewValue   *string              `json:"new_value"`
	CreatedAt  time.Time            `json:"created_at"`
}

// NewTicketHistoryResponse projects h.
func NewTicketHistoryResponse(h *domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:         h.ID,
		Ticket:     h.TicketID,
		ChangedBy:  h.ChangedBy,
		ChangeType: h.ChangeType,
		OldValue:   h.OldValue,
		NewValue:   h.NewValue,
		CreatedAt:  h.CreatedAt,
	}
}

// NewUserTicketResponse projects t for its owner.
func NewUserTicketResponse(t *domain.Ticket) UserTicketResponse {
	return UserTicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  nonNil(t.AssignedTo),
		CompletedBy: t.CompletedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// NewSupportTicketResponse projects t for support staff.
func NewSupportTicketResponse(t *domain.Ticket) SupportTicketResponse {
	return SupportTicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  nonNil(t.AssignedTo),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// NewAdminTicketResponse projects t for administrators.
func NewAdminTicketResponse(t *domain.Ticket) AdminTicketResponse {
	return AdminTicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  nonNil(t.AssignedTo),
		CompletedBy: t.CompletedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// MapSlice projects every element of items with fn.
func MapSlice[T any, R any](items []T, fn func(*T) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
