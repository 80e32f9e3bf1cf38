package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MarkRequest payload for creating a mark or replacing one with PUT.
type MarkRequest struct {
	Comment       string  `json:"comment" validate:"required,max=500"`
	SupportStatus *string `json:"support_status" validate:"omitempty,oneof=NEEDS_CLARIFICATION WAITING_FOR_USER_RESPONSE IN_PROGRESS"`
}

// MarkPatchRequest payload for partial mark updates.
type MarkPatchRequest struct {
	Comment       *string `json:"comment" validate:"omitempty,max=500"`
	SupportStatus *string `json:"support_status" validate:"omitempty,oneof=NEEDS_CLARIFICATION WAITING_FOR_USER_RESPONSE IN_PROGRESS"`
}

// MarkResponse renders a support mark.
type MarkResponse struct {
	ID            string            `json:"id"`
	Ticket        string            `json:"ticket"`
	SupportUser   string            `json:"support_user"`
	SupportStatus domain.MarkStatus `json:"support_status"`
	Comment       string            `json:"comment"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CommentRequest payload for POST comments. CreatedBy is read only by the admin view.
type CommentRequest struct {
	CommentText string  `json:"comment_text" validate:"required,max=500"`
	Parent      *string `json:"parent" validate:"omitempty,uuid"`
	CreatedBy   *string `json:"created_by" validate:"omitempty,uuid"`
}

// CommentUpdateRequest payload for PUT/PATCH comments. Parent is read only by the
// admin view.
type CommentUpdateRequest struct {
	CommentText *string `json:"comment_text" validate:"omitempty,max=500"`
	Parent      *string `json:"parent" validate:"omitempty,uuid"`
}

// CommentResponse renders a comment.
type CommentResponse struct {
	ID          string    `json:"id"`
	CreatedBy   string    `json:"created_by"`
	Ticket      string    `json:"ticket"`
	Parent      *string   `json:"parent"`
	CommentText string    `json:"comment_text"`
	CreatedOn   time.Time `json:"created_on"`
}

// NewMarkResponse projects m.
func NewMarkResponse(m *domain.SupportTicketMark) MarkResponse {
	return MarkResponse{
		ID:            m.ID,
		Ticket:        m.TicketID,
		SupportUser:   m.SupportUserID,
		SupportStatus: m.Status,
		Comment:       m.Comment,
		CreatedAt:     m.CreatedAt,
	}
}

// NewCommentResponse projects c.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          c.ID,
		CreatedBy:   c.CreatedBy,
		Ticket:      c.TicketID,
		Parent:      c.ParentID,
		CommentText: c.Text,
		CreatedOn:   c.CreatedOn,
	}
}
