package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CommentsHandler serves the comment thread of a ticket, for one audience.
type CommentsHandler struct {
	comments *service.CommentService
	audience service.Audience
	pages    config.PaginationConfig
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService, audience service.Audience, pages config.PaginationConfig) *CommentsHandler {
	return &CommentsHandler{comments: commentService, audience: audience, pages: pages}
}

// ListComments GET /tickets/{user,admin}/:ticket_id/comments/.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return err
	}
	page := parsePage(c, h.pages)
	comments, total, err := h.comments.List(c.UserContext(), caller(c), h.audience, ticketID, page.Limit(), page.Offset())
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(comments, dto.NewCommentResponse), page, total)
}

// CreateComment POST /tickets/{user,admin}/:ticket_id/comments/.
func (h *CommentsHandler) CreateComment(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.CommentInput{Text: req.CommentText, ParentID: req.Parent}
	if h.audience == service.AudienceAdmin {
		input.CreatedBy = req.CreatedBy
	}
	comment, err := h.comments.Create(c.UserContext(), caller(c), h.audience, ticketID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// GetComment GET /tickets/{user,admin}/:ticket_id/comments/:comment_id/.
func (h *CommentsHandler) GetComment(c *fiber.Ctx) error {
	ticketID, commentID, err := h.ids(c)
	if err != nil {
		return err
	}
	comment, err := h.comments.Get(c.UserContext(), caller(c), h.audience, ticketID, commentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListReplies GET /tickets/{user,admin}/:ticket_id/comments/:comment_id/replies/.
func (h *CommentsHandler) ListReplies(c *fiber.Ctx) error {
	ticketID, commentID, err := h.ids(c)
	if err != nil {
		return err
	}
	replies, err := h.comments.Replies(c.UserContext(), caller(c), h.audience, ticketID, commentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(replies, dto.NewCommentResponse)})
}

// UpdateComment PUT and PATCH /tickets/{user,admin}/:ticket_id/comments/:comment_id/.
func (h *CommentsHandler) UpdateComment(c *fiber.Ctx) error {
	ticketID, commentID, err := h.ids(c)
	if err != nil {
		return err
	}
	var req dto.CommentUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Update(c.UserContext(), caller(c), h.audience, ticketID, commentID, service.CommentEditInput{
		Text:     req.CommentText,
		ParentID: req.Parent,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// DeleteComment DELETE /tickets/{user,admin}/:ticket_id/comments/:comment_id/.
func (h *CommentsHandler) DeleteComment(c *fiber.Ctx) error {
	ticketID, commentID, err := h.ids(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), caller(c), h.audience, ticketID, commentID); err != nil {
		return err
	}
	return message(c, "Comment deleted")
}

func (h *CommentsHandler) ids(c *fiber.Ctx) (string, string, error) {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return "", "", err
	}
	commentID, err := pathID(c, "comment_id", "comment")
	if err != nil {
		return "", "", err
	}
	return ticketID, commentID, nil
}
