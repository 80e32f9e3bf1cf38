package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// MarksHandler serves the marks nested under a ticket, for one audience.
type MarksHandler struct {
	marks    *service.MarkService
	audience service.Audience
	pages    config.PaginationConfig
}

// NewMarksHandler constructs handler.
func NewMarksHandler(markService *service.MarkService, audience service.Audience, pages config.PaginationConfig) *MarksHandler {
	return &MarksHandler{marks: markService, audience: audience, pages: pages}
}

// ListMarks GET /tickets/{support,admin}/:ticket_id/marks/.
func (h *MarksHandler) ListMarks(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return err
	}
	supportUser, err := optionalUUIDQuery(c, "support_user")
	if err != nil {
		return err
	}
	var status *domain.MarkStatus
	if raw := optionalQuery(c, "support_status"); raw != nil {
		s := domain.MarkStatus(*raw)
		if !s.Valid() {
			return apperrors.NewFieldError("support_status", "support_status is invalid")
		}
		status = &s
	}
	page := parsePage(c, h.pages)
	marks, total, err := h.marks.List(c.UserContext(), caller(c), h.audience, ticketID, service.MarkQuery{
		SupportUserID: supportUser,
		Status:        status,
		Limit:         page.Limit(),
		Offset:        page.Offset(),
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(marks, dto.NewMarkResponse), page, total)
}

// CreateMark POST /tickets/{support,admin}/:ticket_id/marks/.
func (h *MarksHandler) CreateMark(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return err
	}
	var req dto.MarkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	mark, err := h.marks.Create(c.UserContext(), caller(c), h.audience, ticketID, service.MarkInput{
		Comment: req.Comment,
		Status:  markStatus(req.SupportStatus),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMarkResponse(mark)})
}

// GetMark GET /tickets/{support,admin}/:ticket_id/marks/:mark_id/.
func (h *MarksHandler) GetMark(c *fiber.Ctx) error {
	ticketID, markID, err := h.ids(c)
	if err != nil {
		return err
	}
	mark, err := h.marks.Get(c.UserContext(), caller(c), h.audience, ticketID, markID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMarkResponse(mark)})
}

// ReplaceMark PUT /tickets/{support,admin}/:ticket_id/marks/:mark_id/.
func (h *MarksHandler) ReplaceMark(c *fiber.Ctx) error {
	var req dto.MarkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, service.MarkEditInput{Comment: &req.Comment, Status: markStatus(req.SupportStatus)})
}

// PatchMark PATCH /tickets/{support,admin}/:ticket_id/marks/:mark_id/.
func (h *MarksHandler) PatchMark(c *fiber.Ctx) error {
	var req dto.MarkPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, service.MarkEditInput{Comment: req.Comment, Status: markStatus(req.SupportStatus)})
}

func (h *MarksHandler) update(c *fiber.Ctx, input service.MarkEditInput) error {
	ticketID, markID, err := h.ids(c)
	if err != nil {
		return err
	}
	mark, err := h.marks.Update(c.UserContext(), caller(c), h.audience, ticketID, markID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMarkResponse(mark)})
}

// DeleteMark DELETE /tickets/{support,admin}/:ticket_id/marks/:mark_id/.
func (h *MarksHandler) DeleteMark(c *fiber.Ctx) error {
	ticketID, markID, err := h.ids(c)
	if err != nil {
		return err
	}
	if err := h.marks.Delete(c.UserContext(), caller(c), h.audience, ticketID, markID); err != nil {
		return err
	}
	return message(c, "Mark deleted")
}

func (h *MarksHandler) ids(c *fiber.Ctx) (string, string, error) {
	ticketID, err := pathID(c, "ticket_id", "ticket")
	if err != nil {
		return "", "", err
	}
	markID, err := pathID(c, "mark_id", "mark")
	if err != nil {
		return "", "", err
	}
	return ticketID, markID, nil
}

func markStatus(s *string) *domain.MarkStatus {
	if s == nil {
		return nil
	}
	status := domain.MarkStatus(*s)
	return &status
}
