package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	pages   config.PaginationConfig
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, pages config.PaginationConfig) *TicketsHandler {
	return &TicketsHandler{service: ticketService, pages: pages}
}

// ListTickets GET /tickets/user/.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	page := parsePage(c, h.pages)
	tickets, total, err := h.service.ListForUser(c.UserContext(), caller(c), service.TicketQuery{
		Statuses: statuses,
		Search:   optionalQuery(c, "search"),
		Ordering: c.Query("ordering"),
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(tickets, dto.NewUserTicketResponse), page, total)
}

// CreateTicket POST /tickets/user/.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.TicketCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateForUser(c.UserContext(), caller(c), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserTicketResponse(ticket)})
}

// GetTicket GET /tickets/user/:id/.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetForUser(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserTicketResponse(ticket)})
}

// ReplaceTicket PUT /tickets/user/:id/.
func (h *TicketsHandler) ReplaceTicket(c *fiber.Ctx) error {
	var req dto.TicketCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, service.TicketEditInput{Title: &req.Title, Description: &req.Description})
}

// PatchTicket PATCH /tickets/user/:id/.
func (h *TicketsHandler) PatchTicket(c *fiber.Ctx) error {
	var req dto.TicketPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, service.TicketEditInput{Title: req.Title, Description: req.Description})
}

func (h *TicketsHandler) update(c *fiber.Ctx, input service.TicketEditInput) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.service.UpdateForUser(c.UserContext(), caller(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserTicketResponse(ticket)})
}

// CloseTicket DELETE /tickets/user/:id/. The ticket is closed, not removed.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	if _, err := h.service.CloseForUser(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "Ticket has been closed")
}
