package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// SupportTicketsHandler handles support desk ticket endpoints.
type SupportTicketsHandler struct {
	tickets *service.TicketService
	pages   config.PaginationConfig
}

// NewSupportTicketsHandler constructs handler.
func NewSupportTicketsHandler(ticketService *service.TicketService, pages config.PaginationConfig) *SupportTicketsHandler {
	return &SupportTicketsHandler{tickets: ticketService, pages: pages}
}

// ListTickets GET /tickets/support/.
func (h *SupportTicketsHandler) ListTickets(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	priorities, err := parsePriorities(c)
	if err != nil {
		return err
	}
	page := parsePage(c, h.pages)
	tickets, total, err := h.tickets.ListForSupport(c.UserContext(), caller(c), service.TicketQuery{
		Statuses:   statuses,
		Priorities: priorities,
		Search:     optionalQuery(c, "search"),
		Ordering:   c.Query("ordering"),
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(tickets, dto.NewSupportTicketResponse), page, total)
}

// GetTicket GET /tickets/support/:id/.
func (h *SupportTicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetForSupport(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSupportTicketResponse(ticket)})
}

// UpdateStatus PUT /tickets/support/:id/.
func (h *SupportTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	var req dto.SupportTicketUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateStatusForSupport(c.UserContext(), caller(c), id, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSupportTicketResponse(ticket)})
}

// CloseTicket DELETE /tickets/support/:id/.
func (h *SupportTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	if _, err := h.tickets.CloseForSupport(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "Ticket has been closed")
}

// TakeTicket POST /tickets/support/:id/take/.
func (h *SupportTicketsHandler) TakeTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	if _, err := h.tickets.Take(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "successfully assigned to ticket: "+id)
}

// ReleaseTicket POST /tickets/support/:id/release/.
func (h *SupportTicketsHandler) ReleaseTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	if _, err := h.tickets.Release(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "successfully unassigned from ticket: "+id)
}

// MethodNotAllowed answers verbs the support view does not offer.
func (h *SupportTicketsHandler) MethodNotAllowed(c *fiber.Ctx) error {
	return apperrors.NewMethodNotAllowed(c.Method())
}
