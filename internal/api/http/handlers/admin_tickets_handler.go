package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminTicketsHandler exposes unrestricted ticket management.
type AdminTicketsHandler struct {
	tickets *service.TicketService
	history *service.HistoryService
	pages   config.PaginationConfig
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService, historyService *service.HistoryService, pages config.PaginationConfig) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService, history: historyService, pages: pages}
}

// ListTickets GET /tickets/admin/.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	priorities, err := parsePriorities(c)
	if err != nil {
		return err
	}
	assignedTo, err := optionalUUIDQuery(c, "assigned_to")
	if err != nil {
		return err
	}
	createdBy, err := optionalUUIDQuery(c, "created_by")
	if err != nil {
		return err
	}
	page := parsePage(c, h.pages)
	tickets, total, err := h.tickets.ListForAdmin(c.UserContext(), caller(c), service.TicketQuery{
		Statuses:   statuses,
		Priorities: priorities,
		AssignedTo: assignedTo,
		CreatedBy:  createdBy,
		Search:     optionalQuery(c, "search"),
		Ordering:   c.Query("ordering"),
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.MapSlice(tickets, dto.NewAdminTicketResponse), page, total)
}

// CreateTicket POST /tickets/admin/.
func (h *AdminTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.AdminTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateForAdmin(c.UserContext(), caller(c), service.AdminTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      ticketStatus(req.Status),
		Priority:    ticketPriority(req.Priority),
		CreatedBy:   req.CreatedBy,
		AssignedTo:  req.AssignedTo,
		CompletedBy: req.CompletedBy,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAdminTicketResponse(ticket)})
}

// GetTicket GET /tickets/admin/:id/.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetForAdmin(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminTicketResponse(ticket)})
}

// History GET /tickets/admin/:id/history/.
func (h *AdminTicketsHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	entries, err := h.history.List(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(entries, dto.NewTicketHistoryResponse)})
}

// ReplaceTicket PUT /tickets/admin/:id/.
func (h *AdminTicketsHandler) ReplaceTicket(c *fiber.Ctx) error {
	var req dto.AdminTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	assigned := req.AssignedTo
	if assigned == nil {
		assigned = []string{}
	}
	return h.update(c, service.AdminTicketEditInput{
		Title:       &req.Title,
		Description: &req.Description,
		Status:      ticketStatus(req.Status),
		Priority:    ticketPriority(req.Priority),
		AssignedTo:  &assigned,
		CompletedBy: req.CompletedBy,
	})
}

// PatchTicket PATCH /tickets/admin/:id/.
func (h *AdminTicketsHandler) PatchTicket(c *fiber.Ctx) error {
	var req dto.AdminTicketPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, service.AdminTicketEditInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      ticketStatus(req.Status),
		Priority:    ticketPriority(req.Priority),
		AssignedTo:  req.AssignedTo,
		CompletedBy: req.CompletedBy,
	})
}

func (h *AdminTicketsHandler) update(c *fiber.Ctx, input service.AdminTicketEditInput) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateForAdmin(c.UserContext(), caller(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/admin/:id/.
func (h *AdminTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteForAdmin(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "Ticket has been deleted")
}

// CreatedBetween POST /tickets/admin/created/.
func (h *AdminTicketsHandler) CreatedBetween(c *fiber.Ctx) error {
	var req dto.CreatedBetweenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	after, err := parseInstant("created_first", req.CreatedFirst, false)
	if err != nil {
		return err
	}
	before, err := parseInstant("created_second", req.CreatedSecond, false)
	if err != nil {
		return err
	}
	total, err := h.tickets.CountCreatedBetween(c.UserContext(), caller(c), after, before)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": total})
}

// MostActive GET /tickets/admin/most_active/.
func (h *AdminTicketsHandler) MostActive(c *fiber.Ctx) error {
	leaders, err := h.tickets.MostActiveSupport(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	rows := make([]dto.SupportActivityResponse, 0, len(leaders))
	for _, l := range leaders {
		rows = append(rows, dto.SupportActivityResponse{ID: l.UserID, Username: l.Username, Closed: l.Total})
	}
	return c.JSON(fiber.Map{"most_active_support": rows})
}

func ticketStatus(s *string) *domain.TicketStatus {
	if s == nil {
		return nil
	}
	status := domain.TicketStatus(*s)
	return &status
}

func ticketPriority(s *string) *domain.TicketPriority {
	if s == nil {
		return nil
	}
	priority := domain.TicketPriority(*s)
	return &priority
}
