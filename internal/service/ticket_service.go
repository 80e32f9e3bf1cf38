package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates the user, support and admin ticket workflows.
type TicketService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	authz   *auth.Authorizer
	events  emitter
	now     func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Authorizer *auth.Authorizer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketQuery carries list filters. Scoping fields (creator, assignee) are forced by
// the audience for user and support views.
type TicketQuery struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssignedTo *string
	CreatedBy  *string
	Search     *string
	Ordering   string
	Limit      int
	Offset     int
}

// TicketCreateInput is the owner's create payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketEditInput carries owner edits; nil fields are left unchanged.
type TicketEditInput struct {
	Title       *string
	Description *string
}

// AdminTicketInput is the admin create payload.
type AdminTicketInput struct {
	Title       string
	Description string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	CreatedBy   *string
	AssignedTo  []string
	CompletedBy *string
}

// AdminTicketEditInput carries admin edits; nil fields are left unchanged.
type AdminTicketEditInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssignedTo  *[]string
	CompletedBy *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		authz:   deps.Authorizer,
		events:  newEmitter(deps.Dispatcher, deps.Logger),
		now:     time.Now,
	}
}

// ListForUser returns the caller's own tickets.
func (s *TicketService) ListForUser(ctx context.Context, actor *domain.User, q TicketQuery) ([]domain.Ticket, int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceUserTicket, auth.ActionList, nil); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.TicketFilter{
		CreatedBy:  &actor.ID,
		Statuses:   q.Statuses,
		SearchTerm: q.Search,
		Ordering:   q.Ordering,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
}

// CreateForUser opens a ticket owned by the caller with default status and priority.
func (s *TicketService) CreateForUser(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.authz.Authorize(actor, auth.ResourceUserTicket, auth.ActionCreate, nil); err != nil {
		return nil, err
	}
	title, description, err := s.cleanText(ctx, "", input.Title, input.Description)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		CreatedBy:   actor.ID,
		AssignedTo:  []string{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emitCreated(ctx, actor, ticket)
	return ticket, nil
}

// GetForUser fetches a ticket owned by the caller.
func (s *TicketService) GetForUser(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.load(ctx, actor, auth.ResourceUserTicket, auth.ActionRetrieve, id)
}

// UpdateForUser edits title and description of an open ticket owned by the caller.
func (s *TicketService) UpdateForUser(ctx context.Context, actor *domain.User, id string, input TicketEditInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceUserTicket, auth.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, apperrors.NewValidationError("closed tickets cannot be edited", map[string]any{"status": string(ticket.Status)})
	}
	if err := s.applyText(ctx, ticket, input.Title, input.Description); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// CloseForUser soft-closes a ticket owned by the caller. Closing a closed ticket is a no-op.
func (s *TicketService) CloseForUser(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceUserTicket, auth.ActionDelete, id)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, actor, ticket, nil)
}

// ListForSupport returns tickets the caller is assigned to.
func (s *TicketService) ListForSupport(ctx context.Context, actor *domain.User, q TicketQuery) ([]domain.Ticket, int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceSupportTicket, auth.ActionList, nil); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.TicketFilter{
		AssignedTo: &actor.ID,
		Statuses:   q.Statuses,
		Priorities: q.Priorities,
		SearchTerm: q.Search,
		Ordering:   q.Ordering,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
}

// GetForSupport fetches a ticket the caller is assigned to.
func (s *TicketService) GetForSupport(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.load(ctx, actor, auth.ResourceSupportTicket, auth.ActionRetrieve, id)
}

// UpdateStatusForSupport moves an assigned ticket to status. Closing through this path
// records the caller as completer, the same as CloseForSupport.
func (s *TicketService) UpdateStatusForSupport(ctx context.Context, actor *domain.User, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceSupportTicket, auth.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewFieldError("status", "status must be one of [OPEN IN_PROGRESS CLOSED]")
	}
	if status == domain.TicketStatusClosed {
		return s.close(ctx, actor, ticket, &actor.ID)
	}
	old := ticket.Status
	ticket.SetStatus(status, s.now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emitStatus(ctx, actor, ticket, old)
	return ticket, nil
}

// CloseForSupport closes an assigned ticket and records the caller as completer.
func (s *TicketService) CloseForSupport(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceSupportTicket, auth.ActionDelete, id)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, actor, ticket, &actor.ID)
}

// Take adds the caller to the ticket's assignees. Repeating it changes nothing.
func (s *TicketService) Take(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceSupportTicket, auth.ActionTake, id)
	if err != nil {
		return nil, err
	}
	if ticket.IsAssigned(actor.ID) {
		return ticket, nil
	}
	if err := s.tickets.AddAssignee(ctx, ticket.ID, actor.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.AssignedTo = append(ticket.AssignedTo, actor.ID)
	s.events.emit(ctx, actor, events.EventTicketAssigned, ticket.ID, events.TicketAssignmentPayload{UserID: actor.ID})
	return ticket, nil
}

// Release removes the caller from the ticket's assignees. Repeating it changes nothing.
func (s *TicketService) Release(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceSupportTicket, auth.ActionRelease, id)
	if err != nil {
		return nil, err
	}
	if !ticket.IsAssigned(actor.ID) {
		return ticket, nil
	}
	if err := s.tickets.RemoveAssignee(ctx, ticket.ID, actor.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	kept := make([]string, 0, len(ticket.AssignedTo))
	for _, userID := range ticket.AssignedTo {
		if userID != actor.ID {
			kept = append(kept, userID)
		}
	}
	ticket.AssignedTo = kept
	s.events.emit(ctx, actor, events.EventTicketReleased, ticket.ID, events.TicketAssignmentPayload{UserID: actor.ID})
	return ticket, nil
}

// ListForAdmin lists every ticket.
func (s *TicketService) ListForAdmin(ctx context.Context, actor *domain.User, q TicketQuery) ([]domain.Ticket, int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminTicket, auth.ActionList, nil); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.TicketFilter{
		CreatedBy:         q.CreatedBy,
		AssignedTo:        q.AssignedTo,
		Statuses:          q.Statuses,
		Priorities:        q.Priorities,
		SearchTerm:        q.Search,
		SearchDescription: true,
		Ordering:          q.Ordering,
		Limit:             q.Limit,
		Offset:            q.Offset,
	})
}

// CreateForAdmin creates a ticket with explicit ownership, assignment and state.
func (s *TicketService) CreateForAdmin(ctx context.Context, actor *domain.User, input AdminTicketInput) (*domain.Ticket, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminTicket, auth.ActionCreate, nil); err != nil {
		return nil, err
	}
	title, description, err := s.cleanText(ctx, "", input.Title, input.Description)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		CreatedBy:   actor.ID,
		AssignedTo:  []string{},
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.CreatedBy != nil {
		if err := s.requireUser(ctx, "created_by", *input.CreatedBy, ""); err != nil {
			return nil, err
		}
		ticket.CreatedBy = *input.CreatedBy
	}
	if len(input.AssignedTo) > 0 {
		if err := s.requireSupportUsers(ctx, input.AssignedTo); err != nil {
			return nil, err
		}
		ticket.AssignedTo = dedupe(input.AssignedTo)
	}
	if input.Status != nil {
		ticket.SetStatus(*input.Status, s.now())
	}
	if err := s.applyCompletedBy(ctx, ticket, input.CompletedBy); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emitCreated(ctx, actor, ticket)
	s.emitAssignments(ctx, actor, ticket.ID, ticket.AssignedTo, nil)
	return ticket, nil
}

// GetForAdmin fetches any ticket.
func (s *TicketService) GetForAdmin(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.load(ctx, actor, auth.ResourceAdminTicket, auth.ActionRetrieve, id)
}

// UpdateForAdmin edits any field of any ticket except its creator.
func (s *TicketService) UpdateForAdmin(ctx context.Context, actor *domain.User, id string, input AdminTicketEditInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, auth.ResourceAdminTicket, auth.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyText(ctx, ticket, input.Title, input.Description); err != nil {
		return nil, err
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.AssignedTo != nil {
		if err := s.requireSupportUsers(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}
	old := ticket.Status
	if input.Status != nil {
		ticket.SetStatus(*input.Status, s.now())
	}
	if err := s.applyCompletedBy(ctx, ticket, input.CompletedBy); err != nil {
		return nil, err
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if old != ticket.Status {
		s.emitStatus(ctx, actor, ticket, old)
	}
	if input.AssignedTo != nil {
		assignees := dedupe(*input.AssignedTo)
		added, removed, err := s.tickets.ReplaceAssignees(ctx, ticket.ID, assignees)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.AssignedTo = assignees
		s.emitAssignments(ctx, actor, ticket.ID, added, removed)
	}
	return ticket, nil
}

// DeleteForAdmin removes a ticket together with its marks, comments and assignments.
func (s *TicketService) DeleteForAdmin(ctx context.Context, actor *domain.User, id string) error {
	ticket, err := s.load(ctx, actor, auth.ResourceAdminTicket, auth.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.NotFoundOr(err, "ticket", id)
	}
	return nil
}

// CountCreatedBetween counts tickets created strictly inside (after, before).
func (s *TicketService) CountCreatedBetween(ctx context.Context, actor *domain.User, after, before time.Time) (int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminTicket, auth.ActionStats, nil); err != nil {
		return 0, err
	}
	total, err := s.tickets.CountCreatedBetween(ctx, after, before)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return total, nil
}

// MostActiveSupport returns every support user tied for the most completed tickets.
func (s *TicketService) MostActiveSupport(ctx context.Context, actor *domain.User) ([]domain.SupportActivity, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminTicket, auth.ActionStats, nil); err != nil {
		return nil, err
	}
	result, err := s.tickets.MostActiveSupport(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// load runs the role check, fetches the ticket and then runs the object check, so a
// missing ticket is a 404 and someone else's ticket is a 403.
func (s *TicketService) load(ctx context.Context, actor *domain.User, res auth.Resource, act auth.Action, id string) (*domain.Ticket, error) {
	if err := s.authz.Authorize(actor, res, act, nil); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", id)
	}
	if err := s.authz.Authorize(actor, res, act, auth.TicketTarget(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	tickets, total, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

func (s *TicketService) close(ctx context.Context, actor *domain.User, ticket *domain.Ticket, completedBy *string) (*domain.Ticket, error) {
	if ticket.IsClosed() {
		return ticket, nil
	}
	old := ticket.Status
	ticket.Close(s.now(), completedBy)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emitStatus(ctx, actor, ticket, old)
	return ticket, nil
}

// cleanText sanitizes title and description and enforces title uniqueness against
// every ticket other than selfID.
func (s *TicketService) cleanText(ctx context.Context, selfID, title, description string) (string, string, error) {
	cleanTitle, err := cleanField("title", title, domain.TicketTitleMaxLen)
	if err != nil {
		return "", "", err
	}
	cleanDescription, err := cleanField("description", description, domain.TicketDescriptionMaxLen)
	if err != nil {
		return "", "", err
	}
	if err := s.checkTitle(ctx, selfID, cleanTitle); err != nil {
		return "", "", err
	}
	return cleanTitle, cleanDescription, nil
}

func (s *TicketService) applyText(ctx context.Context, ticket *domain.Ticket, title, description *string) error {
	if title != nil {
		cleaned, err := cleanField("title", *title, domain.TicketTitleMaxLen)
		if err != nil {
			return err
		}
		if err := s.checkTitle(ctx, ticket.ID, cleaned); err != nil {
			return err
		}
		ticket.Title = cleaned
	}
	if description != nil {
		cleaned, err := cleanField("description", *description, domain.TicketDescriptionMaxLen)
		if err != nil {
			return err
		}
		ticket.Description = cleaned
	}
	return nil
}

func (s *TicketService) checkTitle(ctx context.Context, selfID, title string) error {
	existing, err := s.tickets.GetByTitle(ctx, title)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return apperrors.MapError(err)
	case existing.ID != selfID:
		return repository.DuplicateError("ticket", "title")
	}
	return nil
}

// applyCompletedBy records an explicit completer. Only closed tickets have one.
func (s *TicketService) applyCompletedBy(ctx context.Context, ticket *domain.Ticket, completedBy *string) error {
	if completedBy == nil {
		return nil
	}
	if !ticket.IsClosed() {
		return apperrors.NewFieldError("completed_by", "completed_by requires status CLOSED")
	}
	if err := s.requireUser(ctx, "completed_by", *completedBy, domain.RoleSupport); err != nil {
		return err
	}
	id := *completedBy
	ticket.CompletedBy = &id
	return nil
}

// requireUser checks that id names an existing user, optionally with the given role.
func (s *TicketService) requireUser(ctx context.Context, field, id string, role domain.Role) error {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewFieldError(field, "user "+id+" does not exist")
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if role != "" && user.Role != role {
		return apperrors.NewFieldError(field, "user "+user.Username+" is not a support user")
	}
	return nil
}

func (s *TicketService) requireSupportUsers(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.requireUser(ctx, "assigned_to", id, domain.RoleSupport); err != nil {
			return err
		}
	}
	return nil
}

func (s *TicketService) emitCreated(ctx context.Context, actor *domain.User, ticket *domain.Ticket) {
	s.events.emit(ctx, actor, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		Title:     ticket.Title,
		Priority:  ticket.Priority,
		CreatedBy: ticket.CreatedBy,
	})
}

func (s *TicketService) emitStatus(ctx context.Context, actor *domain.User, ticket *domain.Ticket, old domain.TicketStatus) {
	s.events.emit(ctx, actor, events.EventTicketStatusChanged, ticket.ID, events.TicketStatusChangedPayload{
		OldStatus:   old,
		NewStatus:   ticket.Status,
		CompletedBy: ticket.CompletedBy,
	})
}

// emitAssignments reports each assignee an admin create or edit added or removed.
func (s *TicketService) emitAssignments(ctx context.Context, actor *domain.User, ticketID string, added, removed []string) {
	for _, userID := range added {
		s.events.emit(ctx, actor, events.EventTicketAssigned, ticketID, events.TicketAssignmentPayload{UserID: userID})
	}
	for _, userID := range removed {
		s.events.emit(ctx, actor, events.EventTicketReleased, ticketID, events.TicketAssignmentPayload{UserID: userID})
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
