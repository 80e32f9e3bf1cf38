package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// HistoryService keeps the per-ticket audit trail. Entries are written from
// dispatched events, so every ticket mutation path feeds it.
type HistoryService struct {
	history repository.TicketHistoryRepository
	tickets repository.TicketRepository
	authz   *auth.Authorizer
	logger  *zap.Logger
}

// HistoryDependencies bundles repositories for history service.
type HistoryDependencies struct {
	HistoryRepo repository.TicketHistoryRepository
	TicketRepo  repository.TicketRepository
	Authorizer  *auth.Authorizer
	Logger      *zap.Logger
}

// NewHistoryService builds the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		history: deps.HistoryRepo,
		tickets: deps.TicketRepo,
		authz:   deps.Authorizer,
		logger:  logger,
	}
}

// RegisterHandlers subscribes the recorder to ticket events.
func (s *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, s.Record)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.Record)
	dispatcher.Subscribe(events.EventTicketAssigned, s.Record)
	dispatcher.Subscribe(events.EventTicketReleased, s.Record)
}

// Record stores the audit entry for event. Unrelated event types are ignored.
func (s *HistoryService) Record(ctx context.Context, event events.Event) error {
	entry := domain.TicketHistory{TicketID: event.TicketID}
	if event.Actor.UserID != "" {
		actorID := event.Actor.UserID
		entry.ChangedBy = &actorID
	}

	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		entry.ChangeType = domain.HistoryCreated
		entry.NewValue = textPtr(p.Title)
	case events.TicketStatusChangedPayload:
		entry.ChangeType = domain.HistoryStatus
		entry.OldValue = textPtr(string(p.OldStatus))
		entry.NewValue = textPtr(string(p.NewStatus))
	case events.TicketAssignmentPayload:
		if event.Type == events.EventTicketReleased {
			entry.ChangeType = domain.HistoryUnassigned
			entry.OldValue = textPtr(p.UserID)
		} else {
			entry.ChangeType = domain.HistoryAssigned
			entry.NewValue = textPtr(p.UserID)
		}
	default:
		return nil
	}

	if err := s.history.Create(ctx, &entry); err != nil {
		s.logger.Warn("ticket history not recorded",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns the audit trail of a ticket, oldest first. Admin only.
func (s *HistoryService) List(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketHistory, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminTicket, auth.ActionRetrieve, nil); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func textPtr(s string) *string { return &s }
