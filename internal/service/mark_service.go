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

// MarkService manages support marks for the support and admin views.
type MarkService struct {
	marks   repository.MarkRepository
	tickets repository.TicketRepository
	authz   *auth.Authorizer
	events  emitter
}

// MarkDependencies bundles repositories for mark service.
type MarkDependencies struct {
	MarkRepo   repository.MarkRepository
	TicketRepo repository.TicketRepository
	Authorizer *auth.Authorizer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// MarkQuery filters a ticket's marks.
type MarkQuery struct {
	SupportUserID *string
	Status        *domain.MarkStatus
	Limit         int
	Offset        int
}

// MarkInput is the create payload. Status defaults to IN_PROGRESS.
type MarkInput struct {
	Comment string
	Status  *domain.MarkStatus
}

// MarkEditInput carries mark edits; nil fields are left unchanged.
type MarkEditInput struct {
	Comment *string
	Status  *domain.MarkStatus
}

// NewMarkService constructs the service.
func NewMarkService(deps MarkDependencies) *MarkService {
	return &MarkService{
		marks:   deps.MarkRepo,
		tickets: deps.TicketRepo,
		authz:   deps.Authorizer,
		events:  newEmitter(deps.Dispatcher, deps.Logger),
	}
}

func markResource(aud Audience) auth.Resource {
	if aud == AudienceAdmin {
		return auth.ResourceAdminMark
	}
	return auth.ResourceMark
}

// List returns the ticket's marks, newest first. Any support user may read marks of
// any ticket; only assignees may add them.
func (s *MarkService) List(ctx context.Context, actor *domain.User, aud Audience, ticketID string, q MarkQuery) ([]domain.SupportTicketMark, int, error) {
	if _, err := s.ticket(ctx, actor, markResource(aud), auth.ActionList, ticketID); err != nil {
		return nil, 0, err
	}
	marks, total, err := s.marks.ListByTicket(ctx, repository.MarkFilter{
		TicketID:      ticketID,
		SupportUserID: q.SupportUserID,
		Status:        q.Status,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return marks, total, nil
}

// Get returns one mark of the ticket.
func (s *MarkService) Get(ctx context.Context, actor *domain.User, aud Audience, ticketID, markID string) (*domain.SupportTicketMark, error) {
	return s.load(ctx, actor, aud, auth.ActionRetrieve, ticketID, markID)
}

// Create adds a mark authored by the caller.
func (s *MarkService) Create(ctx context.Context, actor *domain.User, aud Audience, ticketID string, input MarkInput) (*domain.SupportTicketMark, error) {
	if _, err := s.ticket(ctx, actor, markResource(aud), auth.ActionCreate, ticketID); err != nil {
		return nil, err
	}
	comment, err := cleanField("comment", input.Comment, domain.MarkCommentMaxLen)
	if err != nil {
		return nil, err
	}
	mark := &domain.SupportTicketMark{
		TicketID:      ticketID,
		SupportUserID: actor.ID,
		Status:        domain.MarkStatusInProgress,
		Comment:       comment,
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewFieldError("support_status", "support_status is invalid")
		}
		mark.Status = *input.Status
	}
	if err := s.marks.Create(ctx, mark); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.events.emit(ctx, actor, events.EventMarkAdded, ticketID, events.MarkAddedPayload{
		MarkID:         mark.ID,
		SupportStatus:  mark.Status,
		CommentPreview: stringPreview(mark.Comment, 120),
	})
	return mark, nil
}

// Update edits a mark; in the support view only its author may.
func (s *MarkService) Update(ctx context.Context, actor *domain.User, aud Audience, ticketID, markID string, input MarkEditInput) (*domain.SupportTicketMark, error) {
	mark, err := s.load(ctx, actor, aud, auth.ActionUpdate, ticketID, markID)
	if err != nil {
		return nil, err
	}
	if input.Comment != nil {
		comment, err := cleanField("comment", *input.Comment, domain.MarkCommentMaxLen)
		if err != nil {
			return nil, err
		}
		mark.Comment = comment
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewFieldError("support_status", "support_status is invalid")
		}
		mark.Status = *input.Status
	}
	if err := s.marks.Update(ctx, mark); err != nil {
		return nil, apperrors.NotFoundOr(err, "mark", markID)
	}
	return mark, nil
}

// Delete removes a mark; in the support view only its author may.
func (s *MarkService) Delete(ctx context.Context, actor *domain.User, aud Audience, ticketID, markID string) error {
	mark, err := s.load(ctx, actor, aud, auth.ActionDelete, ticketID, markID)
	if err != nil {
		return err
	}
	if err := s.marks.Delete(ctx, mark.ID); err != nil {
		return apperrors.NotFoundOr(err, "mark", markID)
	}
	return nil
}

// ticket runs the role check, then loads the ticket and applies the ticket-level gate.
func (s *MarkService) ticket(ctx context.Context, actor *domain.User, res auth.Resource, act auth.Action, ticketID string) (*domain.Ticket, error) {
	if err := s.authz.Authorize(actor, res, act, nil); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	if err := s.authz.Authorize(actor, res, act, auth.TicketTarget(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// load fetches a mark that must belong to ticketID and applies the mark-level gate.
func (s *MarkService) load(ctx context.Context, actor *domain.User, aud Audience, act auth.Action, ticketID, markID string) (*domain.SupportTicketMark, error) {
	res := markResource(aud)
	if err := s.authz.Authorize(actor, res, act, nil); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	mark, err := s.marks.GetByID(ctx, markID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "mark", markID)
	}
	if mark.TicketID != ticketID {
		return nil, apperrors.NewNotFound("mark", map[string]any{"id": markID})
	}
	if err := s.authz.Authorize(actor, res, act, auth.MarkTarget(mark)); err != nil {
		return nil, err
	}
	return mark, nil
}
