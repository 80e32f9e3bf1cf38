package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const parentTicketMismatch = "Parent comment must belong to the same ticket"

// CommentService manages threaded comments on tickets.
type CommentService struct {
	comments repository.CommentRepository
	tickets  repository.TicketRepository
	users    repository.UserRepository
	authz    *auth.Authorizer
	events   emitter
}

// CommentDependencies bundles repositories for comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Authorizer  *auth.Authorizer
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// CommentInput is the create payload. CreatedBy is honoured for admins only.
type CommentInput struct {
	Text      string
	ParentID  *string
	CreatedBy *string
}

// CommentEditInput carries edits. ParentID is honoured for admins only.
type CommentEditInput struct {
	Text     *string
	ParentID *string
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments: deps.CommentRepo,
		tickets:  deps.TicketRepo,
		users:    deps.UserRepo,
		authz:    deps.Authorizer,
		events:   newEmitter(deps.Dispatcher, deps.Logger),
	}
}

func commentResource(aud Audience) auth.Resource {
	if aud == AudienceAdmin {
		return auth.ResourceAdminComment
	}
	return auth.ResourceComment
}

// List returns the ticket's comments oldest first.
func (s *CommentService) List(ctx context.Context, actor *domain.User, aud Audience, ticketID string, limit, offset int) ([]domain.Comment, int, error) {
	if _, err := s.ticket(ctx, actor, aud, auth.ActionList, ticketID); err != nil {
		return nil, 0, err
	}
	comments, total, err := s.comments.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return comments, total, nil
}

// Get returns one comment of the ticket.
func (s *CommentService) Get(ctx context.Context, actor *domain.User, aud Audience, ticketID, commentID string) (*domain.Comment, error) {
	if _, err := s.ticket(ctx, actor, aud, auth.ActionRetrieve, ticketID); err != nil {
		return nil, err
	}
	return s.inTicket(ctx, ticketID, commentID)
}

// Replies returns the direct children of a comment.
func (s *CommentService) Replies(ctx context.Context, actor *domain.User, aud Audience, ticketID, commentID string) ([]domain.Comment, error) {
	comment, err := s.Get(ctx, actor, aud, ticketID, commentID)
	if err != nil {
		return nil, err
	}
	replies, err := s.comments.ListReplies(ctx, comment.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return replies, nil
}

// Create adds a comment, optionally as a reply to a comment on the same ticket.
func (s *CommentService) Create(ctx context.Context, actor *domain.User, aud Audience, ticketID string, input CommentInput) (*domain.Comment, error) {
	if _, err := s.ticket(ctx, actor, aud, auth.ActionCreate, ticketID); err != nil {
		return nil, err
	}
	text, err := cleanField("comment_text", input.Text, domain.CommentTextMaxLen)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:  ticketID,
		CreatedBy: actor.ID,
		Text:      text,
	}
	if aud == AudienceAdmin {
		if input.CreatedBy == nil {
			return nil, apperrors.NewFieldError("created_by", "created_by is required")
		}
		if _, err := s.users.GetByID(ctx, *input.CreatedBy); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewFieldError("created_by", "user "+*input.CreatedBy+" does not exist")
			}
			return nil, apperrors.MapError(err)
		}
		comment.CreatedBy = *input.CreatedBy
	}
	if input.ParentID != nil {
		if err := s.checkParent(ctx, ticketID, "", *input.ParentID); err != nil {
			return nil, err
		}
		parentID := *input.ParentID
		comment.ParentID = &parentID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.events.emit(ctx, actor, events.EventCommentAdded, ticketID, events.CommentAddedPayload{
		CommentID:   comment.ID,
		ParentID:    comment.ParentID,
		TextPreview: stringPreview(comment.Text, 120),
	})
	return comment, nil
}

// Update edits a comment. Outside the admin view only its author may, and only its text.
func (s *CommentService) Update(ctx context.Context, actor *domain.User, aud Audience, ticketID, commentID string, input CommentEditInput) (*domain.Comment, error) {
	comment, err := s.load(ctx, actor, aud, auth.ActionUpdate, ticketID, commentID)
	if err != nil {
		return nil, err
	}
	if input.Text != nil {
		text, err := cleanField("comment_text", *input.Text, domain.CommentTextMaxLen)
		if err != nil {
			return nil, err
		}
		comment.Text = text
	}
	if aud == AudienceAdmin && input.ParentID != nil {
		if err := s.checkParent(ctx, ticketID, comment.ID, *input.ParentID); err != nil {
			return nil, err
		}
		parentID := *input.ParentID
		comment.ParentID = &parentID
	}
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, apperrors.NotFoundOr(err, "comment", commentID)
	}
	return comment, nil
}

// Delete removes a comment and its replies.
func (s *CommentService) Delete(ctx context.Context, actor *domain.User, aud Audience, ticketID, commentID string) error {
	comment, err := s.load(ctx, actor, aud, auth.ActionDelete, ticketID, commentID)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return apperrors.NotFoundOr(err, "comment", commentID)
	}
	return nil
}

// checkParent verifies parentID exists on ticketID and, when re-parenting selfID,
// that the move does not make the comment its own ancestor.
func (s *CommentService) checkParent(ctx context.Context, ticketID, selfID, parentID string) error {
	parent, err := s.comments.GetByID(ctx, parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewFieldError("parent", "Parent comment does not exist")
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if parent.TicketID != ticketID {
		return apperrors.NewFieldError("parent", parentTicketMismatch)
	}
	if selfID == "" {
		return nil
	}
	if parent.ID == selfID {
		return apperrors.NewFieldError("parent", "A comment cannot be its own parent")
	}
	ancestors, err := s.comments.Ancestors(ctx, parent.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, id := range ancestors {
		if id == selfID {
			return apperrors.NewFieldError("parent", "A comment cannot be moved under its own reply")
		}
	}
	return nil
}

// ticket runs the role check, loads the ticket and applies the participant gate.
func (s *CommentService) ticket(ctx context.Context, actor *domain.User, aud Audience, act auth.Action, ticketID string) (*domain.Ticket, error) {
	res := commentResource(aud)
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

// load fetches a comment of the ticket and applies the author gate.
func (s *CommentService) load(ctx context.Context, actor *domain.User, aud Audience, act auth.Action, ticketID, commentID string) (*domain.Comment, error) {
	res := commentResource(aud)
	if err := s.authz.Authorize(actor, res, act, nil); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", ticketID)
	}
	comment, err := s.inTicket(ctx, ticketID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, res, act, auth.CommentTarget(comment)); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) inTicket(ctx context.Context, ticketID, commentID string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "comment", commentID)
	}
	if comment.TicketID != ticketID {
		return nil, apperrors.NewNotFound("comment", map[string]any{"id": commentID})
	}
	return comment, nil
}
