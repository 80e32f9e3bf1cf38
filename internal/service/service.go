package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Audience selects which API surface a shared service method is serving.
type Audience string

const (
	AudienceUser    Audience = "user"
	AudienceSupport Audience = "support"
	AudienceAdmin   Audience = "admin"
)

// emitter publishes domain events on behalf of a service. Delivery failures are
// logged and never fail the request that produced the event.
type emitter struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newEmitter(dispatcher events.Dispatcher, logger *zap.Logger) emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return emitter{dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (e emitter) emit(ctx context.Context, actor *domain.User, typ events.EventType, ticketID string, payload any) {
	if e.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TicketID:  ticketID,
		Timestamp: e.now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{UserID: actor.ID, Role: actor.Role}
	}
	if err := e.dispatcher.Publish(ctx, event); err != nil {
		e.logger.Warn("event delivery failed",
			zap.String("event_type", string(typ)),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

// cleanField strips markup from s and checks the result is between 1 and max runes.
func cleanField(field, s string, max int) (string, error) {
	cleaned := apperrors.CleanText(s)
	if cleaned == "" {
		return "", apperrors.NewFieldError(field, field+" is required")
	}
	if utf8.RuneCountInString(cleaned) > max {
		return "", apperrors.NewFieldError(field, fmt.Sprintf("%s must be at most %d characters long", field, max))
	}
	return cleaned, nil
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
