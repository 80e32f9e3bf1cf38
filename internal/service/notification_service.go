package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService logs domain events and forwards them to the broker.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil publisher keeps events local.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.forward)
	n.dispatcher.Subscribe(events.EventTicketReleased, n.forward)
	n.dispatcher.Subscribe(events.EventMarkAdded, n.handleMarkAdded)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.sendEmailNotificationStub(event)
	return n.forward(ctx, event)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.sendWebhookNotificationStub(event)
	return n.forward(ctx, event)
}

func (n *NotificationService) handleMarkAdded(ctx context.Context, event events.Event) error {
	n.sendWebhookNotificationStub(event)
	return n.forward(ctx, event)
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.sendEmailNotificationStub(event)
	return n.forward(ctx, event)
}

// forward logs the event and hands it to the broker.
func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	if n.publisher == nil {
		return nil
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("publish event failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
