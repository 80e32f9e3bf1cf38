package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ErrQueueFull is returned when the relay buffer cannot take another event.
var ErrQueueFull = errors.New("notification queue full")

const publishTimeout = 5 * time.Second

// NotificationWorker relays events to the broker from a background goroutine so a
// slow broker never holds up a request.
type NotificationWorker struct {
	inner  events.Publisher
	queue  chan events.Event
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewNotificationWorker wraps inner with a buffered queue.
func NewNotificationWorker(inner events.Publisher, buffer int, logger *zap.Logger) *NotificationWorker {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		inner:  inner,
		queue:  make(chan events.Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish enqueues the event without blocking.
func (w *NotificationWorker) Publish(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errors.New("notification worker closed")
	}
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping event, queue full", zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

// Run drains the queue until Close is called. Events still queued at that point are
// delivered before Run returns.
func (w *NotificationWorker) Run() {
	defer close(w.done)
	for event := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := w.inner.Publish(ctx, event); err != nil {
			w.logger.Warn("broker publish failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events, waits for the queue to drain and closes the broker.
func (w *NotificationWorker) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return w.inner.Close()
}

// StartNotificationWorker starts the relay in front of inner and subscribes the
// notification handlers that feed it. Without a broker the handlers only log.
func StartNotificationWorker(dispatcher events.Dispatcher, inner events.Publisher, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	if inner == nil {
		service.NewNotificationService(dispatcher, nil, logger, cfg).RegisterHandlers()
		return nil
	}
	w := NewNotificationWorker(inner, cfg.QueueSize, logger)
	go w.Run()
	service.NewNotificationService(dispatcher, w, logger, cfg).RegisterHandlers()
	return w
}
