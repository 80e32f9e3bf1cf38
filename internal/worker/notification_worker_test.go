package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	got    []events.Event
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestNotificationWorker_DrainsQueueOnClose(t *testing.T) {
	inner := &recordingPublisher{}
	w := NewNotificationWorker(inner, 8, nil)
	go w.Run()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, w.Publish(context.Background(), events.Event{ID: id}))
	}
	require.NoError(t, w.Close())

	require.Len(t, inner.got, 3)
	assert.Equal(t, "a", inner.got[0].ID)
	assert.True(t, inner.closed)
	assert.Error(t, w.Publish(context.Background(), events.Event{ID: "late"}))
}

func TestNotificationWorker_FullQueueRejects(t *testing.T) {
	w := NewNotificationWorker(&recordingPublisher{}, 1, nil)

	require.NoError(t, w.Publish(context.Background(), events.Event{ID: "first"}))
	assert.ErrorIs(t, w.Publish(context.Background(), events.Event{ID: "second"}), ErrQueueFull)

	go w.Run()
	require.NoError(t, w.Close())
}

func TestStartNotificationWorker_ForwardsDispatchedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	inner := &recordingPublisher{}
	w := StartNotificationWorker(dispatcher, inner, config.NotificationConfig{QueueSize: 4}, nil)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e1", Type: events.EventTicketCreated}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e2", Type: events.EventCommentAdded}))
	require.NoError(t, w.Close())

	require.Len(t, inner.got, 2)
	assert.Equal(t, events.EventCommentAdded, inner.got[1].Type)
}
