package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestHistoryRecordsTicketLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)

	ticket := f.ticket(t, alice, "VPN down")
	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	_, err = f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	_, err = f.tickets.UpdateStatusForSupport(ctx, bob, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	_, err = f.tickets.Release(ctx, bob, ticket.ID)
	require.NoError(t, err)

	entries, err := f.history.List(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	changes := make([]domain.HistoryChange, 0, len(entries))
	for _, e := range entries {
		changes = append(changes, e.ChangeType)
	}
	assert.Equal(t, []domain.HistoryChange{
		domain.HistoryCreated,
		domain.HistoryAssigned,
		domain.HistoryStatus,
		domain.HistoryUnassigned,
	}, changes)

	assert.Equal(t, alice.ID, *entries[0].ChangedBy)
	assert.Equal(t, "VPN down", *entries[0].NewValue)
	assert.Equal(t, bob.ID, *entries[1].NewValue)
	assert.Equal(t, "OPEN", *entries[2].OldValue)
	assert.Equal(t, "CLOSED", *entries[2].NewValue)
	assert.Equal(t, bob.ID, *entries[3].OldValue)
	assert.Nil(t, entries[3].NewValue)
}

func TestHistoryIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	admin := f.user(t, "root", domain.RoleAdmin)
	ticket := f.ticket(t, alice, "Locked out")

	_, err := f.history.List(ctx, alice, ticket.ID)
	assertStatus(t, err, http.StatusForbidden)

	_, err = f.history.List(ctx, admin, uuid.NewString())
	assertStatus(t, err, http.StatusNotFound)
}

func TestHistoryKeepsEntriesOfDeletedActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)
	ticket := f.ticket(t, alice, "Monitor flicker")

	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Delete(ctx, bob.ID))

	entries, err := f.history.List(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[1].ChangedBy)
}
