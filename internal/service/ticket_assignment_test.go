package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// loadHookTickets runs afterLoad once, right after the next GetByID returns, so a
// concurrent write can land between a service's read and its own write.
type loadHookTickets struct {
	repository.TicketRepository
	afterLoad func()
}

func (r *loadHookTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, id)
	if hook := r.afterLoad; hook != nil {
		r.afterLoad = nil
		hook()
	}
	return ticket, err
}

func (f *fixture) hookedTickets(afterLoad func()) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: &loadHookTickets{TicketRepository: f.store.Tickets(), afterLoad: afterLoad},
		UserRepo:   f.store.Users(),
		Authorizer: auth.MustNewAuthorizer(),
	})
}

func TestOwnerCloseKeepsConcurrentTake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)
	ticket := f.ticket(t, alice, "Keyboard")

	owner := f.hookedTickets(func() {
		_, err := f.tickets.Take(ctx, bob, ticket.ID)
		require.NoError(t, err)
	})
	closed, err := owner.CloseForUser(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Contains(t, closed.AssignedTo, bob.ID)

	stored, err := f.tickets.GetForAdmin(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, stored.AssignedTo)
}

func TestOwnerEditKeepsConcurrentRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)
	ticket := f.ticket(t, alice, "Mouse")
	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)

	owner := f.hookedTickets(func() {
		_, err := f.tickets.Release(ctx, bob, ticket.ID)
		require.NoError(t, err)
	})
	renamed := "Wireless mouse"
	_, err = owner.UpdateForUser(ctx, alice, ticket.ID, TicketEditInput{Title: &renamed})
	require.NoError(t, err)

	stored, err := f.tickets.GetForAdmin(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wireless mouse", stored.Title)
	assert.Empty(t, stored.AssignedTo)
}

func TestAdminReassignmentEmitsDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	carol := f.user(t, "carol", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)
	ticket := f.ticket(t, alice, "Docking station")
	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)

	next := []string{carol.ID, carol.ID}
	updated, err := f.tickets.UpdateForAdmin(ctx, admin, ticket.ID, AdminTicketEditInput{AssignedTo: &next})
	require.NoError(t, err)
	assert.Equal(t, []string{carol.ID}, updated.AssignedTo)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketAssigned,
		events.EventTicketReleased,
	}, f.events.types())

	entries, err := f.history.List(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, domain.HistoryAssigned, entries[2].ChangeType)
	assert.Equal(t, carol.ID, *entries[2].NewValue)
	assert.Equal(t, admin.ID, *entries[2].ChangedBy)
	assert.Equal(t, domain.HistoryUnassigned, entries[3].ChangeType)
	assert.Equal(t, bob.ID, *entries[3].OldValue)

	f.events.got = nil
	_, err = f.tickets.UpdateForAdmin(ctx, admin, ticket.ID, AdminTicketEditInput{AssignedTo: &next})
	require.NoError(t, err)
	assert.Empty(t, f.events.types())

	title := "Docking station v2"
	kept, err := f.tickets.UpdateForAdmin(ctx, admin, ticket.ID, AdminTicketEditInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, []string{carol.ID}, kept.AssignedTo)
}

func TestAdminCreateRecordsAssignees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)

	ticket, err := f.tickets.CreateForAdmin(ctx, admin, AdminTicketInput{
		Title: "Staged", Description: "d", AssignedTo: []string{bob.ID},
	})
	require.NoError(t, err)

	entries, err := f.history.List(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryCreated, entries[0].ChangeType)
	assert.Equal(t, domain.HistoryAssigned, entries[1].ChangeType)
	assert.Equal(t, bob.ID, *entries[1].NewValue)
}
