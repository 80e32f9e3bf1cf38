package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestMarkCreateRequiresAssignment(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	carol := f.user(t, "carol", domain.RoleSupport)
	ticket := f.ticket(t, alice, "Disk full")
	ctx := context.Background()

	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)

	_, err = f.marks.Create(ctx, carol, AudienceSupport, ticket.ID, MarkInput{Comment: "looking"})
	assertStatus(t, err, http.StatusForbidden)

	mark, err := f.marks.Create(ctx, bob, AudienceSupport, ticket.ID, MarkInput{Comment: "looking"})
	require.NoError(t, err)
	assert.Equal(t, domain.MarkStatusInProgress, mark.Status)
	assert.Equal(t, bob.ID, mark.SupportUserID)
	assert.Equal(t, ticket.ID, mark.TicketID)

	// Reading is open to every support user.
	marks, total, err := f.marks.List(ctx, carol, AudienceSupport, ticket.ID, MarkQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, mark.ID, marks[0].ID)

	_, err = f.marks.Get(ctx, carol, AudienceSupport, ticket.ID, mark.ID)
	require.NoError(t, err)

	_, _, err = f.marks.List(ctx, alice, AudienceSupport, ticket.ID, MarkQuery{})
	assertStatus(t, err, http.StatusForbidden)
}

func TestMarkAuthorGate(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	carol := f.user(t, "carol", domain.RoleSupport)
	ticket := f.ticket(t, alice, "Phone")
	ctx := context.Background()

	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	mark, err := f.marks.Create(ctx, bob, AudienceSupport, ticket.ID, MarkInput{Comment: "first"})
	require.NoError(t, err)

	waiting := domain.MarkStatusWaitingForUserResponse
	_, err = f.marks.Update(ctx, carol, AudienceSupport, ticket.ID, mark.ID, MarkEditInput{Status: &waiting})
	assertStatus(t, err, http.StatusForbidden)
	assertStatus(t, f.marks.Delete(ctx, carol, AudienceSupport, ticket.ID, mark.ID), http.StatusForbidden)

	updated, err := f.marks.Update(ctx, bob, AudienceSupport, ticket.ID, mark.ID, MarkEditInput{Status: &waiting})
	require.NoError(t, err)
	assert.Equal(t, waiting, updated.Status)
	assert.Equal(t, "first", updated.Comment)

	bogus := domain.MarkStatus("SLEEPING")
	_, err = f.marks.Update(ctx, bob, AudienceSupport, ticket.ID, mark.ID, MarkEditInput{Status: &bogus})
	assertFieldError(t, err, "support_status")

	require.NoError(t, f.marks.Delete(ctx, bob, AudienceSupport, ticket.ID, mark.ID))
	_, err = f.marks.Get(ctx, bob, AudienceSupport, ticket.ID, mark.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestMarkMustBelongToTicket(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	first := f.ticket(t, alice, "First")
	second := f.ticket(t, alice, "Second")
	ctx := context.Background()

	mark, err := f.marks.Create(ctx, admin, AudienceAdmin, first.ID, MarkInput{Comment: "admin note"})
	require.NoError(t, err)

	_, err = f.marks.Get(ctx, admin, AudienceAdmin, second.ID, mark.ID)
	assertStatus(t, err, http.StatusNotFound)

	_, err = f.marks.Get(ctx, admin, AudienceAdmin, first.ID, mark.ID)
	require.NoError(t, err)
}

func TestMarksListNewestFirstWithFilters(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	carol := f.user(t, "carol", domain.RoleSupport)
	ticket := f.ticket(t, alice, "Server")
	ctx := context.Background()

	for _, support := range []*domain.User{bob, carol} {
		_, err := f.tickets.Take(ctx, support, ticket.ID)
		require.NoError(t, err)
	}
	clarify := domain.MarkStatusNeedsClarification
	older, err := f.marks.Create(ctx, bob, AudienceSupport, ticket.ID, MarkInput{Comment: "older", Status: &clarify})
	require.NoError(t, err)
	newer, err := f.marks.Create(ctx, carol, AudienceSupport, ticket.ID, MarkInput{Comment: "newer"})
	require.NoError(t, err)

	marks, _, err := f.marks.List(ctx, bob, AudienceSupport, ticket.ID, MarkQuery{})
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, newer.ID, marks[0].ID)
	assert.Equal(t, older.ID, marks[1].ID)

	byBob, total, err := f.marks.List(ctx, carol, AudienceSupport, ticket.ID, MarkQuery{SupportUserID: &bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, older.ID, byBob[0].ID)

	byStatus, _, err := f.marks.List(ctx, carol, AudienceSupport, ticket.ID, MarkQuery{Status: &clarify})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, older.ID, byStatus[0].ID)
}
