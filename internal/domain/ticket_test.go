package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketClosedAtFollowsStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	support := "support-1"
	ticket := &Ticket{Status: TicketStatusOpen}

	ticket.Close(now, &support)
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, now, *ticket.ClosedAt)
	assert.Equal(t, support, *ticket.CompletedBy)

	ticket.SetStatus(TicketStatusClosed, now.Add(time.Hour))
	assert.Equal(t, now, *ticket.ClosedAt, "closing twice keeps the first timestamp")

	ticket.SetStatus(TicketStatusInProgress, now)
	assert.Nil(t, ticket.ClosedAt)
	assert.Nil(t, ticket.CompletedBy)
	assert.False(t, ticket.IsClosed())
}

func TestTicketUserIDs(t *testing.T) {
	completer := "c"
	ticket := Ticket{CreatedBy: "a", AssignedTo: []string{"b", "c"}, CompletedBy: &completer}
	assert.Equal(t, []string{"a", "b", "c", "c"}, ticket.UserIDs())
	assert.True(t, ticket.IsAssigned("b"))
	assert.False(t, ticket.IsAssigned("a"))
}

func TestRoleFlags(t *testing.T) {
	cases := []struct {
		role      Role
		staff     bool
		superuser bool
	}{
		{RoleUser, false, false},
		{RoleSupport, true, false},
		{RoleAdmin, true, true},
	}
	for _, tc := range cases {
		u := User{Role: tc.role}
		assert.Equal(t, tc.staff, u.IsStaff(), tc.role)
		assert.Equal(t, tc.superuser, u.IsSuperuser(), tc.role)
	}
	assert.False(t, Role("ROOT").Valid())
}
