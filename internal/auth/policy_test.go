package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newTestAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer()
	require.NoError(t, err)
	return a
}

func TestAuthorize_AnonymousIsUnauthorized(t *testing.T) {
	a := newTestAuthorizer(t)

	err := a.Authorize(nil, ResourceUserTicket, ActionList, nil)

	require.Error(t, err)
	assert.True(t, apperrors.HasStatus(err, http.StatusUnauthorized))
}

func TestAuthorize_RoleGate(t *testing.T) {
	a := newTestAuthorizer(t)
	user := &domain.User{ID: "u1", Role: domain.RoleUser}
	support := &domain.User{ID: "s1", Role: domain.RoleSupport}
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}

	tests := []struct {
		name    string
		user    *domain.User
		res     Resource
		act     Action
		allowed bool
	}{
		{"user lists own tickets", user, ResourceUserTicket, ActionList, true},
		{"user cannot use support view", user, ResourceSupportTicket, ActionList, false},
		{"support cannot create user tickets", support, ResourceUserTicket, ActionCreate, false},
		{"support takes tickets", support, ResourceSupportTicket, ActionTake, true},
		{"admin cannot take tickets", admin, ResourceSupportTicket, ActionTake, false},
		{"admin reads stats", admin, ResourceAdminTicket, ActionStats, true},
		{"support cannot read admin stats", support, ResourceAdminTicket, ActionStats, false},
		{"user cannot list marks", user, ResourceMark, ActionList, false},
		{"admin manages users", admin, ResourceAdminUser, ActionCreate, true},
		{"user cannot manage users", user, ResourceAdminUser, ActionList, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(tt.user, tt.res, tt.act, nil)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))
		})
	}
}

func TestAuthorize_ObjectGates(t *testing.T) {
	a := newTestAuthorizer(t)
	alice := &domain.User{ID: "alice", Role: domain.RoleUser}
	mallory := &domain.User{ID: "mallory", Role: domain.RoleUser}
	bob := &domain.User{ID: "bob", Role: domain.RoleSupport}
	carol := &domain.User{ID: "carol", Role: domain.RoleSupport}
	admin := &domain.User{ID: "root", Role: domain.RoleAdmin}

	ticket := &domain.Ticket{ID: "t1", CreatedBy: "alice", AssignedTo: []string{"bob"}}
	mark := &domain.SupportTicketMark{ID: "m1", TicketID: "t1", SupportUserID: "bob"}
	comment := &domain.Comment{ID: "c1", TicketID: "t1", CreatedBy: "alice"}

	assert.True(t, a.Allowed(alice, ResourceUserTicket, ActionUpdate, TicketTarget(ticket)))
	assert.False(t, a.Allowed(mallory, ResourceUserTicket, ActionUpdate, TicketTarget(ticket)))

	assert.True(t, a.Allowed(bob, ResourceSupportTicket, ActionRetrieve, TicketTarget(ticket)))
	assert.False(t, a.Allowed(carol, ResourceSupportTicket, ActionRetrieve, TicketTarget(ticket)))

	assert.True(t, a.Allowed(bob, ResourceMark, ActionCreate, TicketTarget(ticket)))
	assert.False(t, a.Allowed(carol, ResourceMark, ActionCreate, TicketTarget(ticket)))
	assert.True(t, a.Allowed(carol, ResourceMark, ActionRetrieve, MarkTarget(mark)))
	assert.False(t, a.Allowed(carol, ResourceMark, ActionUpdate, MarkTarget(mark)))
	assert.True(t, a.Allowed(bob, ResourceMark, ActionDelete, MarkTarget(mark)))

	assert.True(t, a.Allowed(bob, ResourceComment, ActionCreate, TicketTarget(ticket)))
	assert.False(t, a.Allowed(mallory, ResourceComment, ActionList, TicketTarget(ticket)))
	assert.True(t, a.Allowed(alice, ResourceComment, ActionUpdate, CommentTarget(comment)))
	assert.False(t, a.Allowed(bob, ResourceComment, ActionUpdate, CommentTarget(comment)))

	assert.True(t, a.Allowed(alice, ResourceProfile, ActionRetrieve, UserTarget("alice")))
	assert.False(t, a.Allowed(alice, ResourceProfile, ActionRetrieve, UserTarget("bob")))
	assert.True(t, a.Allowed(admin, ResourceProfile, ActionDelete, UserTarget("bob")))
}

func TestAuthorize_RoleCheckedBeforeObject(t *testing.T) {
	a := newTestAuthorizer(t)
	owner := &domain.User{ID: "alice", Role: domain.RoleUser}
	ticket := &domain.Ticket{ID: "t1", CreatedBy: "alice"}

	err := a.Authorize(owner, ResourceAdminTicket, ActionRetrieve, TicketTarget(ticket))

	require.Error(t, err)
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))
}

func TestParsePolicyTable_RejectsMalformedRows(t *testing.T) {
	_, err := parsePolicyTable("USER, ticket.user, list\n")
	assert.Error(t, err)
}
