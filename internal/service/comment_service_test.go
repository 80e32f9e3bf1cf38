package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestCommentParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	mallory := f.user(t, "mallory", domain.RoleUser)
	ticket := f.ticket(t, alice, "Login issue")
	ctx := context.Background()

	_, err := f.comments.Create(ctx, bob, AudienceUser, ticket.ID, CommentInput{Text: "on it"})
	assertStatus(t, err, http.StatusForbidden)

	_, err = f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)

	first, err := f.comments.Create(ctx, alice, AudienceUser, ticket.ID, CommentInput{Text: "<b>help</b> please"})
	require.NoError(t, err)
	assert.Equal(t, "help please", first.Text)
	assert.Equal(t, alice.ID, first.CreatedBy)

	_, err = f.comments.Create(ctx, bob, AudienceUser, ticket.ID, CommentInput{Text: "on it"})
	require.NoError(t, err)

	comments, total, err := f.comments.List(ctx, alice, AudienceUser, ticket.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, first.ID, comments[0].ID)

	_, _, err = f.comments.List(ctx, mallory, AudienceUser, ticket.ID, 20, 0)
	assertStatus(t, err, http.StatusForbidden)

	_, _, err = f.comments.List(ctx, alice, AudienceUser, "00000000-0000-0000-0000-000000000000", 20, 0)
	assertStatus(t, err, http.StatusNotFound)
}

func TestCommentParentMustShareTicket(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	one := f.ticket(t, alice, "One")
	two := f.ticket(t, alice, "Two")
	ctx := context.Background()

	root, err := f.comments.Create(ctx, alice, AudienceUser, one.ID, CommentInput{Text: "root"})
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, alice, AudienceUser, two.ID, CommentInput{Text: "stray", ParentID: &root.ID})
	assertFieldError(t, err, "parent")
	assert.Equal(t, "Parent comment must belong to the same ticket", apperrors.ToDomainError(err).Details["parent"])

	_, err = f.comments.Create(ctx, alice, AudienceUser, one.ID, CommentInput{Text: "lost", ParentID: strPtr("00000000-0000-0000-0000-000000000000")})
	assertFieldError(t, err, "parent")

	reply, err := f.comments.Create(ctx, alice, AudienceUser, one.ID, CommentInput{Text: "reply", ParentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)
}

func TestCommentRepliesAreDirectChildren(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	ticket := f.ticket(t, alice, "Thread")
	ctx := context.Background()

	root, err := f.comments.Create(ctx, alice, AudienceUser, ticket.ID, CommentInput{Text: "root"})
	require.NoError(t, err)
	child, err := f.comments.Create(ctx, alice, AudienceUser, ticket.ID, CommentInput{Text: "child", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, alice, AudienceUser, ticket.ID, CommentInput{Text: "grandchild", ParentID: &child.ID})
	require.NoError(t, err)

	replies, err := f.comments.Replies(ctx, alice, AudienceUser, ticket.ID, root.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, child.ID, replies[0].ID)

	require.NoError(t, f.comments.Delete(ctx, alice, AudienceUser, ticket.ID, root.ID))
	_, total, err := f.comments.List(ctx, alice, AudienceUser, ticket.ID, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCommentAuthorGate(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	ticket := f.ticket(t, alice, "Edits")
	ctx := context.Background()

	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	comment, err := f.comments.Create(ctx, alice, AudienceUser, ticket.ID, CommentInput{Text: "mine"})
	require.NoError(t, err)

	text := "hijacked"
	_, err = f.comments.Update(ctx, bob, AudienceUser, ticket.ID, comment.ID, CommentEditInput{Text: &text})
	assertStatus(t, err, http.StatusForbidden)
	assertStatus(t, f.comments.Delete(ctx, bob, AudienceUser, ticket.ID, comment.ID), http.StatusForbidden)

	text = "edited"
	updated, err := f.comments.Update(ctx, alice, AudienceUser, ticket.ID, comment.ID, CommentEditInput{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)
}

func TestAdminCommentCreateAndReparent(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	ticket := f.ticket(t, alice, "Admin thread")
	ctx := context.Background()

	_, err := f.comments.Create(ctx, admin, AudienceAdmin, ticket.ID, CommentInput{Text: "no author"})
	assertFieldError(t, err, "created_by")

	_, err = f.comments.Create(ctx, admin, AudienceAdmin, ticket.ID, CommentInput{Text: "ghost", CreatedBy: strPtr("00000000-0000-0000-0000-000000000000")})
	assertFieldError(t, err, "created_by")

	top, err := f.comments.Create(ctx, admin, AudienceAdmin, ticket.ID, CommentInput{Text: "top", CreatedBy: &alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, top.CreatedBy)
	middle, err := f.comments.Create(ctx, admin, AudienceAdmin, ticket.ID, CommentInput{Text: "middle", CreatedBy: &alice.ID, ParentID: &top.ID})
	require.NoError(t, err)
	leaf, err := f.comments.Create(ctx, admin, AudienceAdmin, ticket.ID, CommentInput{Text: "leaf", CreatedBy: &alice.ID, ParentID: &middle.ID})
	require.NoError(t, err)

	_, err = f.comments.Update(ctx, admin, AudienceAdmin, ticket.ID, top.ID, CommentEditInput{ParentID: &top.ID})
	assertFieldError(t, err, "parent")

	_, err = f.comments.Update(ctx, admin, AudienceAdmin, ticket.ID, top.ID, CommentEditInput{ParentID: &leaf.ID})
	assertFieldError(t, err, "parent")

	moved, err := f.comments.Update(ctx, admin, AudienceAdmin, ticket.ID, leaf.ID, CommentEditInput{ParentID: &top.ID})
	require.NoError(t, err)
	assert.Equal(t, top.ID, *moved.ParentID)

	// Outside the admin view the parent is ignored.
	_, err = f.comments.Update(ctx, alice, AudienceUser, ticket.ID, leaf.ID, CommentEditInput{ParentID: &middle.ID})
	require.NoError(t, err)
	stored, err := f.comments.Get(ctx, alice, AudienceUser, ticket.ID, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, top.ID, *stored.ParentID)
}
