package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestRegisterCreatesActiveUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.users.Register(context.Background(), RegisterInput{
		Username: " dana ",
		Email:    "dana@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff())
	assert.False(t, user.IsSuperuser())
	assert.NotEqual(t, "correct-horse-battery", user.PasswordHash)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.user(t, "erin", domain.RoleUser)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Username: "erin", Email: "other@example.com", Password: "correct-horse-battery"})
	assertFieldError(t, err, "username")
	assert.Equal(t, "This username is already in use.", apperrors.ToDomainError(err).Details["username"])

	_, err = f.users.Register(ctx, RegisterInput{Username: "erin2", Email: "ERIN@example.com", Password: "correct-horse-battery"})
	assertFieldError(t, err, "email")
}

func TestRegisterPasswordRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Username: "frank", Email: "frank@example.com", Password: "12345678"})
	assertFieldError(t, err, "password")
	problems, ok := apperrors.ToDomainError(err).Details["password"].([]string)
	require.True(t, ok)
	assert.Contains(t, problems, "This password is entirely numeric.")
	assert.Contains(t, problems, "This password is too common.")

	_, err = f.users.Register(ctx, RegisterInput{Username: "frank", Email: "frank@example.com", Password: "xxfrankxx99"})
	assertFieldError(t, err, "password")

	_, err = f.users.Register(ctx, RegisterInput{Username: "bad name", Email: "frank@example.com", Password: "correct-horse-battery"})
	assertFieldError(t, err, "username")
}

func TestProfileSelfGate(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	admin := f.user(t, "root", domain.RoleAdmin)
	ctx := context.Background()

	_, err := f.users.Get(ctx, alice, bob.ID)
	assertStatus(t, err, http.StatusForbidden)

	got, err := f.users.Get(ctx, admin, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	email := "alice@new.example.com"
	updated, err := f.users.Update(ctx, alice, alice.ID, ProfileEditInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	taken := "bob"
	_, err = f.users.Update(ctx, alice, alice.ID, ProfileEditInput{Username: &taken})
	assertFieldError(t, err, "username")

	require.NoError(t, f.users.Delete(ctx, alice, alice.ID))
	_, err = f.users.Get(ctx, admin, alice.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestDeletingUserCascades(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	ticket := f.ticket(t, alice, "Cascade")
	ctx := context.Background()

	_, err := f.tickets.Take(ctx, bob, ticket.ID)
	require.NoError(t, err)
	_, err = f.tickets.CloseForSupport(ctx, bob, ticket.ID)
	require.NoError(t, err)

	require.NoError(t, f.users.AdminDelete(ctx, admin, bob.ID))
	stored, err := f.tickets.GetForAdmin(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedBy)
	assert.Empty(t, stored.AssignedTo)

	require.NoError(t, f.users.AdminDelete(ctx, admin, alice.ID))
	_, err = f.tickets.GetForAdmin(ctx, admin, ticket.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	ctx := context.Background()

	_, err := f.users.AdminCreate(ctx, admin, AdminUserInput{
		Username: "gina", Email: "gina@example.com", Password: "correct-horse-battery", Role: "OWNER",
	})
	assertFieldError(t, err, "role")

	inactive := false
	gina, err := f.users.AdminCreate(ctx, admin, AdminUserInput{
		Username: "gina", Email: "gina@example.com", Password: "correct-horse-battery",
		Role: domain.RoleSupport, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.True(t, gina.IsStaff())
	assert.False(t, gina.IsSuperuser())
	assert.False(t, gina.IsActive)

	promote := domain.RoleAdmin
	promoted, err := f.users.AdminUpdate(ctx, admin, gina.ID, AdminUserEditInput{Role: &promote})
	require.NoError(t, err)
	assert.True(t, promoted.IsSuperuser())

	role := domain.RoleUser
	users, total, err := f.users.AdminList(ctx, admin, UserQuery{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, alice.ID, users[0].ID)

	_, _, err = f.users.AdminList(ctx, alice, UserQuery{})
	assertStatus(t, err, http.StatusForbidden)
}

func TestUserStats(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	f.user(t, "bob", domain.RoleSupport)
	f.user(t, "carol", domain.RoleSupport)
	ctx := context.Background()

	inactive := false
	_, err := f.users.AdminUpdate(ctx, admin, alice.ID, AdminUserEditInput{IsActive: &inactive})
	require.NoError(t, err)

	counts, err := f.users.ActiveCount(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.UserActivityCounts{Active: 3, Inactive: 1}, counts)

	roles, err := f.users.RolesCount(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Role]int{domain.RoleUser: 1, domain.RoleSupport: 2, domain.RoleAdmin: 1}, roles)

	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	f.store.SetDateJoined(alice.ID, march)
	registered, err := f.users.RegisteredCount(ctx, admin, march, march.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, registered)

	_, err = f.users.RegisteredCount(ctx, admin, march, march.Add(-time.Hour))
	assertFieldError(t, err, "end_date")

	_, err = f.users.ActiveCount(ctx, alice)
	assertStatus(t, err, http.StatusForbidden)
}

func TestDemotingSupportDropsAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "root", domain.RoleAdmin)
	alice := f.user(t, "alice", domain.RoleUser)
	bob := f.user(t, "bob", domain.RoleSupport)
	carol := f.user(t, "carol", domain.RoleSupport)
	first := f.ticket(t, alice, "Laptop")
	second := f.ticket(t, alice, "Phone")
	for _, id := range []string{first.ID, second.ID} {
		_, err := f.tickets.Take(ctx, bob, id)
		require.NoError(t, err)
	}
	_, err := f.tickets.Take(ctx, carol, first.ID)
	require.NoError(t, err)

	email := "bob@example.org"
	_, err = f.users.AdminUpdate(ctx, admin, bob.ID, AdminUserEditInput{Email: &email})
	require.NoError(t, err)
	stored, err := f.tickets.GetForAdmin(ctx, admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, stored.AssignedTo)

	demoted := domain.RoleUser
	_, err = f.users.AdminUpdate(ctx, admin, bob.ID, AdminUserEditInput{Role: &demoted})
	require.NoError(t, err)

	stored, err = f.tickets.GetForAdmin(ctx, admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{carol.ID}, stored.AssignedTo)
	stored, err = f.tickets.GetForAdmin(ctx, admin, second.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedTo)
}
