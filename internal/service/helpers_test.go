package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/repotest"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type eventLog struct {
	mu  sync.Mutex
	got []events.Event
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.got))
	for _, e := range l.got {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *repotest.Store
	events   *eventLog
	tickets  *TicketService
	marks    *MarkService
	comments *CommentService
	users    *UserService
	auth     *AuthService
	history  *HistoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	authz := auth.MustNewAuthorizer()
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	for _, typ := range events.AllEventTypes {
		dispatcher.Subscribe(typ, func(_ context.Context, e events.Event) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.got = append(log.got, e)
			return nil
		})
	}

	history := NewHistoryService(HistoryDependencies{
		HistoryRepo: store.History(),
		TicketRepo:  store.Tickets(),
		Authorizer:  authz,
	})
	history.RegisterHandlers(dispatcher)

	return &fixture{
		store:   store,
		events:  log,
		history: history,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: store.Tickets(),
			UserRepo:   store.Users(),
			Authorizer: authz,
			Dispatcher: dispatcher,
		}),
		marks: NewMarkService(MarkDependencies{
			MarkRepo:   store.Marks(),
			TicketRepo: store.Tickets(),
			Authorizer: authz,
			Dispatcher: dispatcher,
		}),
		comments: NewCommentService(CommentDependencies{
			CommentRepo: store.Comments(),
			TicketRepo:  store.Tickets(),
			UserRepo:    store.Users(),
			Authorizer:  authz,
			Dispatcher:  dispatcher,
		}),
		users: NewUserService(UserDependencies{
			UserRepo:   store.Users(),
			Authorizer: authz,
			BcryptCost: bcrypt.MinCost,
		}),
		auth: NewAuthService(AuthDependencies{
			UserRepo:     store.Users(),
			SessionRepo:  store.Sessions(),
			TokenManager: auth.NewTokenManager("test-secret", time.Minute, time.Hour),
		}),
	}
}

// user inserts an active account straight into the store.
func (f *fixture) user(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("Str0ng-passphrase", bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) ticket(t *testing.T, owner *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateForUser(context.Background(), owner, TicketCreateInput{
		Title:       title,
		Description: "details for " + title,
	})
	require.NoError(t, err)
	return ticket
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperrors.ToDomainError(err).HTTPStatus, "error: %v", err)
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, apperrors.ToDomainError(err).Details, field)
}
