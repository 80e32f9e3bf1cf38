package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/repotest"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const testPassword = "Str0ng-passphrase"

type testServer struct {
	app   *fiber.App
	store *repotest.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repotest.NewStore()
	authz := auth.MustNewAuthorizer()
	dispatcher := events.NewInMemoryDispatcher()
	history := service.NewHistoryService(service.HistoryDependencies{
		HistoryRepo: store.History(),
		TicketRepo:  store.Tickets(),
		Authorizer:  authz,
	})
	history.RegisterHandlers(dispatcher)
	cfg := &config.Config{
		App:        config.AppConfig{Name: "helpdesk-test", Version: "test", RequestTimeoutSeconds: 5},
		Pagination: config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}

	app := NewApp(AppDependencies{
		Config:     cfg,
		Metrics:    observability.NewMetrics(),
		Authorizer: authz,
		Users:      store.Users(),
		AuthService: service.NewAuthService(service.AuthDependencies{
			UserRepo:     store.Users(),
			SessionRepo:  store.Sessions(),
			TokenManager: auth.NewTokenManager("router-secret", time.Minute, time.Hour),
		}),
		UserService: service.NewUserService(service.UserDependencies{
			UserRepo: store.Users(), Authorizer: authz, BcryptCost: bcrypt.MinCost,
		}),
		TicketService: service.NewTicketService(service.TicketDependencies{
			TicketRepo: store.Tickets(), UserRepo: store.Users(), Authorizer: authz, Dispatcher: dispatcher,
		}),
		MarkService: service.NewMarkService(service.MarkDependencies{
			MarkRepo: store.Marks(), TicketRepo: store.Tickets(), Authorizer: authz, Dispatcher: dispatcher,
		}),
		CommentService: service.NewCommentService(service.CommentDependencies{
			CommentRepo: store.Comments(), TicketRepo: store.Tickets(), UserRepo: store.Users(), Authorizer: authz, Dispatcher: dispatcher,
		}),
		HistoryService: history,
	})
	return &testServer{app: app, store: store}
}

// login creates an account with role and returns an access token for it.
func (s *testServer) login(t *testing.T, username string, role domain.Role) (string, *domain.User) {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, s.store.Users().Create(context.Background(), user))

	status, body := s.do(t, http.MethodPost, "/token/", "", map[string]any{"username": username, "password": testPassword})
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	return data["access"].(string), user
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "data")
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/users/register/", "", map[string]any{
		"username": "dana", "email": "not-an-email", "password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/users/register/", "", map[string]any{
		"username": "dana", "email": "dana@example.com", "password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "USER", body["data"].(map[string]any)["role"])

	status, body = s.do(t, http.MethodPost, "/token/", "", map[string]any{"username": "dana", "password": "nope-nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No active account found with the given credentials", body["error"].(map[string]any)["message"])

	status, body = s.do(t, http.MethodPost, "/token/", "", map[string]any{"username": "dana", "password": "correct-horse-battery"})
	require.Equal(t, http.StatusOK, status)
	tokens := body["data"].(map[string]any)

	status, body = s.do(t, http.MethodGet, "/users/me/", tokens["access"].(string), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dana", body["data"].(map[string]any)["username"])
	assert.NotContains(t, body["data"], "is_staff")

	status, body = s.do(t, http.MethodPost, "/token/refresh/", "", map[string]any{"refresh": tokens["refresh"]})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, tokens["refresh"], body["data"].(map[string]any)["refresh"])

	status, _ = s.do(t, http.MethodPost, "/token/refresh/", "", map[string]any{"refresh": tokens["refresh"]})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/tickets/user/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, http.MethodGet, "/tickets/user/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	aliceToken, _ := s.login(t, "alice", domain.RoleUser)
	bobToken, bob := s.login(t, "bob", domain.RoleSupport)
	carolToken, _ := s.login(t, "carol", domain.RoleSupport)

	status, body := s.do(t, http.MethodPost, "/tickets/user/", aliceToken, map[string]any{"title": "Printer", "description": "jammed"})
	require.Equal(t, http.StatusCreated, status, body)
	ticket := body["data"].(map[string]any)
	ticketID := ticket["id"].(string)
	assert.Equal(t, "OPEN", ticket["status"])
	assert.NotContains(t, ticket, "priority")

	status, body = s.do(t, http.MethodPost, "/tickets/user/", aliceToken, map[string]any{"title": "Printer", "description": "again"})
	assert.Equal(t, http.StatusBadRequest, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "This title is already in use.", details["title"])

	status, _ = s.do(t, http.MethodGet, "/tickets/user/", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/tickets/support/"+ticketID+"/", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/tickets/support/"+ticketID+"/take/", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "successfully assigned to ticket: "+ticketID, body["message"])

	status, body = s.do(t, http.MethodGet, "/tickets/support/", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["count"])

	status, _ = s.do(t, http.MethodPatch, "/tickets/support/"+ticketID+"/", bobToken, map[string]any{"status": "CLOSED"})
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	status, _ = s.do(t, http.MethodPost, "/tickets/support/", bobToken, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, _ = s.do(t, http.MethodPost, "/tickets/support/"+ticketID+"/marks/", carolToken, map[string]any{"comment": "peek"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/tickets/support/"+ticketID+"/marks/", bobToken, map[string]any{"comment": "checking toner"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "IN_PROGRESS", body["data"].(map[string]any)["support_status"])

	status, body = s.do(t, http.MethodGet, "/tickets/support/"+ticketID+"/marks/", carolToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodPut, "/tickets/support/"+ticketID+"/", bobToken, map[string]any{"status": "CLOSED"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, http.MethodGet, "/tickets/user/"+ticketID+"/", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CLOSED", body["data"].(map[string]any)["status"])
	assert.Equal(t, bob.ID, body["data"].(map[string]any)["completed_by"])
	assert.Equal(t, []any{bob.ID}, body["data"].(map[string]any)["assigned_to"])

	status, _ = s.do(t, http.MethodGet, "/tickets/user/not-a-uuid/", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	adminToken, _ := s.login(t, "root", domain.RoleAdmin)
	status, body = s.do(t, http.MethodGet, "/tickets/admin/"+ticketID+"/history/", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	entries := body["data"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, "STATUS", entries[2].(map[string]any)["change_type"])
	assert.Equal(t, "CLOSED", entries[2].(map[string]any)["new_value"])

	status, _ = s.do(t, http.MethodGet, "/tickets/admin/"+ticketID+"/history/", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestCommentsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	aliceToken, _ := s.login(t, "alice", domain.RoleUser)
	malloryToken, _ := s.login(t, "mallory", domain.RoleUser)

	_, body := s.do(t, http.MethodPost, "/tickets/user/", aliceToken, map[string]any{"title": "Thread", "description": "d"})
	ticketID := body["data"].(map[string]any)["id"].(string)
	base := "/tickets/user/" + ticketID + "/comments/"

	status, body := s.do(t, http.MethodPost, base, aliceToken, map[string]any{"comment_text": "root"})
	require.Equal(t, http.StatusCreated, status, body)
	rootID := body["data"].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodPost, base, aliceToken, map[string]any{"comment_text": "reply", "parent": rootID})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, rootID, body["data"].(map[string]any)["parent"])

	status, body = s.do(t, http.MethodGet, base+rootID+"/replies/", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodGet, base, malloryToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodDelete, base+rootID+"/", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Comment deleted", body["message"])
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, "root", domain.RoleAdmin)
	userToken, _ := s.login(t, "alice", domain.RoleUser)
	s.login(t, "bob", domain.RoleSupport)

	status, _ := s.do(t, http.MethodGet, "/admin/users/", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodGet, "/admin/users/roles_count/", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["USER"])
	assert.EqualValues(t, 1, body["SUPPORT"])
	assert.EqualValues(t, 1, body["ADMIN"])

	status, body = s.do(t, http.MethodGet, "/admin/users/active_count/", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["active"])

	status, body = s.do(t, http.MethodGet, "/admin/users/?role=SUPPORT", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	users := body["data"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, true, users[0].(map[string]any)["is_staff"])
	assert.Equal(t, false, users[0].(map[string]any)["is_superuser"])

	status, body = s.do(t, http.MethodGet, "/tickets/admin/most_active/", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["most_active_support"])

	status, body = s.do(t, http.MethodPost, "/tickets/admin/created/", adminToken, map[string]any{
		"created_first": "2000-01-01", "created_second": "2100-01-01",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 0, body["result"])

	status, _ = s.do(t, http.MethodPut, "/admin/users/"+"00000000-0000-0000-0000-000000000000"+"/", adminToken, map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
}
