package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AppDependencies is everything the HTTP surface needs.
type AppDependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Authorizer *auth.Authorizer
	Users      auth.UserLookup
	Postgres   handlers.Pinger
	Redis      handlers.Pinger

	AuthService    *service.AuthService
	UserService    *service.UserService
	TicketService  *service.TicketService
	MarkService    *service.MarkService
	CommentService *service.CommentService
	HistoryService *service.HistoryService
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, deps.Metrics),
	})
	RegisterMiddlewares(app, logger, deps.Metrics, cfg.App.RequestTimeout())

	pages := cfg.Pagination
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Postgres, deps.Redis, deps.Metrics),
		Auth:           handlers.NewAuthHandler(deps.AuthService),
		Users:          handlers.NewUsersHandler(deps.UserService),
		AdminUsers:     handlers.NewAdminUsersHandler(deps.UserService, pages),
		UserTickets:    handlers.NewTicketsHandler(deps.TicketService, pages),
		SupportTickets: handlers.NewSupportTicketsHandler(deps.TicketService, pages),
		AdminTickets:   handlers.NewAdminTicketsHandler(deps.TicketService, deps.HistoryService, pages),
		SupportMarks:   handlers.NewMarksHandler(deps.MarkService, service.AudienceSupport, pages),
		AdminMarks:     handlers.NewMarksHandler(deps.MarkService, service.AudienceAdmin, pages),
		UserComments:   handlers.NewCommentsHandler(deps.CommentService, service.AudienceUser, pages),
		AdminComments:  handlers.NewCommentsHandler(deps.CommentService, service.AudienceAdmin, pages),
		AuthMiddleware: auth.NewAuthMiddleware(deps.AuthService.TokenManager(), deps.Users),
		Authorizer:     deps.Authorizer,
	})
	return app
}
