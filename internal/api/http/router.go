package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AdminUsers     *handlers.AdminUsersHandler
	UserTickets    *handlers.TicketsHandler
	SupportTickets *handlers.SupportTicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	SupportMarks   *handlers.MarksHandler
	AdminMarks     *handlers.MarksHandler
	UserComments   *handlers.CommentsHandler
	AdminComments  *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Authorizer     *auth.Authorizer
}

// RegisterRoutes wires HTTP routes. Every protected route runs the authentication and
// role checks of the policy table before its handler; services apply object gates.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/token/", cfg.Auth.Token)
	app.Post("/token/refresh/", cfg.Auth.Refresh)
	app.Post("/users/register/", cfg.Users.Register)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	require := cfg.Authorizer.Require

	users := protected.Group("/users")
	users.Get("/:id/", cfg.Users.GetUser)
	users.Put("/:id/", cfg.Users.UpdateUser)
	users.Patch("/:id/", cfg.Users.UpdateUser)
	users.Delete("/:id/", cfg.Users.DeleteUser)

	adminUsers := protected.Group("/admin/users")
	adminUsers.Get("/active_count/", require(auth.ResourceAdminUser, auth.ActionStats), cfg.AdminUsers.ActiveCount)
	adminUsers.Post("/registered_count/", require(auth.ResourceAdminUser, auth.ActionStats), cfg.AdminUsers.RegisteredCount)
	adminUsers.Get("/roles_count/", require(auth.ResourceAdminUser, auth.ActionStats), cfg.AdminUsers.RolesCount)
	adminUsers.Get("/", require(auth.ResourceAdminUser, auth.ActionList), cfg.AdminUsers.ListUsers)
	adminUsers.Post("/", require(auth.ResourceAdminUser, auth.ActionCreate), cfg.AdminUsers.CreateUser)
	adminUsers.Get("/:id/", require(auth.ResourceAdminUser, auth.ActionRetrieve), cfg.AdminUsers.GetUser)
	adminUsers.Put("/:id/", require(auth.ResourceAdminUser, auth.ActionUpdate), cfg.AdminUsers.ReplaceUser)
	adminUsers.Patch("/:id/", require(auth.ResourceAdminUser, auth.ActionUpdate), cfg.AdminUsers.PatchUser)
	adminUsers.Delete("/:id/", require(auth.ResourceAdminUser, auth.ActionDelete), cfg.AdminUsers.DeleteUser)

	userTickets := protected.Group("/tickets/user")
	userTickets.Get("/", require(auth.ResourceUserTicket, auth.ActionList), cfg.UserTickets.ListTickets)
	userTickets.Post("/", require(auth.ResourceUserTicket, auth.ActionCreate), cfg.UserTickets.CreateTicket)
	userTickets.Get("/:id/", require(auth.ResourceUserTicket, auth.ActionRetrieve), cfg.UserTickets.GetTicket)
	userTickets.Put("/:id/", require(auth.ResourceUserTicket, auth.ActionUpdate), cfg.UserTickets.ReplaceTicket)
	userTickets.Patch("/:id/", require(auth.ResourceUserTicket, auth.ActionUpdate), cfg.UserTickets.PatchTicket)
	userTickets.Delete("/:id/", require(auth.ResourceUserTicket, auth.ActionDelete), cfg.UserTickets.CloseTicket)
	registerComments(userTickets, cfg.UserComments, auth.ResourceComment, require)

	supportTickets := protected.Group("/tickets/support")
	supportTickets.Get("/", require(auth.ResourceSupportTicket, auth.ActionList), cfg.SupportTickets.ListTickets)
	supportTickets.Post("/", cfg.SupportTickets.MethodNotAllowed)
	supportTickets.Get("/:id/", require(auth.ResourceSupportTicket, auth.ActionRetrieve), cfg.SupportTickets.GetTicket)
	supportTickets.Put("/:id/", require(auth.ResourceSupportTicket, auth.ActionUpdate), cfg.SupportTickets.UpdateStatus)
	supportTickets.Patch("/:id/", cfg.SupportTickets.MethodNotAllowed)
	supportTickets.Delete("/:id/", require(auth.ResourceSupportTicket, auth.ActionDelete), cfg.SupportTickets.CloseTicket)
	supportTickets.Post("/:id/take/", require(auth.ResourceSupportTicket, auth.ActionTake), cfg.SupportTickets.TakeTicket)
	supportTickets.Post("/:id/release/", require(auth.ResourceSupportTicket, auth.ActionRelease), cfg.SupportTickets.ReleaseTicket)
	registerMarks(supportTickets, cfg.SupportMarks, auth.ResourceMark, require)

	adminTickets := protected.Group("/tickets/admin")
	adminTickets.Post("/created/", require(auth.ResourceAdminTicket, auth.ActionStats), cfg.AdminTickets.CreatedBetween)
	adminTickets.Get("/most_active/", require(auth.ResourceAdminTicket, auth.ActionStats), cfg.AdminTickets.MostActive)
	adminTickets.Get("/", require(auth.ResourceAdminTicket, auth.ActionList), cfg.AdminTickets.ListTickets)
	adminTickets.Post("/", require(auth.ResourceAdminTicket, auth.ActionCreate), cfg.AdminTickets.CreateTicket)
	adminTickets.Get("/:id/", require(auth.ResourceAdminTicket, auth.ActionRetrieve), cfg.AdminTickets.GetTicket)
	adminTickets.Get("/:id/history/", require(auth.ResourceAdminTicket, auth.ActionRetrieve), cfg.AdminTickets.History)
	adminTickets.Put("/:id/", require(auth.ResourceAdminTicket, auth.ActionUpdate), cfg.AdminTickets.ReplaceTicket)
	adminTickets.Patch("/:id/", require(auth.ResourceAdminTicket, auth.ActionUpdate), cfg.AdminTickets.PatchTicket)
	adminTickets.Delete("/:id/", require(auth.ResourceAdminTicket, auth.ActionDelete), cfg.AdminTickets.DeleteTicket)
	registerMarks(adminTickets, cfg.AdminMarks, auth.ResourceAdminMark, require)
	registerComments(adminTickets, cfg.AdminComments, auth.ResourceAdminComment, require)
}

type guard func(auth.Resource, auth.Action) fiber.Handler

func registerMarks(parent fiber.Router, h *handlers.MarksHandler, res auth.Resource, require guard) {
	marks := parent.Group("/:ticket_id/marks")
	marks.Get("/", require(res, auth.ActionList), h.ListMarks)
	marks.Post("/", require(res, auth.ActionCreate), h.CreateMark)
	marks.Get("/:mark_id/", require(res, auth.ActionRetrieve), h.GetMark)
	marks.Put("/:mark_id/", require(res, auth.ActionUpdate), h.ReplaceMark)
	marks.Patch("/:mark_id/", require(res, auth.ActionUpdate), h.PatchMark)
	marks.Delete("/:mark_id/", require(res, auth.ActionDelete), h.DeleteMark)
}

func registerComments(parent fiber.Router, h *handlers.CommentsHandler, res auth.Resource, require guard) {
	comments := parent.Group("/:ticket_id/comments")
	comments.Get("/", require(res, auth.ActionList), h.ListComments)
	comments.Post("/", require(res, auth.ActionCreate), h.CreateComment)
	comments.Get("/:comment_id/", require(res, auth.ActionRetrieve), h.GetComment)
	comments.Get("/:comment_id/replies/", require(res, auth.ActionRetrieve), h.ListReplies)
	comments.Put("/:comment_id/", require(res, auth.ActionUpdate), h.UpdateComment)
	comments.Patch("/:comment_id/", require(res, auth.ActionUpdate), h.UpdateComment)
	comments.Delete("/:comment_id/", require(res, auth.ActionDelete), h.DeleteComment)
}
