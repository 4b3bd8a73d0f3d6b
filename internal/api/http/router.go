package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/http/handlers"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AdminAuth      *handlers.AdminAuthHandler
	Admins         *handlers.AdminsHandler
	UserAdmin      *handlers.UserAdminHandler
	Waitlist       *handlers.WaitlistHandler
	CuratedDates   *handlers.CuratedDatesHandler
	Dates          *handlers.DatesHandler
	Availability   *handlers.AvailabilityHandler
	Bookings       *handlers.BookingsHandler
	Analytics      *handlers.AnalyticsHandler
	Notifications  *handlers.NotificationsHandler
	Schema         *handlers.SchemaHandler
	AuthMiddleware *auth.AuthMiddleware
	// RateLimit guards credential endpoints; nil disables it.
	RateLimit fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	limit := cfg.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}
	authn := cfg.AuthMiddleware.Handle

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", limit, cfg.Users.Signup)
	authGroup.Post("/login", limit, cfg.Users.Login)
	authGroup.Post("/forgot-password", limit, cfg.Users.ForgotPassword)
	authGroup.Post("/reset-password", limit, cfg.Users.ResetPassword)
	authGroup.Post("/verify-email", cfg.Users.VerifyEmail)
	authGroup.Get("/validate-token", cfg.Users.ValidateToken)
	authGroup.Post("/logout", authn, auth.RequireAnyRole(), cfg.Users.Logout)
	authGroup.Get("/me", authn, auth.RequireUser(), cfg.Users.Me)

	api.Post("/waitlist", limit, cfg.Waitlist.Join)
	api.Get("/waitlist/count", cfg.Waitlist.Count)

	requireUser := auth.RequireUser()

	dates := api.Group("/dates", authn, requireUser)
	dates.Get("/", cfg.Dates.List)
	dates.Get("/:id", cfg.Dates.Get)
	dates.Post("/:id/confirm", cfg.Dates.Confirm)
	dates.Post("/:id/cancel", cfg.Dates.Cancel)
	dates.Post("/:id/feedback", cfg.Dates.SubmitFeedback)
	dates.Put("/:id/feedback", cfg.Dates.UpdateFeedback)
	dates.Get("/:id/feedback", cfg.Dates.GetFeedback)

	slots := api.Group("/availability", authn, requireUser)
	slots.Post("/", cfg.Availability.Create)
	slots.Get("/", cfg.Availability.List)
	slots.Get("/search", cfg.Availability.Search)
	slots.Get("/:id", cfg.Availability.Get)
	slots.Put("/:id", cfg.Availability.Update)
	slots.Post("/:id/cancel", cfg.Availability.Cancel)
	slots.Delete("/:id", cfg.Availability.Delete)

	bookings := api.Group("/bookings", authn, requireUser)
	bookings.Post("/", cfg.Bookings.Create)
	bookings.Get("/", cfg.Bookings.List)
	bookings.Get("/incoming", cfg.Bookings.Incoming)
	bookings.Get("/:id", cfg.Bookings.Get)
	bookings.Post("/:id/confirm", cfg.Bookings.Confirm)
	bookings.Post("/:id/cancel", cfg.Bookings.Cancel)
	bookings.Post("/:id/complete", cfg.Bookings.Complete)

	registerAdminRoutes(api, cfg, limit, authn)
}

func registerAdminRoutes(api fiber.Router, cfg RouteConfig, limit, authn fiber.Handler) {
	viewer := auth.RequireAdmin(domain.AdminLevelViewer)
	moderator := auth.RequireAdmin(domain.AdminLevelModerator)
	adminLevel := auth.RequireAdmin(domain.AdminLevelAdmin)
	superAdmin := auth.RequireAdmin(domain.AdminLevelSuperAdmin)

	// Login is registered ahead of the authenticated group so the group middleware never sees it.
	api.Post("/admin/auth/login", limit, cfg.AdminAuth.Login)

	admin := api.Group("/admin", authn, viewer)

	admin.Post("/auth/logout", cfg.AdminAuth.Logout)
	admin.Get("/auth/profile", cfg.AdminAuth.Profile)
	admin.Put("/auth/profile", cfg.AdminAuth.UpdateProfile)
	admin.Post("/auth/change-password", cfg.AdminAuth.ChangePassword)

	admins := admin.Group("/admins", superAdmin)
	admins.Post("/", cfg.Admins.Create)
	admins.Get("/", cfg.Admins.List)
	admins.Get("/:id", cfg.Admins.Get)
	admins.Put("/:id/permission", cfg.Admins.UpdatePermission)
	admins.Post("/:id/lock", cfg.Admins.Lock)
	admins.Post("/:id/unlock", cfg.Admins.Unlock)
	admins.Delete("/:id", cfg.Admins.Deactivate)

	users := admin.Group("/users", moderator)
	users.Get("/", cfg.UserAdmin.List)
	users.Get("/:id", cfg.UserAdmin.Get)
	users.Post("/:id/ban", cfg.UserAdmin.Ban)
	users.Post("/:id/unban", cfg.UserAdmin.Unban)
	users.Post("/:id/suspend", cfg.UserAdmin.Suspend)

	admin.Get("/waitlist", cfg.Waitlist.List)
	admin.Get("/waitlist/stats", cfg.Waitlist.Stats)
	admin.Post("/waitlist/:id/invite", adminLevel, cfg.Waitlist.Invite)
	admin.Delete("/waitlist/:id", adminLevel, cfg.Waitlist.Delete)

	curated := admin.Group("/curated-dates", adminLevel)
	curated.Post("/check-conflicts", cfg.CuratedDates.CheckConflicts)
	curated.Post("/", cfg.CuratedDates.Create)
	curated.Get("/", cfg.CuratedDates.List)
	curated.Get("/:id", cfg.CuratedDates.Get)
	curated.Put("/:id", cfg.CuratedDates.Update)
	curated.Delete("/:id", cfg.CuratedDates.Delete)
	curated.Post("/:id/complete", cfg.CuratedDates.Complete)
	curated.Post("/:id/no-show", cfg.CuratedDates.NoShow)
	curated.Get("/:id/workflow", cfg.CuratedDates.Workflow)
	curated.Post("/:id/workflow/:stage", cfg.CuratedDates.SetStage)
	curated.Get("/:id/history", cfg.CuratedDates.History)

	admin.Get("/dashboard/overview", cfg.Analytics.Overview)
	admin.Get("/dashboard/metrics", cfg.Analytics.Metrics)
	admin.Post("/dashboard/refresh", adminLevel, cfg.Analytics.Refresh)
	admin.Get("/revenue/analytics", cfg.Analytics.RevenueAnalytics)
	admin.Get("/revenue/summary", cfg.Analytics.RevenueSummary)
	admin.Post("/revenue/recalculate", adminLevel, cfg.Analytics.Recalculate)

	notifications := admin.Group("/notifications", moderator)
	notifications.Post("/", cfg.Notifications.Create)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/:id", cfg.Notifications.Get)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Post("/:id/retry", cfg.Notifications.Retry)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	admin.Get("/schema/tables", adminLevel, cfg.Schema.Tables)
	admin.Get("/schema/enums", adminLevel, cfg.Schema.Enums)
	admin.Put("/schema/enums", superAdmin, cfg.Schema.UpdateEnums)

	admin.Get("/system/metrics", adminLevel, cfg.Health.SystemMetrics)
}
