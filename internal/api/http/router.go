package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/http/handlers"
	"github.com/agencyiq/agency-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Agency         *handlers.AgencyHandler
	Sales          *handlers.SalesHandler
	Training       *handlers.TrainingHandler
	Calls          *handlers.CallsHandler
	Billing        *handlers.BillingHandler
	Public         *handlers.PublicHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	// Stripe calls this endpoint directly; authentication is the signature.
	api.Post("/billing/webhook", cfg.Billing.Webhook)

	public := api.Group("/public")
	public.Get("/forms/:slug", cfg.Public.GetForm)
	public.Post("/forms/:slug/leads", cfg.Public.SubmitLead)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.LoginOwner)
	authGroup.Post("/staff/login", cfg.Auth.LoginStaff)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	session.Post("/staff/logout", cfg.Auth.LogoutStaff)
	session.Post("/password/change", cfg.Auth.ChangePassword)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())

	agency := protected.Group("/agency")
	agency.Get("", cfg.Agency.Get)
	agency.Patch("", auth.RequireOwner(), cfg.Agency.Update)
	agency.Post("/staff", auth.RequireOwner(), cfg.Agency.InviteStaff)
	agency.Get("/staff", cfg.Agency.ListStaff)
	agency.Get("/staff/:id", cfg.Agency.GetStaff)
	agency.Patch("/staff/:id/role", auth.RequireOwner(), cfg.Agency.ChangeRole)
	agency.Delete("/staff/:id", auth.RequireOwner(), cfg.Agency.DeactivateStaff)

	sales := protected.Group("/sales")
	sales.Post("", cfg.Sales.Record)
	sales.Get("", cfg.Sales.List)
	sales.Get("/scorecard", cfg.Sales.Scorecard)
	sales.Get("/leaderboard", cfg.Sales.Leaderboard)
	sales.Get("/:id", cfg.Sales.Get)
	sales.Patch("/:id", cfg.Sales.Update)
	sales.Delete("/:id", cfg.Sales.Delete)

	training := protected.Group("/training")
	training.Post("/templates", cfg.Training.CreateTemplate)
	training.Get("/templates", cfg.Training.ListTemplates)
	training.Post("/instances", cfg.Training.AssignTemplate)
	training.Get("/instances", cfg.Training.ListInstances)
	training.Get("/instances/:id", cfg.Training.GetInstance)
	training.Post("/tasks/:id/complete", cfg.Training.CompleteTask)
	training.Post("/challenges", cfg.Training.AssignChallenge)
	training.Get("/challenges", cfg.Training.ListChallenges)
	training.Post("/challenges/:id/reassign", cfg.Training.ReassignChallenge)
	training.Post("/challenges/:id/complete", cfg.Training.CompleteChallenge)

	calls := protected.Group("/calls")
	calls.Post("/upload", cfg.Calls.Upload)
	calls.Post("/ringcentral", cfg.Calls.ImportRingCentral)
	calls.Get("", cfg.Calls.List)
	calls.Get("/:id", cfg.Calls.Get)
	calls.Get("/:id/score", cfg.Calls.GetScore)
	calls.Post("/:id/rescore", cfg.Calls.Rescore)
	calls.Delete("/:id", cfg.Calls.Delete)

	billing := protected.Group("/billing", auth.RequireOwner())
	billing.Get("/subscription", cfg.Billing.GetSubscription)
	billing.Post("/subscribe", cfg.Billing.Subscribe)

	leads := protected.Group("/leads")
	leads.Post("/forms", auth.RequireOwner(), cfg.Public.CreateForm)
	leads.Get("/forms", cfg.Public.ListForms)
	leads.Get("", cfg.Public.ListLeads)
}
