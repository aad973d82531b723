package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus360/incidencias-service/internal/api/http/handlers"
	"github.com/campus360/incidencias-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidencias    *handlers.IncidenciasHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	catalog := app.Group("/catalog", cfg.AuthMiddleware.Handle)
	catalog.Get("/states", cfg.Catalog.ListStates)
	catalog.Get("/priorities", cfg.Catalog.ListPriorities)
	catalog.Get("/categories", cfg.Catalog.ListCategories)

	incidencias := app.Group("/incidencias", cfg.AuthMiddleware.Handle)
	incidencias.Post("/", cfg.Incidencias.Create)
	incidencias.Get("/", cfg.Incidencias.List)
	incidencias.Get("/:id", cfg.Incidencias.Get)
	incidencias.Patch("/:id", cfg.Incidencias.Update)
	incidencias.Delete("/:id", cfg.Incidencias.Delete)

	incidencias.Post("/:id/responsible", cfg.Incidencias.AssignResponsible)
	incidencias.Post("/:id/state", cfg.Incidencias.ChangeState)

	incidencias.Post("/:id/comments", cfg.Incidencias.AddComment)
	incidencias.Get("/:id/comments", cfg.Incidencias.ListComments)
	incidencias.Post("/:id/attachments", cfg.Incidencias.AddAttachment)
	incidencias.Get("/:id/attachments", cfg.Incidencias.ListAttachments)
	incidencias.Get("/:id/history", cfg.Incidencias.GetHistory)
}
