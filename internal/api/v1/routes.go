package v1

import (
	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app fiber.Router, deps *config.Dependencies) {
	h := handlers.New(deps.Store, deps.Cache, deps.Validate, deps.Log)
	requireUser := middleware.UseCredentials(auth.NewPasswordLookup(deps.Store), deps.Log)

	// Probes and metrics
	health := handlers.NewHealth(deps.Store, deps.Cache)
	app.Get("/health", health.Liveness)
	app.Get("/health/ready", health.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// User
	userRoutes := app.Group("/users")
	userRoutes.Post("/", h.Register)
	userRoutes.Get("/", h.ListUsers)
	userRoutes.Get("/:id", h.GetUser)

	// Task; /all must be registered before /:id
	taskRoutes := app.Group("/tasks")
	taskRoutes.Post("/", requireUser, h.CreateTask)
	taskRoutes.Get("/", requireUser, h.ListMyTasks)
	taskRoutes.Get("/all", h.ListTasks)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Patch("/:id", requireUser, h.UpdateTask)
	taskRoutes.Delete("/:id", requireUser, h.DeleteTask)
}
