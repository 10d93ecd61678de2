package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusloop/assess-api/internal/config"
	"github.com/campusloop/assess-api/internal/handler"
	"github.com/campusloop/assess-api/internal/middleware"
	"github.com/campusloop/assess-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	ReviewHandler     *handler.ReviewHandler
	QuizHandler       *handler.QuizHandler
	ActivityHandler   *handler.ActivityHandler
	DeadlineHandler   *handler.DeadlineHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Registered after health so probes are never throttled
	api.Use(middleware.RateLimit("api", 120, time.Minute))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	staffOnly := middleware.RequireRole("teacher", "admin")

	// Assignments: everyone enrolled can read, staff author
	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		authoring := api.Group("/assignments", jwtMiddleware, staffOnly)
		deps.AssignmentHandler.Register(assignments, authoring)

		if deps.SubmissionHandler != nil {
			submissions := api.Group("/submissions", jwtMiddleware)
			deps.SubmissionHandler.Register(assignments, submissions)
		}
	}

	// Review queue and grading are staff operations
	if deps.ReviewHandler != nil {
		reviews := api.Group("/reviews", jwtMiddleware, staffOnly)
		deps.ReviewHandler.Register(reviews)
	}

	// Quiz definitions live under course contents
	if deps.QuizHandler != nil {
		contents := api.Group("/contents", jwtMiddleware)
		contentAuthoring := api.Group("/contents", jwtMiddleware, staffOnly)
		deps.QuizHandler.Register(contents, contentAuthoring)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, staffOnly)
		deps.ActivityHandler.Register(activity)
	}

	if deps.DeadlineHandler != nil {
		deadlines := api.Group("/deadlines", jwtMiddleware)
		deps.DeadlineHandler.Register(deadlines)
	}
}
