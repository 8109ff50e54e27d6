package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/exampilot-api/internal/config"
	"github.com/noah-isme/exampilot-api/internal/handler"
	"github.com/noah-isme/exampilot-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler   *handler.EvaluationHandler
	SubmissionHandler   *handler.SubmissionHandler
	StudyContentHandler *handler.StudyContentHandler
	MaterialHandler     *handler.MaterialHandler
	MockPaperHandler    *handler.MockPaperHandler
	JWTMiddleware       fiber.Handler
	// LLMRateLimit guards routes that call the LLM gateway.
	LLMRateLimit fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(v2.Group("/evaluations"), deps.LLMRateLimit)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(v2.Group("/submissions"))
	}

	courses := v2.Group("/courses")
	if deps.MaterialHandler != nil {
		deps.MaterialHandler.Register(courses)
	}

	if deps.StudyContentHandler != nil {
		deps.StudyContentHandler.Register(courses, deps.LLMRateLimit)
	}

	if deps.MockPaperHandler != nil {
		deps.MockPaperHandler.Register(v2.Group("/mock-papers"), deps.LLMRateLimit)
	}
}
