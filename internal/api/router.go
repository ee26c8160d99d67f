package api

import (
	"errors"

	"doc-splitter/internal/api/handlers"
	"doc-splitter/pkg/auth"
	"doc-splitter/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	// BodyLimit caps request bodies in bytes; page images make uploads large.
	BodyLimit int
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

func SetupRouter(
	analysisHandler *handlers.AnalysisHandler,
	jwtManager *auth.JWTManager,
	cfg RouterConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code == fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	analyses := protected.Group("/analyses")
	analyses.Post("", analysisHandler.CreateAnalysis)
	analyses.Get("", analysisHandler.ListAnalyses)
	analyses.Get("/:id", analysisHandler.GetAnalysis)

	return app
}
