package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/observability"
)

// Options configures the API application.
type Options struct {
	Collection string
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// NewApp builds the Fiber application with its routes.
func NewApp(q Querier, opts Options) *fiber.App {
	logger := logging.OrDiscard(opts.Logger)
	app := fiber.New(fiber.Config{
		AppName:               "codefinder",
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	h := NewQueryHandler(q, opts.Collection, opts.Metrics, logger)
	app.Get("/", HandleRoot)
	app.Post("/query/", h.HandleQuery)
	return app
}
