// Package hello is the minimal service used to check a deployment before the
// query API is rolled out.
package hello

import (
	"github.com/gofiber/fiber/v2"

	"github.com/efebarandurmaz/codefinder/internal/config"
)

type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type OpenAPI struct {
	OpenAPI string         `json:"openapi"`
	Info    Info           `json:"info"`
	Paths   map[string]any `json:"paths"`
}

// NewApp builds the hello application. Title and version come from
// PROJECT_TITLE and PROJECT_VERSION.
func NewApp(cfg config.HelloConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Title + " " + cfg.Version,
		DisableStartupMessage: true,
	})

	doc := OpenAPI{
		OpenAPI: "3.1.0",
		Info:    Info{Title: cfg.Title, Version: cfg.Version},
		Paths: map[string]any{
			"/": map[string]any{"get": map[string]any{"summary": "Hello"}},
		},
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"msg": "Hello FastAPI"})
	})
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		return c.JSON(doc)
	})
	return app
}
