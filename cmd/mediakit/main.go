package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	apiv1 "github.com/bazaarkit/media/internal/api/v1"
	"github.com/bazaarkit/media/internal/pkg/config"
	"github.com/bazaarkit/media/internal/pkg/env"
	"github.com/bazaarkit/media/internal/pkg/imageprocessor"
	"github.com/bazaarkit/media/internal/pkg/storage"
)

func main() {
	app, cfg, err := NewApplication()
	if err != nil {
		log.Fatal(err)
	}
	err = app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port))
	log.Fatal(err)
}

// NewApplication wires config, file store, pipeline and HTTP surface.
func NewApplication() (*fiber.App, *config.Config, error) {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.App.BodyLimit,
	})
	app.Use(recover.New(), logger.New())

	server := apiv1.NewServer(cfg, imageprocessor.NewPipeline(), store)
	server.RegisterRoutes(app)

	return app, cfg, nil
}
