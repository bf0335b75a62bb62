package app

import (
	"fmt"
	"log"
	"strings"

	"jobharvest/internal/delivery/http/handler"
	"jobharvest/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber *fiber.App
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
	})

	accessLog := middleware.NewAccessLogMiddleware(log.Default())
	f.Use(accessLog.Middleware())

	registerRoutes(f, c)

	return &App{Fiber: f}
}

func registerRoutes(f *fiber.App, c *Container) {
	health := handler.NewHealthHandler(c.DB, c.Queue)
	scrape := handler.NewScrapeHandler(c.Scheduler, c.Queue, c.Config.Scrape.SearchTerm)

	f.Get("/health", health.Health)
	f.Post("/internal/scrape/trigger", scrape.TriggerGlobal)
	f.Post("/internal/scrape/trigger/:country", scrape.TriggerCountry)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
