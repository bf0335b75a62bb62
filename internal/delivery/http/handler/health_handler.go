package handler

import (
	"context"

	"jobharvest/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type DepthReporter interface {
	Depth(ctx context.Context) (int64, error)
	DeadCount(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	db    Pinger
	queue DepthReporter
}

func NewHealthHandler(db Pinger, queue DepthReporter) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	data := fiber.Map{"status": "ok"}

	if h.db != nil {
		if err := h.db.Ping(c.Context()); err != nil {
			return response.Error(c, fiber.StatusServiceUnavailable, "database unreachable", nil)
		}
	}
	if h.queue != nil {
		if depth, err := h.queue.Depth(c.Context()); err == nil {
			data["queueDepth"] = depth
		}
		if dead, err := h.queue.DeadCount(c.Context()); err == nil {
			data["deadTasks"] = dead
		}
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}
