package handler

import (
	"context"
	"strings"

	"jobharvest/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type ScrapeTrigger interface {
	TriggerGlobalScrape(ctx context.Context) (int, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, country, searchTerm string) error
}

// ScrapeHandler exposes the operator-facing manual triggers. Scraping
// itself happens asynchronously on the worker pool; these only enqueue.
type ScrapeHandler struct {
	trigger    ScrapeTrigger
	queue      Enqueuer
	searchTerm string
}

func NewScrapeHandler(trigger ScrapeTrigger, queue Enqueuer, searchTerm string) *ScrapeHandler {
	return &ScrapeHandler{trigger: trigger, queue: queue, searchTerm: searchTerm}
}

func (h *ScrapeHandler) TriggerGlobal(c fiber.Ctx) error {
	enqueued, err := h.trigger.TriggerGlobalScrape(c.Context())
	data := fiber.Map{"enqueued": enqueued}
	if err != nil {
		// Partial fan-out still scrapes the countries that made it in.
		data["error"] = err.Error()
		return response.Success(c, fiber.StatusAccepted, "partial fan-out", data)
	}
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, data)
}

func (h *ScrapeHandler) TriggerCountry(c fiber.Ctx) error {
	country := strings.TrimSpace(c.Params("country"))
	if country == "" {
		return response.Error(c, fiber.StatusBadRequest, "country is required", nil)
	}
	if err := h.queue.Enqueue(c.Context(), country, h.searchTerm); err != nil {
		return response.Error(c, fiber.StatusInternalServerError, "enqueue failed", nil)
	}
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, fiber.Map{"country": country})
}
