package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-chapters/internal/orchestrator"
	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// AnalyzeHandler accepts analysis start requests.
type AnalyzeHandler struct {
	orchestrator *orchestrator.Orchestrator
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(o *orchestrator.Orchestrator) *AnalyzeHandler {
	return &AnalyzeHandler{orchestrator: o}
}

// AnalyzeRequest represents the request body
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// Handle starts (or attaches to) the analysis of a media URL. The response
// returns in bounded time regardless of how long the analysis takes:
// 200 with the cached result, or 202 with a task handle to poll.
func (h *AnalyzeHandler) Handle(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL must be http or https",
			"code":  "ERR_INVALID_URL",
		})
	}

	task, cached, err := h.orchestrator.Start(c.Context(), req.URL)
	if err != nil {
		if errors.Is(err, types.ErrStoreUnavailable) {
			return c.Status(503).JSON(fiber.Map{
				"error": "Task store unavailable",
				"code":  "ERR_STORE_UNAVAILABLE",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_START_FAILED",
		})
	}

	if cached {
		return c.JSON(fiber.Map{
			"task_id": task.ID,
			"status":  task.Status,
			"message": "result served from cache",
			"result":  task.Result,
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": task.ID,
		"status":  task.Status,
		"message": "started",
	})
}
