package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-chapters/internal/storage"
	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// TasksHandler serves task status lookups.
type TasksHandler struct {
	store *storage.TaskStore
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(store *storage.TaskStore) *TasksHandler {
	return &TasksHandler{store: store}
}

// Get returns the full current record of one task.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	task, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Task not found",
				"code":  "ERR_TASK_NOT_FOUND",
			})
		}
		return c.Status(503).JSON(fiber.Map{
			"error": "Task store unavailable",
			"code":  "ERR_STORE_UNAVAILABLE",
		})
	}

	return c.JSON(task)
}

// List returns the most recently updated tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	tasks, err := h.store.List(c.Context(), limit)
	if err != nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "Task store unavailable",
			"code":  "ERR_STORE_UNAVAILABLE",
		})
	}

	return c.JSON(tasks)
}
