package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/media-chapters/internal/storage"
)

// StreamHandler pushes task status snapshots over a websocket so clients
// can follow an analysis without polling.
type StreamHandler struct {
	store        *storage.TaskStore
	pollInterval time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(store *storage.TaskStore) *StreamHandler {
	return &StreamHandler{
		store:        store,
		pollInterval: time.Second,
	}
}

// Handle streams the task record until it reaches a terminal state or the
// client disconnects.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	taskID := c.Params("id")
	if taskID == "" {
		c.WriteJSON(map[string]string{"error": "task id is required"})
		return
	}

	log.Printf("Status stream opened for task %s", taskID)

	var lastStatus, lastMessage string
	for {
		task, err := h.store.Get(context.Background(), taskID)
		if err != nil {
			c.WriteJSON(map[string]string{"error": "task not found"})
			return
		}

		if task.Status != lastStatus || task.Message != lastMessage {
			if err := c.WriteJSON(task); err != nil {
				log.Printf("Status stream write failed for task %s: %v", taskID, err)
				return
			}
			lastStatus, lastMessage = task.Status, task.Message
		}

		if task.IsDone() {
			return
		}

		time.Sleep(h.pollInterval)
	}
}
