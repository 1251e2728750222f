package handlers

import (
	"context"

	"github.com/hoangnd/docpull/internal/models"
	"github.com/hoangnd/docpull/internal/queue"
	"github.com/hoangnd/docpull/internal/version"
)

// HealthHandler serves liveness checks.
type HealthHandler struct {
	queue *queue.Queue
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(q *queue.Queue) *HealthHandler {
	return &HealthHandler{queue: q}
}

// Handle returns service health and queue depth.
func (h *HealthHandler) Handle(ctx context.Context) *models.HealthResponse {
	return &models.HealthResponse{
		Status:      "ok",
		Version:     version.Get().Version,
		QueueLength: h.queue.Len(),
	}
}
