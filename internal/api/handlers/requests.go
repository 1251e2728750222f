// Package handlers implements the HTTP API for the download resolver.
package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hoangnd/docpull/internal/cache"
	"github.com/hoangnd/docpull/internal/logging"
	"github.com/hoangnd/docpull/internal/models"
	"github.com/hoangnd/docpull/internal/queue"
	"github.com/hoangnd/docpull/internal/stats"
	"github.com/hoangnd/docpull/internal/turnstile"
)

// secondsPerQueueSlot is the rough per-document processing estimate
// used for client-facing ETAs.
const secondsPerQueueSlot = 30

// RequestHandler serves enqueue, status, cached-link and stats calls.
type RequestHandler struct {
	logger   *slog.Logger
	queue    *queue.Queue
	cache    *cache.Cache
	counter  *stats.Counter
	verifier *turnstile.Verifier
}

// NewRequestHandler creates a RequestHandler.
func NewRequestHandler(logger *slog.Logger, q *queue.Queue, c *cache.Cache, counter *stats.Counter, verifier *turnstile.Verifier) *RequestHandler {
	return &RequestHandler{
		logger:   logger,
		queue:    q,
		cache:    c,
		counter:  counter,
		verifier: verifier,
	}
}

// Enqueue validates the request and either serves the cached URL or
// places the document in the queue.
func (h *RequestHandler) Enqueue(ctx context.Context, req *models.EnqueueRequest) (*models.EnqueueResponse, error) {
	docID, err := models.ParseDocumentID(req.URL)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid document reference", err)
	}

	clientIP := logging.GetClientIP(ctx)
	if err := h.verifier.Verify(ctx, req.TurnstileToken, clientIP); err != nil {
		h.logger.Warn("turnstile verification rejected", "doc_id", docID, "error", err)
		return nil, huma.Error403Forbidden("verification failed")
	}

	if url, ok := h.cache.Get(docID); ok {
		h.logger.Info("cache hit", "doc_id", docID)
		h.counter.Increment()
		return &models.EnqueueResponse{
			DocID:       docID,
			Status:      string(queue.StatusCompleted),
			QueueLength: h.queue.Len(),
			DownloadURL: url,
			Cached:      true,
		}, nil
	}

	snap := h.queue.Enqueue(docID, clientIP)
	return &models.EnqueueResponse{
		RequestID:   snap.ID,
		DocID:       docID,
		Status:      string(snap.Status),
		Position:    snap.Position,
		QueueLength: h.queue.Len(),
		ETASeconds:  snap.Position * secondsPerQueueSlot,
	}, nil
}

// Status reports the state of a queued request.
func (h *RequestHandler) Status(ctx context.Context, requestID string) (*models.StatusResponse, error) {
	snap, ok := h.queue.Get(requestID)
	if !ok {
		return nil, huma.Error404NotFound("unknown or expired request")
	}

	resp := &models.StatusResponse{
		RequestID:   snap.ID,
		DocID:       snap.DocID,
		Status:      string(snap.Status),
		Position:    snap.Position,
		QueueLength: h.queue.Len(),
		DownloadURL: snap.URL,
		Error:       snap.Error,
	}
	if snap.Status == queue.StatusQueued {
		resp.ETASeconds = snap.Position * secondsPerQueueSlot
	}
	return resp, nil
}

// Link serves a cached download URL without queueing.
func (h *RequestHandler) Link(ctx context.Context, docID string) (*models.LinkResponse, error) {
	if _, err := models.ParseDocumentID(docID); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid document id", err)
	}
	url, ok := h.cache.Get(docID)
	if !ok {
		return nil, huma.Error404NotFound("no cached link for document")
	}
	return &models.LinkResponse{DocID: docID, DownloadURL: url}, nil
}

// Stats reports the lifetime download counter.
func (h *RequestHandler) Stats(ctx context.Context) *models.StatsResponse {
	snap := h.counter.Get()
	return &models.StatsResponse{
		TotalDownloads: snap.TotalDownloads,
		LastUpdated:    snap.LastUpdated,
	}
}
