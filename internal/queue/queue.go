// Package queue serializes download requests. The platform tolerates
// exactly one automated browser session, so every request flows through
// a single worker, strictly in arrival order.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hoangnd/docpull/internal/cache"
	"github.com/hoangnd/docpull/internal/notify"
	"github.com/hoangnd/docpull/internal/stats"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Resolver turns a document ID into a direct download URL.
type Resolver interface {
	Resolve(ctx context.Context, docID string) (string, error)
}

// Request is one tracked download request.
type Request struct {
	ID         string
	DocID      string
	ClientIP   string
	Status     Status
	Position   int
	URL        string
	Error      string
	EnqueuedAt time.Time
	FinishedAt time.Time
}

// Queue is the FIFO request serializer.
type Queue struct {
	mu       sync.Mutex
	logger   *slog.Logger
	resolver Resolver
	cache    *cache.Cache
	counter  *stats.Counter
	notifier *notify.Notifier

	cooldown  time.Duration
	retention time.Duration

	pending  []string
	requests map[string]*Request

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// New creates a queue; call Start to begin processing.
func New(logger *slog.Logger, resolver Resolver, c *cache.Cache, counter *stats.Counter, notifier *notify.Notifier, cooldown, retention time.Duration) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		logger:    logger,
		resolver:  resolver,
		cache:     c,
		counter:   counter,
		notifier:  notifier,
		cooldown:  cooldown,
		retention: retention,
		requests:  make(map[string]*Request),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	go q.run()
}

// Stop halts the worker. The in-flight request finishes first.
func (q *Queue) Stop() {
	q.cancel()
	<-q.done
}

// Enqueue registers a request and returns its snapshot.
func (q *Queue) Enqueue(docID, clientIP string) Request {
	q.mu.Lock()

	req := &Request{
		ID:         ulid.Make().String(),
		DocID:      docID,
		ClientIP:   clientIP,
		Status:     StatusQueued,
		EnqueuedAt: q.now(),
	}
	q.requests[req.ID] = req
	q.pending = append(q.pending, req.ID)
	q.recomputePositions()
	snap := *req
	q.mu.Unlock()

	q.logger.Info("request enqueued", "request_id", req.ID, "doc_id", docID, "position", snap.Position)
	q.notifier.Log(fmt.Sprintf("Queued document %s (request %s, position %d)", docID, req.ID, snap.Position))

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return snap
}

// Get returns a snapshot of the request, if it is still retained.
func (q *Queue) Get(requestID string) (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.requests[requestID]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Len is the number of requests waiting or processing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	for _, req := range q.requests {
		if req.Status == StatusProcessing {
			n++
		}
	}
	return n
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			req := q.dequeue()
			if req == nil {
				break
			}
			q.process(req)
			q.gc()

			select {
			case <-q.ctx.Done():
				return
			case <-time.After(q.cooldown):
			}
		}
	}
}

// dequeue pops the head of the line and marks it processing.
func (q *Queue) dequeue() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	id := q.pending[0]
	q.pending = q.pending[1:]
	req := q.requests[id]
	req.Status = StatusProcessing
	req.Position = 0
	q.recomputePositions()
	return req
}

// process resolves one request. A panicking or failing resolver marks
// the request failed and never takes the worker down.
func (q *Queue) process(req *Request) {
	q.logger.Info("processing request", "request_id", req.ID, "doc_id", req.DocID)

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("resolver panicked", "request_id", req.ID, "panic", r)
			q.finish(req, "", fmt.Sprintf("internal error: %v", r))
		}
	}()

	// A result may have landed in the cache while this request waited.
	if url, ok := q.cache.Get(req.DocID); ok {
		q.logger.Info("request served from cache", "request_id", req.ID, "doc_id", req.DocID)
		q.finish(req, url, "")
		return
	}

	url, err := q.resolver.Resolve(q.ctx, req.DocID)
	if err != nil {
		q.finish(req, "", err.Error())
		return
	}
	q.finish(req, url, "")
}

func (q *Queue) finish(req *Request, url, errMsg string) {
	q.mu.Lock()
	if errMsg != "" {
		req.Status = StatusFailed
		req.Error = errMsg
	} else {
		req.Status = StatusCompleted
		req.URL = url
	}
	req.FinishedAt = q.now()
	q.mu.Unlock()

	if errMsg != "" {
		q.logger.Warn("request failed", "request_id", req.ID, "doc_id", req.DocID, "error", errMsg)
		q.notifier.Log(fmt.Sprintf("Failed document %s: %s", req.DocID, errMsg))
		return
	}

	q.cache.Put(req.DocID, url)
	q.counter.Increment()
	q.logger.Info("request completed", "request_id", req.ID, "doc_id", req.DocID)
	q.notifier.Log(fmt.Sprintf("Resolved document %s", req.DocID))
}

// recomputePositions renumbers the waiting line. Caller holds the lock.
func (q *Queue) recomputePositions() {
	for i, id := range q.pending {
		q.requests[id].Position = i + 1
	}
}

// gc drops terminal requests past the retention window.
func (q *Queue) gc() {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-q.retention)
	for id, req := range q.requests {
		if req.Status != StatusCompleted && req.Status != StatusFailed {
			continue
		}
		if req.FinishedAt.Before(cutoff) {
			delete(q.requests, id)
		}
	}
}
