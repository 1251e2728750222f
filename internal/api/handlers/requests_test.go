package handlers

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/hoangnd/docpull/internal/cache"
	"github.com/hoangnd/docpull/internal/models"
	"github.com/hoangnd/docpull/internal/notify"
	"github.com/hoangnd/docpull/internal/queue"
	"github.com/hoangnd/docpull/internal/stats"
	"github.com/hoangnd/docpull/internal/turnstile"
)

type noopResolver struct{}

func (noopResolver) Resolve(ctx context.Context, docID string) (string, error) {
	return "https://cdn.example.com/" + docID + ".pdf", nil
}

// fixture returns a handler over an idle queue: requests stay queued,
// which makes enqueue behavior deterministic.
func fixture(t *testing.T) (*RequestHandler, *cache.Cache) {
	t.Helper()
	c := cache.New(5 * time.Minute)
	counter := stats.Load(filepath.Join(t.TempDir(), "stats.json"))
	notifier := notify.New("", "", slog.Default())
	q := queue.New(slog.Default(), noopResolver{}, c, counter, notifier, 0, 5*time.Minute)
	h := NewRequestHandler(slog.Default(), q, c, counter, turnstile.New(""))
	return h, c
}

func TestEnqueue_QueuesNewDocument(t *testing.T) {
	h, _ := fixture(t)

	resp, err := h.Enqueue(context.Background(), &models.EnqueueRequest{
		URL: "https://www.scribd.com/document/123456789/Title",
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if resp.DocID != "123456789" {
		t.Errorf("DocID = %q, want 123456789", resp.DocID)
	}
	if resp.Status != "queued" || resp.Position != 1 {
		t.Errorf("Status/Position = %s/%d, want queued/1", resp.Status, resp.Position)
	}
	if resp.ETASeconds != secondsPerQueueSlot {
		t.Errorf("ETASeconds = %d, want %d", resp.ETASeconds, secondsPerQueueSlot)
	}
	if resp.RequestID == "" {
		t.Error("RequestID should be set for queued requests")
	}
}

func TestEnqueue_CacheHitBypassesQueue(t *testing.T) {
	h, c := fixture(t)
	c.Put("42", "https://cdn.example.com/42.pdf")

	resp, err := h.Enqueue(context.Background(), &models.EnqueueRequest{URL: "42"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if !resp.Cached || resp.DownloadURL != "https://cdn.example.com/42.pdf" {
		t.Errorf("resp = %+v, want cached download url", resp)
	}
	if resp.RequestID != "" {
		t.Error("cache hits must not create queue requests")
	}
}

func TestEnqueue_InvalidReference(t *testing.T) {
	h, _ := fixture(t)
	if _, err := h.Enqueue(context.Background(), &models.EnqueueRequest{URL: "not a doc"}); err == nil {
		t.Error("Enqueue() with invalid reference should fail")
	}
}

func TestStatus_UnknownRequest(t *testing.T) {
	h, _ := fixture(t)
	if _, err := h.Status(context.Background(), "01J0000000000000000000000"); err == nil {
		t.Error("Status() for unknown request should fail")
	}
}

func TestStatus_QueuedRequest(t *testing.T) {
	h, _ := fixture(t)

	first, err := h.Enqueue(context.Background(), &models.EnqueueRequest{URL: "111"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Enqueue(context.Background(), &models.EnqueueRequest{URL: "222"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := h.Status(context.Background(), second.RequestID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Position != 2 || st.ETASeconds != 2*secondsPerQueueSlot {
		t.Errorf("Position/ETA = %d/%d, want 2/%d", st.Position, st.ETASeconds, 2*secondsPerQueueSlot)
	}
	if st.QueueLength != 2 {
		t.Errorf("QueueLength = %d, want 2", st.QueueLength)
	}
	_ = first
}

func TestLink_MissAndHit(t *testing.T) {
	h, c := fixture(t)

	if _, err := h.Link(context.Background(), "99"); err == nil {
		t.Error("Link() should fail on cache miss")
	}

	c.Put("99", "https://cdn.example.com/99.pdf")
	resp, err := h.Link(context.Background(), "99")
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if resp.DownloadURL != "https://cdn.example.com/99.pdf" {
		t.Errorf("DownloadURL = %q", resp.DownloadURL)
	}
}

func TestStats(t *testing.T) {
	h, c := fixture(t)
	c.Put("7", "https://cdn.example.com/7.pdf")
	if _, err := h.Enqueue(context.Background(), &models.EnqueueRequest{URL: "7"}); err != nil {
		t.Fatal(err)
	}

	resp := h.Stats(context.Background())
	if resp.TotalDownloads != 1 {
		t.Errorf("TotalDownloads = %d, want 1 after a cache-served download", resp.TotalDownloads)
	}
}
