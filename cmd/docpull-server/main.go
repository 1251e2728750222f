// Package main provides the entry point for the download resolver server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-rod/rod"

	"github.com/hoangnd/docpull/internal/api/handlers"
	"github.com/hoangnd/docpull/internal/browser"
	"github.com/hoangnd/docpull/internal/cache"
	"github.com/hoangnd/docpull/internal/config"
	"github.com/hoangnd/docpull/internal/extract"
	"github.com/hoangnd/docpull/internal/http/mw"
	"github.com/hoangnd/docpull/internal/logging"
	"github.com/hoangnd/docpull/internal/login"
	"github.com/hoangnd/docpull/internal/models"
	"github.com/hoangnd/docpull/internal/notify"
	"github.com/hoangnd/docpull/internal/otp"
	"github.com/hoangnd/docpull/internal/queue"
	"github.com/hoangnd/docpull/internal/session"
	"github.com/hoangnd/docpull/internal/shutdown"
	"github.com/hoangnd/docpull/internal/stats"
	"github.com/hoangnd/docpull/internal/turnstile"
	"github.com/hoangnd/docpull/internal/version"
)

func main() {
	// Load configuration first (logging config comes from env)
	cfg := config.Load()

	logger := logging.SetDefault()

	logger.Info("starting docpull server",
		"version", version.Get().Version,
		"port", cfg.Port,
		"platform", cfg.PlatformBaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := notify.New(cfg.DiscordAlertWebhook, cfg.DiscordLogWebhook, logger)

	// Browser is launched lazily; warm the Chromium download up front.
	launcher := browser.NewLauncher(cfg, logger)
	defer launcher.Close()
	go func() {
		if err := launcher.Warmup(ctx); err != nil {
			logger.Error("browser warmup failed", "error", err)
		}
	}()

	// Session persistence: SQLite when a DB path is configured,
	// otherwise the plain cookies file.
	var store session.Store
	if cfg.SessionDBPath != "" {
		sqliteStore, err := session.NewSQLiteStore(cfg.SessionDBPath, logger)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		store = sqliteStore
	} else {
		store = session.NewFileStore(cfg.CookiePath)
	}
	defer store.Close()

	var otpSource login.OTPSource
	if cfg.IMAPHost != "" {
		otpSource = &otp.Retriever{
			Host:          cfg.IMAPHost,
			Port:          cfg.IMAPPort,
			User:          cfg.IMAPUser,
			Password:      cfg.IMAPPassword,
			SubjectMarker: cfg.OTPSubjectMarker,
			Lookback:      cfg.OTPLookback,
		}
		logger.Info("otp retrieval enabled", "imap_host", cfg.IMAPHost)
	} else {
		logger.Warn("no IMAP configured, 2fa challenges will fail")
	}

	flow := login.NewFlow(cfg, logger, otpSource)
	sessions := session.NewManager(cfg, logger, store, launcher, notifier, flow.Run)
	defer sessions.Close()

	extractor := extract.NewExtractor(cfg, logger)
	resolver := &downloadResolver{sessions: sessions, extractor: extractor, logger: logger}

	resultCache := cache.New(cfg.CacheTTL)
	counter := stats.Load(cfg.StatsPath)
	verifier := turnstile.New(cfg.TurnstileSecretKey)
	if !verifier.Enabled() {
		logger.Warn("turnstile verification disabled (no secret configured)")
	}

	q := queue.New(logger, resolver, resultCache, counter, notifier, cfg.QueueCooldown, cfg.QueueRetention)
	q.Start()
	defer q.Stop()

	requestHandler := handlers.NewRequestHandler(logger, q, resultCache, counter, verifier)
	healthHandler := handlers.NewHealthHandler(q)

	// Idle monitor: pending downloads count as activity.
	idle := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout: cfg.IdleTimeout,
		Logger:  logger,
		Busy:    func() bool { return q.Len() > 0 },
	})
	idle.Start()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(mw.ClientIP)
	r.Use(idle.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("Docpull", version.Get().Version)
	humaConfig.Info.Description = "Resolves document links to direct download URLs"
	api := humachi.New(r, humaConfig)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: *healthHandler.Handle(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getRequestStatus",
		Method:      http.MethodGet,
		Path:        "/api/queue/{requestId}",
		Summary:     "Request status",
		Description: "Returns the state, queue position and ETA of a request",
		Tags:        []string{"Queue"},
	}, func(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
		resp, err := requestHandler.Status(ctx, input.RequestID)
		if err != nil {
			return nil, err
		}
		return &StatusOutput{Body: *resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getCachedLink",
		Method:      http.MethodGet,
		Path:        "/api/documents/{docId}/link",
		Summary:     "Cached download link",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *LinkInput) (*LinkOutput, error) {
		resp, err := requestHandler.Link(ctx, input.DocID)
		if err != nil {
			return nil, err
		}
		return &LinkOutput{Body: *resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Download statistics",
		Tags:        []string{"Stats"},
	}, func(ctx context.Context, input *struct{}) (*StatsOutput, error) {
		return &StatsOutput{Body: *requestHandler.Stats(ctx)}, nil
	})

	// The enqueue endpoint gets its own router so the per-IP rate limit
	// applies only there.
	limited := chi.NewRouter()
	limited.Use(mw.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	limitedAPI := humachi.New(limited, humaConfig)

	huma.Register(limitedAPI, huma.Operation{
		OperationID: "enqueueRequest",
		Method:      http.MethodPost,
		Path:        "/api/requests",
		Summary:     "Request a download link",
		Description: "Queues a document for resolution, or serves the cached link",
		Tags:        []string{"Queue"},
	}, func(ctx context.Context, input *EnqueueInput) (*EnqueueOutput, error) {
		resp, err := requestHandler.Enqueue(ctx, &input.Body)
		if err != nil {
			return nil, err
		}
		return &EnqueueOutput{Body: *resp}, nil
	})

	r.Mount("/", limited)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	notifier.Log(fmt.Sprintf("%s %s started", version.Service, version.Get().Version))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-idle.ShutdownChan():
		logger.Info("idle shutdown triggered")
	}

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// downloadResolver glues the session manager and the extractor into the
// queue's Resolver interface.
type downloadResolver struct {
	sessions  *session.Manager
	extractor *extract.Extractor
	logger    *slog.Logger
}

func (d *downloadResolver) Resolve(ctx context.Context, docID string) (string, error) {
	page, err := d.sessions.EnsureSession(ctx)
	if err != nil {
		return "", err
	}

	url, err := d.extractor.Extract(ctx, page, docID)
	if err != nil {
		// If extraction stranded us on a login page the session is
		// gone; drop it so the next request re-authenticates.
		if onLoginSurface(page) {
			d.logger.Warn("extraction ended on login surface, invalidating session", "doc_id", docID)
			d.sessions.Invalidate()
		}
		return "", err
	}
	return url, nil
}

func onLoginSurface(page *rod.Page) bool {
	info, err := page.Info()
	if err != nil {
		return false
	}
	return login.IsLoginURL(info.URL)
}

// EnqueueInput is the input for download requests.
type EnqueueInput struct {
	Body models.EnqueueRequest
}

// EnqueueOutput is the output for download requests.
type EnqueueOutput struct {
	Body models.EnqueueResponse
}

// StatusInput identifies a queued request.
type StatusInput struct {
	RequestID string `path:"requestId" doc:"Request ID returned by enqueue"`
}

// StatusOutput is the output for status polls.
type StatusOutput struct {
	Body models.StatusResponse
}

// LinkInput identifies a document.
type LinkInput struct {
	DocID string `path:"docId" doc:"Numeric document ID"`
}

// LinkOutput is the output for cached link lookups.
type LinkOutput struct {
	Body models.LinkResponse
}

// StatsOutput is the output for the stats endpoint.
type StatsOutput struct {
	Body models.StatsResponse
}

// HealthOutput is the output for health checks.
type HealthOutput struct {
	Body models.HealthResponse
}
