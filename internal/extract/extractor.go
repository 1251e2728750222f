// Package extract resolves the transient direct download URL for a
// document by driving the platform's pages through a chain of fallback
// strategies, cheapest first.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hoangnd/docpull/internal/config"
	"github.com/hoangnd/docpull/internal/diag"
)

// Failure reasons carried by Error.
const (
	ReasonNoDownloadControl = "no-download-control"
	ReasonNoURLResolved     = "no-url-resolved"
)

// Error is a terminal extraction failure.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// stage is one strategy in the fallback chain. A non-empty URL ends the
// chain; an error is recorded and the next stage runs.
type stage struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// runStages executes stages in order and returns the first URL found.
func runStages(ctx context.Context, logger *slog.Logger, stages []stage) (string, []error) {
	var errs []error
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return "", errs
		}
		logger.Debug("running extraction stage", "stage", st.name)
		u, err := st.run(ctx)
		if err != nil {
			logger.Warn("extraction stage failed", "stage", st.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			continue
		}
		if u != "" {
			logger.Info("download url resolved", "stage", st.name)
			return u, errs
		}
	}
	return "", errs
}

// Extractor turns an authenticated page plus a document ID into a
// direct download URL.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract resolves the download URL for docID using page's session.
func (e *Extractor) Extract(ctx context.Context, page *rod.Page, docID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExtractionTimeout)
	defer cancel()

	pg := page.Context(ctx)
	obs := newObserver(pg, e.cfg.CDNMarker)
	defer obs.stop()

	var clickFailed bool
	stages := []stage{
		{name: "direct-endpoint", run: func(ctx context.Context) (string, error) {
			return e.directEndpoint(ctx, pg, obs, docID)
		}},
		{name: "ui-discovery", run: func(ctx context.Context) (string, error) {
			err := e.clickDownloadControl(ctx, pg)
			if err != nil {
				clickFailed = true
			}
			return "", err
		}},
		{name: "post-click-resolution", run: func(ctx context.Context) (string, error) {
			return e.resolveAfterClick(ctx, pg, obs)
		}},
	}

	u, errs := runStages(ctx, e.logger, stages)
	if u != "" {
		return u, nil
	}

	diag.Capture(pg, e.cfg.SnapshotDir, "extract-"+docID, e.logger)

	joined := joinErrs(errs)
	if clickFailed {
		return "", &Error{Reason: ReasonNoDownloadControl, Err: joined}
	}
	return "", &Error{Reason: ReasonNoURLResolved, Err: joined}
}

// directEndpoint loads the document page to settle the session, then
// hits the platform's download endpoint straight on. If the endpoint
// serves a file the navigation aborts, and the observer holds the URL.
func (e *Extractor) directEndpoint(ctx context.Context, pg *rod.Page, obs *observer, docID string) (string, error) {
	docURL := fmt.Sprintf("%s/document/%s", e.cfg.PlatformBaseURL, docID)
	if err := pg.Timeout(e.cfg.NavigationTimeout).Navigate(docURL); err != nil {
		return "", fmt.Errorf("navigate document page: %w", err)
	}
	_ = pg.Timeout(e.cfg.NavigationTimeout).WaitLoad()

	endpoint := fmt.Sprintf("%s/document_downloads/%s?extension=pdf&from=download_page", e.cfg.PlatformBaseURL, docID)
	err := pg.Timeout(e.cfg.NavigationTimeout).Navigate(endpoint)
	if err != nil && !strings.Contains(err.Error(), "ERR_ABORTED") {
		// Aborted means the browser started a download. Anything else
		// is a real navigation failure.
		return "", fmt.Errorf("navigate download endpoint: %w", err)
	}

	if u := e.awaitCapture(ctx, obs); u != "" {
		return u, nil
	}
	return "", nil
}

// clickDownloadControl goes back to the document page, strips blocking
// overlays and clicks the download control.
func (e *Extractor) clickDownloadControl(ctx context.Context, pg *rod.Page) error {
	docInfo, err := pg.Info()
	if err == nil && !strings.Contains(docInfo.URL, "/document/") {
		// The direct endpoint may have navigated us away.
		_ = pg.Timeout(e.cfg.NavigationTimeout).NavigateBack()
		_ = pg.Timeout(e.cfg.NavigationTimeout).WaitLoad()
	}

	e.removeOverlays(pg)

	el, err := pg.Timeout(e.cfg.SelectorTimeout * 3).ElementX(
		`//button[contains(., "Download")] | //a[contains(., "Download")]`)
	if err != nil {
		return fmt.Errorf("no visible download control: %w", err)
	}
	if visible, err := el.Visible(); err != nil || !visible {
		return fmt.Errorf("download control not visible")
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click download control: %w", err)
	}
	return nil
}

// resolveAfterClick works through the post-click fallbacks: observer
// poll, DOM scan, in-modal confirm, then one last round of each.
func (e *Extractor) resolveAfterClick(ctx context.Context, pg *rod.Page, obs *observer) (string, error) {
	if u := e.awaitCapture(ctx, obs); u != "" {
		return u, nil
	}

	if u := e.scanDOM(pg); u != "" {
		return u, nil
	}

	// The click may only have opened a confirmation modal.
	if e.clickModalConfirm(pg) {
		time.Sleep(e.cfg.SelectorTimeout)
		if u := e.awaitCapture(ctx, obs); u != "" {
			return u, nil
		}
		if u := e.scanDOM(pg); u != "" {
			return u, nil
		}
	}

	return "", nil
}

// awaitCapture polls the observer until a capture shows up or the
// download wait elapses.
func (e *Extractor) awaitCapture(ctx context.Context, obs *observer) string {
	deadline := time.Now().Add(e.cfg.DownloadWait)
	for {
		if u := obs.captured(); u != "" {
			return u
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return ""
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// removeOverlays strips fixed-position consent and cookie banners that
// sit over the download control. Absence of any is fine.
func (e *Extractor) removeOverlays(pg *rod.Page) {
	result, err := pg.Timeout(e.cfg.SelectorTimeout).Eval(`() => {
		let removed = 0;
		const candidates = document.querySelectorAll(
			'[class*="osano"], [id*="osano"], [class*="cookie"], [id*="cookie"], [class*="consent"], [id*="consent"]');
		for (const el of candidates) {
			const style = getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				el.remove();
				removed++;
			}
		}
		return removed;
	}`)
	if err != nil {
		e.logger.Debug("overlay removal failed", "error", err)
		return
	}
	if n := result.Value.Int(); n > 0 {
		e.logger.Debug("overlays removed", "count", n)
	}
}

// scanDOM looks for download-ish URLs in link and data attributes.
func (e *Extractor) scanDOM(pg *rod.Page) string {
	result, err := pg.Timeout(e.cfg.SelectorTimeout).Eval(`(marker) => {
		const hit = (v) => {
			if (!v) return false;
			const s = v.toLowerCase();
			return s.includes('download') || s.includes('.pdf') || (marker && s.includes(marker));
		};
		const els = document.querySelectorAll('a[href], [data-url], [data-download-url]');
		for (const el of els) {
			for (const attr of ['href', 'data-download-url', 'data-url']) {
				const v = el.getAttribute(attr);
				if (hit(v)) return v;
			}
		}
		return '';
	}`, strings.ToLower(e.cfg.CDNMarker))
	if err != nil {
		e.logger.Debug("dom scan failed", "error", err)
		return ""
	}
	href := result.Value.Str()
	if href == "" {
		return ""
	}
	return resolveHref(e.cfg.PlatformBaseURL, href)
}

// clickModalConfirm clicks a control whose text is exactly "download"
// inside an open modal, if one exists.
func (e *Extractor) clickModalConfirm(pg *rod.Page) bool {
	result, err := pg.Timeout(e.cfg.SelectorTimeout).Eval(`() => {
		const modal = document.querySelector('[role="dialog"], [class*="modal"]');
		const root = modal || document;
		for (const el of root.querySelectorAll('button, a')) {
			if ((el.textContent || '').trim().toLowerCase() === 'download') {
				el.click();
				return true;
			}
		}
		return false;
	}`)
	if err != nil {
		e.logger.Debug("modal confirm failed", "error", err)
		return false
	}
	return result.Value.Bool()
}

// resolveHref makes relative candidates absolute against the platform
// base URL; absolute candidates pass through untouched.
func resolveHref(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
