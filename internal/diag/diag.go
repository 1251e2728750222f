// Package diag captures page snapshots for post-mortem debugging of
// failed logins and extractions.
package diag

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
)

// Capture writes a screenshot and the page HTML to dir, named after
// label and the current time. Best-effort: all failures are logged and
// swallowed, a broken snapshot must never mask the original error.
func Capture(page *rod.Page, dir, label string, logger *slog.Logger) {
	if dir == "" || page == nil {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("snapshot dir unavailable", "dir", dir, "error", err)
		return
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", label, stamp))

	if shot, err := page.Screenshot(false, nil); err != nil {
		logger.Warn("screenshot failed", "label", label, "error", err)
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		logger.Warn("screenshot write failed", "label", label, "error", err)
	}

	if html, err := page.HTML(); err != nil {
		logger.Warn("html capture failed", "label", label, "error", err)
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		logger.Warn("html write failed", "label", label, "error", err)
	}

	logger.Info("diagnostics captured", "label", label, "path", base)
}
