// Package browser manages the single shared browser instance used for
// platform automation. All work is serialized upstream, so one browser
// process is kept alive and relaunched only when it dies or is recycled.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/hoangnd/docpull/internal/config"
)

// ErrLauncherClosed is returned when requesting a browser after Close.
var ErrLauncherClosed = errors.New("browser launcher is closed")

// Launcher owns the one live browser process.
type Launcher struct {
	mu       sync.Mutex
	cfg      *config.Config
	logger   *slog.Logger
	browser  *rod.Browser
	launched time.Time
	closed   bool

	// launch is swappable in tests.
	launch func() (*rod.Browser, error)
}

// NewLauncher creates a launcher; no browser is started until Browser is called.
func NewLauncher(cfg *config.Config, logger *slog.Logger) *Launcher {
	l := &Launcher{
		cfg:    cfg,
		logger: logger,
	}
	l.launch = l.launchBrowser
	return l
}

// Warmup ensures a Chromium binary is available so the first request does
// not pay the download cost.
func (l *Launcher) Warmup(ctx context.Context) error {
	if l.cfg.ChromePath != "" {
		l.logger.Info("using custom Chrome path", "path", l.cfg.ChromePath)
		return nil
	}
	l.logger.Info("ensuring Chromium is available...")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return err
	}
	l.logger.Info("Chromium ready", "path", path)
	return nil
}

// Browser returns the live browser, launching or relaunching as needed.
func (l *Launcher) Browser(ctx context.Context) (*rod.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLauncherClosed
	}

	if l.browser != nil {
		if l.healthy() {
			return l.browser, nil
		}
		l.logger.Warn("browser unhealthy, relaunching", "age", time.Since(l.launched))
		l.closeLocked()
	}

	b, err := l.launch()
	if err != nil {
		return nil, err
	}
	l.browser = b
	l.launched = time.Now()
	l.logger.Info("browser launched")
	return b, nil
}

// Recycle closes the current browser so the next Browser call starts fresh.
// Used after authentication failures to drop poisoned state.
func (l *Launcher) Recycle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser != nil {
		l.logger.Info("recycling browser", "age", time.Since(l.launched))
		l.closeLocked()
	}
}

// Close shuts the browser down permanently.
func (l *Launcher) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.closeLocked()
}

func (l *Launcher) closeLocked() {
	if l.browser == nil {
		return
	}
	if err := l.browser.Close(); err != nil {
		l.logger.Warn("error closing browser", "error", err)
	}
	l.browser = nil
}

// healthy pings the browser process. A dead process makes Pages fail.
func (l *Launcher) healthy() bool {
	defer func() {
		recover()
	}()
	_, err := l.browser.Pages()
	return err == nil
}

// launchBrowser starts a headless Chromium tuned for automation work.
func (l *Launcher) launchBrowser() (*rod.Browser, error) {
	ln := launcher.New()

	if l.cfg.ChromePath != "" {
		ln = ln.Bin(l.cfg.ChromePath)
	}

	ln = ln.
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en")

	u, err := ln.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, err
	}
	return b, nil
}
