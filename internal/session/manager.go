package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hoangnd/docpull/internal/browser"
	"github.com/hoangnd/docpull/internal/config"
	"github.com/hoangnd/docpull/internal/login"
	"github.com/hoangnd/docpull/internal/notify"
)

// ErrAuthentication means no authenticated session could be established:
// stored cookies were stale and the credential login failed.
var ErrAuthentication = errors.New("authentication failed")

// Manager owns the single authenticated browser session. Callers get
// the live page via EnsureSession; within the TTL that is a pure
// in-memory check, after it the session is revalidated or rebuilt.
type Manager struct {
	mu       sync.Mutex
	cfg      *config.Config
	logger   *slog.Logger
	store    Store
	launcher *browser.Launcher
	notifier *notify.Notifier

	page            *rod.Page
	authenticatedAt time.Time

	// Swappable in tests.
	now          func() time.Time
	newPage      func(ctx context.Context) (*rod.Page, error)
	probe        func(ctx context.Context, page *rod.Page) (bool, error)
	login        func(ctx context.Context, page *rod.Page) error
	applyCookies func(page *rod.Page, cookies []*proto.NetworkCookie) error
	readCookies  func(page *rod.Page) ([]*proto.NetworkCookie, error)
}

// NewManager wires a Manager. loginFn runs the credential login flow on
// the given page.
func NewManager(cfg *config.Config, logger *slog.Logger, store Store, launcher *browser.Launcher, notifier *notify.Notifier, loginFn func(ctx context.Context, page *rod.Page) error) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		launcher: launcher,
		notifier: notifier,
		now:      time.Now,
		login:    loginFn,
	}
	m.newPage = m.createPage
	m.probe = m.probeSession
	m.applyCookies = setPageCookies
	m.readCookies = func(page *rod.Page) ([]*proto.NetworkCookie, error) {
		return page.Cookies(nil)
	}
	return m
}

// EnsureSession returns a page carrying an authenticated platform
// session. A session validated within the TTL is reused without
// touching the network.
func (m *Manager) EnsureSession(ctx context.Context) (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.page != nil && m.now().Sub(m.authenticatedAt) < m.cfg.SessionTTL {
		m.logger.Debug("reusing live session", "age", m.now().Sub(m.authenticatedAt))
		return m.page, nil
	}

	if m.page == nil {
		page, err := m.newPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("create page: %w", err)
		}
		m.page = page
	}

	// Stored cookies first: replaying a jar is cheap and avoids burning
	// a login (and possibly an OTP email) on every restart.
	if jar, _ := m.store.Load(); jar != nil {
		if err := m.applyCookies(m.page, jar.Cookies); err != nil {
			m.logger.Warn("failed to apply stored cookies", "error", err)
		} else {
			ok, err := m.probe(ctx, m.page)
			if err != nil {
				m.logger.Warn("session probe failed", "error", err)
			}
			if ok {
				m.logger.Info("stored session still valid")
				m.authenticatedAt = m.now()
				m.persistCookies()
				return m.page, nil
			}
			m.logger.Info("stored session expired, falling back to login")
			m.notifier.Alert("Session Expired", "Stored cookies no longer valid, re-authenticating", notify.ColorInfo)
		}
	}

	if err := m.login(ctx, m.page); err != nil {
		m.notifier.Alert("Login Failed", err.Error(), notify.ColorFailure)
		var lerr *login.Error
		if errors.As(err, &lerr) {
			return nil, fmt.Errorf("%w: %s", ErrAuthentication, lerr.Reason)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	m.authenticatedAt = m.now()
	m.persistCookies()
	m.notifier.Alert("Login Succeeded", "Authenticated with platform credentials", notify.ColorSuccess)
	return m.page, nil
}

// Invalidate drops the current session so the next EnsureSession
// rebuilds it from scratch. Called after downstream authentication
// symptoms (e.g. extraction landing on a login page).
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.authenticatedAt = time.Time{}
	if m.page != nil {
		m.page.Close()
		m.page = nil
	}
	if m.launcher != nil {
		// A session that went bad mid-extraction may have poisoned
		// browser state beyond cookies; start the next one clean.
		m.launcher.Recycle()
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear stored session", "error", err)
	}
	m.logger.Info("session invalidated")
}

// Close releases the page. The launcher owns the browser itself.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != nil {
		m.page.Close()
		m.page = nil
	}
}

func (m *Manager) createPage(ctx context.Context) (*rod.Page, error) {
	b, err := m.launcher.Browser(ctx)
	if err != nil {
		return nil, err
	}
	return browser.CreatePage(b, m.cfg.DisableStealth)
}

// probeSession checks whether the page's cookies grant an authenticated
// session: navigate to the account area and see where we land.
func (m *Manager) probeSession(ctx context.Context, page *rod.Page) (bool, error) {
	pg := page.Context(ctx)
	if err := pg.Timeout(m.cfg.NavigationTimeout).Navigate(m.cfg.PlatformBaseURL + "/account-settings"); err != nil {
		return false, err
	}
	_ = pg.Timeout(m.cfg.NavigationTimeout).WaitLoad()

	info, err := pg.Info()
	if err != nil {
		return false, err
	}
	return !login.IsLoginURL(info.URL), nil
}

func setPageCookies(page *rod.Page, cookies []*proto.NetworkCookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return proto.NetworkSetCookies{Cookies: params}.Call(page)
}

// persistCookies snapshots the page's cookies into the store. Failures
// are logged, not fatal; the live session keeps working either way.
func (m *Manager) persistCookies() {
	cookies, err := m.readCookies(m.page)
	if err != nil {
		m.logger.Warn("failed to read cookies for persistence", "error", err)
		return
	}
	jar := &CookieJar{Cookies: cookies, SavedAt: m.now()}
	if err := m.store.Save(jar); err != nil {
		m.logger.Warn("failed to persist cookies", "error", err)
	}
}
