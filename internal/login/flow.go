// Package login drives the credential login flow against the platform's
// form. The markup shifts between A/B variants, so every lookup walks an
// ordered list of selector candidates with a short per-candidate timeout.
package login

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hoangnd/docpull/internal/browser"
	"github.com/hoangnd/docpull/internal/config"
	"github.com/hoangnd/docpull/internal/diag"
)

// Failure reasons carried by Error.
const (
	ReasonNoLoginForm     = "no-login-form"
	ReasonNoPasswordField = "no-password-field"
	ReasonNoSubmitButton  = "no-submit-button"
	ReasonLoginRejected   = "login-rejected"
	ReasonOTPUnresolvable = "otp-unresolvable"
)

// Error is a terminal login failure with a machine-readable reason.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("login failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// OTPSource provides one-time codes when the platform raises a 2FA
// challenge after password submission.
type OTPSource interface {
	FetchCode(ctx context.Context) (string, error)
}

// Candidate lists, ordered most to least specific. The platform has
// served several variants of its login form over time.
var (
	loginInputSelectors = []string{
		`input[name="login"]`,
		`input[type="email"]`,
		`input[name="email"]`,
		`input#email`,
		`input[name="username"]`,
		`input[autocomplete="username"]`,
		`input[autocomplete="email"]`,
		`input[type="text"]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input#password`,
	}
	submitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`button[name="commit"]`,
	}
	otpInputSelectors = []string{
		`input[autocomplete="one-time-code"]`,
		`input[name="code"]`,
		`input[name="otp"]`,
		`input[type="tel"]`,
	}
	rememberMeSelectors = []string{
		`input[name="remember_me"]`,
		`input#remember_me`,
	}
)

// Flow runs credential logins on a prepared page.
type Flow struct {
	cfg    *config.Config
	logger *slog.Logger
	otp    OTPSource
}

// NewFlow creates a login flow. otp may be nil when the account has no
// 2FA; a challenge will then fail with ReasonOTPUnresolvable.
func NewFlow(cfg *config.Config, logger *slog.Logger, otp OTPSource) *Flow {
	return &Flow{cfg: cfg, logger: logger, otp: otp}
}

// Run performs the full login on page: navigate to the form, fill
// credentials with human pacing, submit, resolve a 2FA challenge if one
// appears, and confirm we left the login surface.
func (f *Flow) Run(ctx context.Context, page *rod.Page) error {
	pg := page.Context(ctx)

	loginURL := f.cfg.PlatformBaseURL + "/login"
	f.logger.Info("starting credential login", "url", loginURL)
	if err := pg.Timeout(f.cfg.NavigationTimeout).Navigate(loginURL); err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	_ = pg.Timeout(f.cfg.NavigationTimeout).WaitLoad()
	browser.Pause(500*time.Millisecond, 1500*time.Millisecond)

	f.propagateCSRF(pg)

	loginInput, sel := firstMatch(pg, loginInputSelectors, f.cfg.SelectorTimeout)
	if loginInput == nil {
		diag.Capture(pg, f.cfg.SnapshotDir, "login-no-form", f.logger)
		return &Error{Reason: ReasonNoLoginForm}
	}
	f.logger.Debug("login input found", "selector", sel)
	if err := f.fillField(loginInput, f.cfg.PlatformLogin); err != nil {
		return fmt.Errorf("fill login field: %w", err)
	}

	browser.Pause(300*time.Millisecond, 900*time.Millisecond)

	passwordInput, sel := firstMatch(pg, passwordSelectors, f.cfg.SelectorTimeout)
	if passwordInput == nil {
		diag.Capture(pg, f.cfg.SnapshotDir, "login-no-password", f.logger)
		return &Error{Reason: ReasonNoPasswordField}
	}
	f.logger.Debug("password input found", "selector", sel)
	if err := f.fillField(passwordInput, f.cfg.PlatformPassword); err != nil {
		return fmt.Errorf("fill password field: %w", err)
	}

	// Keep the session alive as long as the platform allows.
	if remember, _ := firstMatch(pg, rememberMeSelectors, f.cfg.SelectorTimeout); remember != nil {
		if checked, err := remember.Property("checked"); err == nil && !checked.Bool() {
			_ = remember.Click(proto.InputMouseButtonLeft, 1)
		}
	}

	browser.Pause(400*time.Millisecond, 1200*time.Millisecond)

	submit, sel := firstMatch(pg, submitSelectors, f.cfg.SelectorTimeout)
	if submit == nil {
		diag.Capture(pg, f.cfg.SnapshotDir, "login-no-submit", f.logger)
		return &Error{Reason: ReasonNoSubmitButton}
	}
	f.logger.Debug("submit button found", "selector", sel)
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}

	_ = pg.Timeout(f.cfg.NavigationTimeout).WaitLoad()
	browser.Pause(1*time.Second, 2*time.Second)

	info, err := pg.Info()
	if err != nil {
		return fmt.Errorf("read page url after submit: %w", err)
	}

	if IsChallengeURL(info.URL) {
		f.logger.Info("2fa challenge raised", "url", info.URL)
		if err := f.resolveChallenge(ctx, pg); err != nil {
			return err
		}
		if info, err = pg.Info(); err != nil {
			return fmt.Errorf("read page url after challenge: %w", err)
		}
	}

	if IsLoginURL(info.URL) {
		diag.Capture(pg, f.cfg.SnapshotDir, "login-rejected", f.logger)
		return &Error{Reason: ReasonLoginRejected, Err: fmt.Errorf("still on %s", info.URL)}
	}

	f.logger.Info("login succeeded", "url", info.URL)
	return nil
}

// fillField types the value with human pacing and falls back to a DOM
// write when the typed value did not land intact.
func (f *Flow) fillField(el *rod.Element, value string) error {
	if err := browser.TypeHumanly(el, value); err != nil {
		return err
	}
	got, err := el.Property("value")
	if err == nil && len(got.Str()) != len(value) {
		f.logger.Debug("typed value incomplete, writing directly", "got", len(got.Str()), "want", len(value))
		_, err = el.Eval(`(v) => {
			this.value = v;
			this.dispatchEvent(new Event('input', { bubbles: true }));
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`, value)
		return err
	}
	return nil
}

// propagateCSRF mirrors the page's CSRF token into the hidden form field
// when a variant renders the field empty. Token absence is tolerated.
func (f *Flow) propagateCSRF(pg *rod.Page) {
	result, err := pg.Timeout(f.cfg.SelectorTimeout).Eval(`() => {
		const meta = document.querySelector('meta[name="csrf-token"]');
		const input = document.querySelector('input[name="authenticity_token"]');
		if (meta && input && !input.value) {
			input.value = meta.content;
			return 'propagated';
		}
		if (meta || input) return 'present';
		return '';
	}`)
	if err != nil {
		f.logger.Debug("csrf token lookup failed", "error", err)
		return
	}
	if state := result.Value.Str(); state != "" {
		f.logger.Debug("csrf token", "state", state)
	}
}

// resolveChallenge fetches the emailed code and submits it.
func (f *Flow) resolveChallenge(ctx context.Context, pg *rod.Page) error {
	if f.otp == nil {
		return &Error{Reason: ReasonOTPUnresolvable, Err: fmt.Errorf("no otp source configured")}
	}

	// The code mail can lag a few seconds behind the challenge page.
	browser.Pause(4*time.Second, 7*time.Second)

	code, err := f.otp.FetchCode(ctx)
	if err != nil {
		diag.Capture(pg, f.cfg.SnapshotDir, "otp-fetch-failed", f.logger)
		return &Error{Reason: ReasonOTPUnresolvable, Err: err}
	}
	f.logger.Info("otp code retrieved")

	codeInput, sel := firstMatch(pg, otpInputSelectors, f.cfg.SelectorTimeout)
	if codeInput == nil {
		diag.Capture(pg, f.cfg.SnapshotDir, "otp-no-input", f.logger)
		return &Error{Reason: ReasonOTPUnresolvable, Err: fmt.Errorf("no code input on challenge page")}
	}
	f.logger.Debug("otp input found", "selector", sel)

	if err := browser.TypeHumanly(codeInput, code); err != nil {
		return fmt.Errorf("type otp code: %w", err)
	}
	browser.Pause(300*time.Millisecond, 800*time.Millisecond)

	if submit, _ := firstMatch(pg, submitSelectors, f.cfg.SelectorTimeout); submit != nil {
		if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("submit otp code: %w", err)
		}
	} else if err := codeInput.Type(input.Enter); err != nil {
		return fmt.Errorf("submit otp code: %w", err)
	}

	_ = pg.Timeout(f.cfg.NavigationTimeout).WaitLoad()
	browser.Pause(1*time.Second, 2*time.Second)
	return nil
}

// firstMatch returns the first visible element matching any candidate,
// trying each with its own short timeout.
func firstMatch(pg *rod.Page, selectors []string, timeout time.Duration) (*rod.Element, string) {
	for _, sel := range selectors {
		el, err := pg.Timeout(timeout).Element(sel)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		return el, sel
	}
	return nil, ""
}
