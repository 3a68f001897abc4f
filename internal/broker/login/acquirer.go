// Package login drives the brokerage login page to obtain an access token.
package login

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kitefolio/internal/broker"
	"kitefolio/internal/broker/browser"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/secrets"
)

// Failure messages surfaced to callers.
const (
	MsgLaunchFailed       = "could not start browser"
	MsgLoginPageNotLoaded = "login page did not load"
	MsgCredentialsFailed  = "could not submit credentials"
	MsgOTPNotShown        = "otp prompt did not appear"
	MsgOTPFailed          = "could not enter otp"
	MsgRedirectNotSeen    = "redirect not observed"
	MsgTokenExchange      = "token exchange failed"
)

// ErrRedirectTimeout is returned when the address never carried a request token.
var ErrRedirectTimeout = errors.New("timed out waiting for request token")

// Selectors locate the login page elements. All are CSS queries.
type Selectors struct {
	UserID   string
	Password string
	Submit   string
	// OTP is the one-time password input on the second page.
	OTP string
	// OTPSubmit is pressed after entering the code. The page may already have moved on.
	OTPSubmit string
}

// DefaultSelectors matches the Kite web login.
func DefaultSelectors() Selectors {
	return Selectors{
		UserID:    "#userid",
		Password:  "#password",
		Submit:    "button[type='submit']",
		OTP:       "input[type='number']",
		OTPSubmit: "button[type='submit']",
	}
}

// Options tunes the acquisition sequence.
type Options struct {
	Wait            time.Duration // bound on each wait step
	TransitionPause time.Duration // pause after submitting credentials
	PollInterval    time.Duration // how often the address is checked for the redirect
	ScreenshotPath  string        // written on failure when set
	Selectors       Selectors
}

func (o Options) withDefaults() Options {
	if o.Wait <= 0 {
		o.Wait = 20 * time.Second
	}
	if o.TransitionPause < 0 {
		o.TransitionPause = 0
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	def := DefaultSelectors()
	if o.Selectors.UserID == "" {
		o.Selectors.UserID = def.UserID
	}
	if o.Selectors.Password == "" {
		o.Selectors.Password = def.Password
	}
	if o.Selectors.Submit == "" {
		o.Selectors.Submit = def.Submit
	}
	if o.Selectors.OTP == "" {
		o.Selectors.OTP = def.OTP
	}
	if o.Selectors.OTPSubmit == "" {
		o.Selectors.OTPSubmit = def.OTPSubmit
	}
	return o
}

// Acquirer performs the browser login and token exchange.
type Acquirer struct {
	broker   broker.Broker
	launcher browser.Launcher
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewAcquirer creates an Acquirer.
func NewAcquirer(b broker.Broker, launcher browser.Launcher, opts Options, log zerolog.Logger) *Acquirer {
	return &Acquirer{
		broker:   b,
		launcher: launcher,
		opts:     opts.withDefaults(),
		log:      log.With().Str("component", "login").Logger(),
		now:      time.Now,
	}
}

// stepError records which step failed so the outer boundary can wrap it once.
type stepError struct {
	msg   string
	cause error
}

func (e *stepError) Error() string { return e.msg + ": " + e.cause.Error() }
func (e *stepError) Unwrap() error { return e.cause }

func fail(msg string, cause error) error {
	return &stepError{msg: msg, cause: cause}
}

// Acquire logs in with the bundle credentials and returns a fresh access token.
// Every failure is an automation error; nothing is retried.
func (a *Acquirer) Acquire(ctx context.Context, bundle secrets.Bundle) (broker.AccessToken, error) {
	log := a.log.With().Str("attempt", uuid.NewString()).Logger()
	start := a.now()
	log.Info().Msg("Starting session acquisition")

	token, err := a.acquire(ctx, bundle, log)
	if err != nil {
		msg := "session acquisition failed"
		var se *stepError
		if errors.As(err, &se) {
			msg = se.msg
			err = se.cause
		}
		log.Warn().Err(err).Str("step", msg).Msg("Session acquisition failed")
		return "", apperrors.Automation(msg, err)
	}

	log.Info().Dur("elapsed", a.now().Sub(start)).Msg("Session acquired")
	return token, nil
}

func (a *Acquirer) acquire(ctx context.Context, bundle secrets.Bundle, log zerolog.Logger) (tok broker.AccessToken, err error) {
	loginURL := a.broker.LoginURL()

	b, err := a.launcher.Launch(ctx)
	if err != nil {
		return "", fail(MsgLaunchFailed, err)
	}
	defer func() {
		if err != nil {
			a.screenshot(b, log)
		}
		if cerr := b.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("Closing browser")
		}
	}()

	sel := a.opts.Selectors

	if err := b.Navigate(ctx, loginURL); err != nil {
		return "", fail(MsgLoginPageNotLoaded, err)
	}
	if err := b.WaitForElement(ctx, sel.UserID, a.opts.Wait); err != nil {
		return "", fail(MsgLoginPageNotLoaded, err)
	}

	if err := b.Fill(ctx, sel.UserID, bundle.UserID()); err != nil {
		return "", fail(MsgCredentialsFailed, err)
	}
	if err := b.Fill(ctx, sel.Password, bundle.Password()); err != nil {
		return "", fail(MsgCredentialsFailed, err)
	}
	if err := b.Click(ctx, sel.Submit); err != nil {
		return "", fail(MsgCredentialsFailed, err)
	}
	log.Debug().Msg("Credentials submitted")

	if err := sleep(ctx, a.opts.TransitionPause); err != nil {
		return "", fail(MsgOTPNotShown, err)
	}

	if err := b.WaitForElement(ctx, sel.OTP, a.opts.Wait); err != nil {
		return "", fail(MsgOTPNotShown, err)
	}
	code, err := GenerateOTP(bundle.TOTPKey(), a.now())
	if err != nil {
		return "", fail(MsgOTPFailed, err)
	}
	if err := b.Fill(ctx, sel.OTP, code); err != nil {
		return "", fail(MsgOTPFailed, err)
	}
	// Kite submits the form itself once six digits are entered.
	if err := b.Submit(ctx, sel.OTPSubmit); err != nil {
		log.Debug().Err(err).Msg("OTP submit skipped")
	}

	reqToken, err := a.waitForRequestToken(ctx, b)
	if err != nil {
		return "", fail(MsgRedirectNotSeen, err)
	}
	log.Debug().Msg("Request token received")

	access, err := a.broker.ExchangeToken(ctx, reqToken, bundle.APISecret())
	if err != nil {
		return "", fail(MsgTokenExchange, err)
	}
	return access, nil
}

func (a *Acquirer) waitForRequestToken(ctx context.Context, b browser.Browser) (broker.RequestToken, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Wait)
	defer cancel()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		url, err := b.CurrentURL(ctx)
		if err == nil && strings.Contains(url, "request_token") {
			return ExtractRequestToken(url)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrRedirectTimeout
			}
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Acquirer) screenshot(b browser.Browser, log zerolog.Logger) {
	if a.opts.ScreenshotPath == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buf, err := b.Screenshot(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Screenshot failed")
		return
	}
	if err := os.WriteFile(a.opts.ScreenshotPath, buf, 0600); err != nil {
		log.Debug().Err(err).Msg("Writing screenshot")
		return
	}
	log.Info().Str("path", a.opts.ScreenshotPath).Msg("Saved login failure screenshot")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for page transition: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
