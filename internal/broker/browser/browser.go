// Package browser drives the headless browser used for the brokerage login.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Browser is the small surface the login sequence needs.
// Selectors are CSS queries.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Submit(ctx context.Context, selector string) error
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher opens a new browser session.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// ChromeOptions configures the headless Chrome launcher.
type ChromeOptions struct {
	ExecPath string // empty uses the chromedp lookup
	Width    int
	Height   int
}

// ChromeLauncher launches headless Chrome through chromedp.
type ChromeLauncher struct {
	opts ChromeOptions
	log  zerolog.Logger
}

// NewChromeLauncher creates a launcher. The window defaults to 1920x1080.
func NewChromeLauncher(opts ChromeOptions, log zerolog.Logger) *ChromeLauncher {
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	return &ChromeLauncher{opts: opts, log: log.With().Str("component", "browser").Logger()}
}

// Launch starts a fresh headless browser. The caller must Close it.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.opts.Width, l.opts.Height),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	// the browser outlives individual step contexts, so detach it from ctx cancellation
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		l.log.Debug().Msgf(format, args...)
	}))

	// start the process now so launch failures surface here
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	l.log.Debug().Msg("Browser started")
	return &chrome{
		ctx:    tabCtx,
		cancel: func() { tabCancel(); allocCancel() },
	}, nil
}

type chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by the caller's ctx.
func (c *chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *chrome) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *chrome) Fill(ctx context.Context, selector, value string) error {
	return c.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (c *chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *chrome) Submit(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Submit(selector, chromedp.ByQuery))
}

func (c *chrome) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (c *chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close terminates the browser process. It is safe to call more than once.
func (c *chrome) Close() error {
	c.cancel()
	return nil
}
