// Package notify sends the periodic portfolio reminder.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "kitefolio/internal/errors"
)

const (
	DefaultServer  = "https://ntfy.sh"
	DefaultTitle   = "Portfolio check"
	DefaultMessage = "Time to review your portfolio."

	httpClientTimeout = 15 * time.Second
)

// Kind names a notification destination.
type Kind string

const (
	KindNtfy    Kind = "ntfy"
	KindWebhook Kind = "webhook"
)

// Config describes where the reminder goes. Empty Server, Title and Message take the defaults.
type Config struct {
	Server       string
	Topic        string
	DashboardURL string
	WebhookURL   string
	Title        string
	Message      string
}

// Destination returns the destination kind. A topic wins over a webhook.
func (c Config) Destination() (Kind, error) {
	switch {
	case c.Topic != "":
		if c.DashboardURL == "" {
			return "", apperrors.Configuration("DASHBOARD_URL is required with NTFY_TOPIC")
		}
		return KindNtfy, nil
	case c.WebhookURL != "":
		return KindWebhook, nil
	default:
		return "", apperrors.Configuration("no reminder destination: set NTFY_TOPIC and DASHBOARD_URL, or WEBHOOK_URL")
	}
}

// Notifier delivers one reminder per Send.
type Notifier struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// New creates a Notifier. A nil client uses a default with a timeout.
func New(cfg Config, client *http.Client, log zerolog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: httpClientTimeout}
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	return &Notifier{cfg: cfg, client: client, log: log.With().Str("component", "notify").Logger()}
}

// Send issues exactly one request. Configuration problems are reported before
// any network activity.
func (n *Notifier) Send(ctx context.Context) error {
	kind, err := n.cfg.Destination()
	if err != nil {
		return err
	}

	req, err := n.buildRequest(ctx, kind)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrConfiguration, "invalid reminder destination", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return apperrors.Delivery("reminder not delivered", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.Delivery("reminder not delivered",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	n.log.Info().Str("destination", string(kind)).Int("status", resp.StatusCode).Msg("Reminder sent")
	return nil
}

func (n *Notifier) buildRequest(ctx context.Context, kind Kind) (*http.Request, error) {
	if kind == KindWebhook {
		return http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, nil)
	}

	url := strings.TrimRight(n.cfg.Server, "/") + "/" + n.cfg.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(n.cfg.Message))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Title", n.cfg.Title)
	req.Header.Set("Priority", "default")
	req.Header.Set("Tags", "chart_with_upwards_trend")
	req.Header.Set("Click", n.cfg.DashboardURL)
	return req, nil
}
