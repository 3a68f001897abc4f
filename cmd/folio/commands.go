package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"kitefolio/internal/app"
	"kitefolio/internal/config"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/logger"
	"kitefolio/internal/notify"
	"kitefolio/internal/report"
	"kitefolio/internal/scheduler"
	"kitefolio/internal/secrets"
)

var commands = []subcommands.Command{
	&reportCmd{},
	&remindCmd{},
	&scheduleCmd{},
}

// setup loads configuration and the logger. Logs go to stderr so stdout stays the report.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(logger.Config{}), err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	return cfg, log, nil
}

func reminderConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		Server:       cfg.NtfyServer,
		Topic:        cfg.NtfyTopic,
		DashboardURL: cfg.DashboardURL,
		WebhookURL:   cfg.WebhookURL,
		Title:        cfg.ReminderTitle,
		Message:      cfg.ReminderMessage,
	}
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case apperrors.IsConfiguration(err):
		fmt.Fprintln(os.Stderr, "Check the environment, .env and the secrets file.")
	case apperrors.IsDelivery(err):
		fmt.Fprintln(os.Stderr, "The reminder was not sent and is not retried.")
	}
	return subcommands.ExitStatus(apperrors.ExitCode(err))
}

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "log in once and print the current holdings" }
func (*reportCmd) Usage() string {
	return `folio report

  Acquires a session, fetches holdings and prints them as a table.
`
}

func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (*reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup()
	if err != nil {
		return fail(err)
	}

	bundle, err := app.ResolveSecrets(ctx, cfg, log, secrets.AcquisitionKeys)
	if err != nil {
		return fail(err)
	}

	snap, err := app.NewPortfolioService(cfg, bundle, log).FetchOrEmpty(ctx)
	if err != nil {
		return fail(err)
	}

	if err := report.Write(os.Stdout, snap); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type remindCmd struct{}

func (*remindCmd) Name() string     { return "remind" }
func (*remindCmd) Synopsis() string { return "send one portfolio reminder notification" }
func (*remindCmd) Usage() string {
	return `folio remind

  Sends one reminder to the ntfy topic (NTFY_TOPIC) or, if none is set, to WEBHOOK_URL.
  Exits 2 when no destination is configured and 1 when delivery fails.
`
}

func (*remindCmd) SetFlags(*flag.FlagSet) {}

func (*remindCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup()
	if err != nil {
		return fail(err)
	}

	if err := notify.New(reminderConfig(cfg), nil, log).Send(ctx); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type scheduleCmd struct {
	cron string
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "send the reminder on a cron schedule" }
func (*scheduleCmd) Usage() string {
	return `folio schedule [-cron <expr>]

  Runs until interrupted, sending one reminder per firing. Failures are logged, not retried.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cron, "cron", "0 9 * * MON", "cron expression (5 or 6 fields, or a descriptor like @weekly)")
}

func (c *scheduleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup()
	if err != nil {
		return fail(err)
	}

	if err := scheduler.Validate(c.cron); err != nil {
		return fail(apperrors.Wrap(apperrors.ErrConfiguration, "invalid cron expression", err))
	}

	reminder := reminderConfig(cfg)
	if _, err := reminder.Destination(); err != nil {
		return fail(err)
	}

	s := scheduler.New(log)
	if err := s.AddJob(c.cron, scheduler.NewReminderJob(notify.New(reminder, nil, log), 0)); err != nil {
		return fail(err)
	}
	s.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	s.Stop()
	return subcommands.ExitSuccess
}
