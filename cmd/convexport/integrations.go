package main

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/convexport/internal/config"
	"github.com/MikeSquared-Agency/convexport/internal/exporter"
	"github.com/MikeSquared-Agency/convexport/internal/hermes"
	"github.com/MikeSquared-Agency/convexport/internal/slack"
	"github.com/MikeSquared-Agency/convexport/internal/store"
)

// integrations holds the optional services an export can report to. Each
// is nil when unconfigured or unreachable.
type integrations struct {
	db     *store.Store
	events *hermes.Client
	slack  *slack.Poster
}

// connect sets up every configured integration. Failures are logged and the
// integration is left out: exports never depend on them.
func connect(ctx context.Context, cfg config.Config, logger *slog.Logger) *integrations {
	in := &integrations{}

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("export catalog unavailable", "error", err)
		} else if err := db.EnsureSchema(ctx); err != nil {
			logger.Warn("export catalog schema setup failed", "error", err)
			db.Close()
		} else {
			in.db = db
			logger.Info("database connected")
		}
	}

	if cfg.NatsURL != "" {
		client, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			logger.Warn("export events unavailable", "error", err)
		} else {
			in.events = client
			logger.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		in.slack = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	return in
}

// options converts the connected integrations into runner options.
func (in *integrations) options() []exporter.Option {
	var opts []exporter.Option
	if in.db != nil {
		opts = append(opts, exporter.WithCatalog(in.db))
	}
	if in.events != nil {
		opts = append(opts, exporter.WithPublisher(in.events))
	}
	if in.slack != nil {
		opts = append(opts, exporter.WithNotifier(in.slack))
	}
	return opts
}

func (in *integrations) Close() {
	if in.events != nil {
		if err := in.events.Flush(); err != nil {
			slog.Warn("failed to flush NATS events", "error", err)
		}
		in.events.Close()
	}
	if in.db != nil {
		in.db.Close()
	}
}
