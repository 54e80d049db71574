package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/convexport/internal/api"
	"github.com/MikeSquared-Agency/convexport/internal/config"
	"github.com/MikeSquared-Agency/convexport/internal/exporter"
	"github.com/MikeSquared-Agency/convexport/internal/hermes"
)

// ServeCommand returns the CLI command that runs the HTTP API and listens
// for export requests on NATS.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the render API and run exports requested over HTTP or NATS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			logger := setupLogging(cfg.LogLevel, os.Stdout)
			logger.Info("convexport starting", "port", cfg.Port, "version", version)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			in := connect(ctx, cfg, logger)
			defer in.Close()

			queue := &exportQueue{ctx: ctx, cfg: cfg, opts: in.options(), logger: logger}
			defer queue.Wait()

			inputRoot, outputRoot := exportRoots(cfg)
			if cfg.APIToken == "" {
				logger.Warn("no API token configured, HTTP export requests are disabled")
			}

			if in.events != nil {
				err := in.events.Subscribe(hermes.SubjectExportRequested, func(subject string, data []byte) {
					req, err := hermes.ParseExportRequest(data)
					if err != nil {
						logger.Warn("ignoring export request", "subject", subject, "error", err)
						return
					}
					if err := req.Confine(inputRoot, outputRoot); err != nil {
						logger.Warn("ignoring export request", "subject", subject, "error", err)
						return
					}
					if err := queue.Trigger(*req); err != nil {
						logger.Warn("export request rejected", "input", req.Input, "error", err)
					}
				})
				if err != nil {
					return err
				}
			}

			var runs api.RunLister
			if in.db != nil {
				runs = in.db
			}
			srv := api.NewServer(cfg.Port, cfg.APIToken, runs, queue.Trigger, logger,
				api.WithExportRoots(inputRoot, outputRoot))

			logger.Info("convexport ready", "port", cfg.Port)
			err = srv.Start(ctx)
			logger.Info("shutting down")
			return err
		},
	}
}

// exportRoots returns the directories requested exports may read from and
// write to: the configured input (or its directory, for a file) and the
// configured output directory.
func exportRoots(cfg config.Config) (input, output string) {
	input = cfg.Input
	if fi, err := os.Stat(input); err != nil || !fi.IsDir() {
		input = filepath.Dir(input)
	}
	return input, cfg.OutputDir
}

// exportQueue runs requested exports one at a time in the background.
type exportQueue struct {
	ctx    context.Context
	cfg    config.Config
	opts   []exporter.Option
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

var errExportRunning = errors.New("an export is already running")

// Trigger starts req unless another export is still running.
func (q *exportQueue) Trigger(req hermes.ExportRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errExportRunning
	}
	q.running = true

	runCfg := exporter.Config{
		Input:     req.Input,
		OutputDir: q.cfg.OutputDir,
		StatePath: q.cfg.StatePath,
		DryRun:    req.DryRun,
		Force:     req.Force,
		Repair:    q.cfg.Repair || req.Repair,
	}
	if req.OutputDir != "" {
		runCfg.OutputDir = req.OutputDir
		runCfg.StatePath = ""
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
		}()

		rep, err := exporter.NewRunner(runCfg, q.logger, q.opts...).Run(q.ctx)
		if err != nil {
			q.logger.Error("requested export failed", "input", req.Input, "error", err)
			return
		}
		q.logger.Info("requested export finished", "run_id", rep.RunID, "exported", rep.Succeeded, "failed", rep.Failed)
	}()
	return nil
}

// Wait blocks until the running export, if any, has finished.
func (q *exportQueue) Wait() {
	q.wg.Wait()
}
