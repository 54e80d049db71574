package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/convexport/internal/exporter"
)

// ExportCommand returns the CLI command that converts export files.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Convert an export file, or every export under a directory, to Markdown",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write documents to `DIR`",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Resume state `FILE` (default: <output>/.convexport-state.json)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Render everything but write nothing",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-export conversations an earlier run already wrote",
			},
			&cli.BoolFlag{
				Name:  "repair",
				Usage: "Attempt to repair damaged JSON before decoding",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip the catalog, event and Slack integrations",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			// stdout carries the report.
			logger := setupLogging(cfg.LogLevel, os.Stderr)

			runCfg := exporter.Config{
				Input:     cfg.Input,
				OutputDir: cfg.OutputDir,
				StatePath: cfg.StatePath,
				DryRun:    c.Bool("dry-run"),
				Force:     c.Bool("force"),
				Repair:    cfg.Repair || c.Bool("repair"),
			}
			if c.Args().Present() {
				runCfg.Input = c.Args().First()
			}
			if c.IsSet("output") {
				runCfg.OutputDir = c.String("output")
			}
			if c.IsSet("state") {
				runCfg.StatePath = c.String("state")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []exporter.Option
			if !c.Bool("offline") {
				in := connect(ctx, cfg, logger)
				defer in.Close()
				opts = in.options()
			}

			rep, err := exporter.NewRunner(runCfg, logger, opts...).Run(ctx)
			if rep != nil {
				fmt.Fprint(c.App.Writer, "\n"+rep.String())
			}
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("export interrupted: %w", context.Cause(ctx))
				}
				return err
			}
			return nil
		},
	}
}
