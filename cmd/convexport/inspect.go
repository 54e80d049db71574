package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
	"github.com/MikeSquared-Agency/convexport/internal/exporter"
)

// InspectCommand returns the CLI command that dumps a conversation's
// node structure for debugging.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the node structure of one conversation in an export file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "index",
				Usage: "Inspect the conversation at `N` (0-based)",
			},
			&cli.IntFlag{
				Name:    "nodes",
				Aliases: []string{"n"},
				Usage:   "Print at most `N` nodes (0 for all)",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "repair",
				Usage: "Attempt to repair damaged JSON before decoding",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return errors.New("inspect: export file argument is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel, c.App.ErrWriter)

			opts := conversation.DecodeOptions{Repair: cfg.Repair || c.Bool("repair")}
			return exporter.Inspect(c.App.Writer, c.Args().First(), c.Int("index"), c.Int("nodes"), opts)
		},
	}
}
