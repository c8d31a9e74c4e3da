package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "progressd",
		Usage: "Watch progress daemon: local history, backend sync and resume lookup",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("WATCHSYNC_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Debug logging to stderr",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			resumeCommand(),
			historyCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "progressd: %v\n", err)
		os.Exit(1)
	}
}
