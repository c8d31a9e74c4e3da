package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"watchsync/internal/di"
	"watchsync/internal/models"
	"watchsync/internal/structures"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

func cliFlags(cmd *cli.Command) *structures.CliFlags {
	return &structures.CliFlags{
		ConfigPath: cmd.String("config"),
		DebugMode:  cmd.Bool("debug"),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the daemon until SIGINT or SIGTERM",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := di.InitApp(cliFlags(cmd))
			return err
		},
	}
}

func resumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Print where playback of a title continues",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "id",
				Usage: "Content id; omitted means the most recently watched title",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Media type, movie or tv",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mediaType := models.MediaType(cmd.String("type"))
			if mediaType != "" && !mediaType.Valid() {
				return models.ErrInvalidMediaType
			}
			lookup, err := di.InitLookup(cliFlags(cmd))
			if err != nil {
				return err
			}
			defer lookup.Close()

			point, ok := lookup.Resume(ctx, cmd.Int64("id"), mediaType)
			if !ok {
				return fmt.Errorf("no watch history yet")
			}
			return printJSON(os.Stdout, point)
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print the local watch history, newest first",
		Action: func(_ context.Context, cmd *cli.Command) error {
			lookup, err := di.InitLookup(cliFlags(cmd))
			if err != nil {
				return err
			}
			defer lookup.Close()
			return printJSON(os.Stdout, lookup.History())
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
