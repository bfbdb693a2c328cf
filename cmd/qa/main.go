package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// Optional; variables already in the environment win over the file.
	_ = godotenv.Load()

	if err := newRoot().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRoot() *cli.Command {
	return &cli.Command{
		Name:  "qa",
		Usage: "Chat with the QA Learning Platform assistant from the terminal",
		Description: `
   __ _  __ _
  / _' |/ _' |
 | (_| | (_| |
  \__, |\__,_|
     |_|

 Ask questions, browse past sessions and export them as HTML.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "error",
			},
		}, configFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			chatCmd(),
			askCmd(),
			sessionsCmd(),
			exportCmd(),
			indexCmd(),
			serveCmd(),
			replayCmd(),
		},
	}
}
