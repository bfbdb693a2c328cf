package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sonnes/qachat/replay"
	"github.com/urfave/cli/v3"
)

func replayCmd() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay text through the chunked answer engine",
		ArgsUsage: "[text]",
		Description: `Prints the text in chunks with the configured --chunk-size and --delay,
the way answers are delivered in chat. Reads --file, or stdin when neither
text nor a file is given. Ctrl-C stops the replay after the current chunk.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the text from this file",
			},
			&cli.BoolFlag{
				Name:  "mark",
				Usage: "Print a | between chunks",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			text, err := replayText(cmd)
			if err != nil {
				return err
			}

			session := replay.New(text, cfg.Replay)
			defer stopOnInterrupt(session.Stop)()

			mark := cmd.Bool("mark")
			first := true
			err = session.Run(ctx, func(chunk string) {
				if mark && !first {
					fmt.Print("|")
				}
				first = false
				fmt.Print(chunk)
			})
			fmt.Println()
			return err
		},
	}
}

func replayText(cmd *cli.Command) (string, error) {
	if args := cmd.Args().Slice(); len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
