package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sonnes/qachat/render/terminal"
	"github.com/urfave/cli/v3"
)

func sessionsCmd() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List, show and delete chat sessions",
		Commands: []*cli.Command{
			sessionsListCmd(),
			sessionsShowCmd(),
			sessionsDeleteCmd(),
		},
	}
}

func sessionsListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List sessions, most recently active first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sessions, err := cfg.conversation(cfg.client()).History(ctx)
			if err != nil {
				return err
			}
			terminal.New().WriteHistory(os.Stdout, sessions, "")
			return nil
		},
	}
}

func sessionsShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a session",
		ArgsUsage: "<session-id>",
		Flags: []cli.Flag{
			sourceFlag(),
			&cli.StringFlag{
				Name:  "o",
				Usage: "Output format: terminal, json, html",
				Value: "terminal",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("a session id is required")
			}

			r, err := sourceReader(cmd)
			if err != nil {
				return err
			}
			s, err := r.ReadSession(ctx, id)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rnd, err := newApp(cfg, "").renderer(cmd.String("o"))
			if err != nil {
				return err
			}
			return rnd.Render(os.Stdout, s)
		},
	}
}

func sessionsDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a session",
		ArgsUsage: "<session-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("a session id is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := cfg.client().DeleteSession(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", id)
			return nil
		},
	}
}
