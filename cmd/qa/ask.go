package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sonnes/qachat/chat"
	"github.com/urfave/cli/v3"
)

func askCmd() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask one question and print the answer",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "attach",
				Aliases: []string{"a"},
				Usage:   "File or image to upload with the question (repeatable)",
			},
			&cli.StringFlag{
				Name:  "chat-session",
				Usage: "Continue this chat session instead of starting a new one",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("a question is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			conv := cfg.conversation(cfg.client())
			defer stopOnInterrupt(conv.Stop)()

			return ask(ctx, conv, question, cmd.String("chat-session"), cmd.StringSlice("attach"), os.Stdout)
		},
	}
}

func ask(ctx context.Context, conv *chat.Conversation, question, sessionID string, paths []string, w io.Writer) error {
	if sessionID != "" {
		if err := conv.SelectSession(ctx, sessionID); err != nil {
			return err
		}
	}

	var attachments []chat.Attachment
	for _, p := range paths {
		a, err := conv.Upload(ctx, p)
		if err != nil {
			return err
		}
		attachments = append(attachments, a)
	}

	_, err := conv.Send(ctx, question, attachments, func(chunk string) {
		fmt.Fprint(w, chunk)
	})
	fmt.Fprintln(w)
	return err
}
