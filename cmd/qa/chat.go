package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/peterh/liner"
	"github.com/sonnes/qachat/api"
	"github.com/sonnes/qachat/chat"
	"github.com/sonnes/qachat/core"
	"github.com/sonnes/qachat/render/terminal"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /new             start a new chat
  /delete          delete the current chat
  /history         list previous chats
  /load <n|id>     open a chat from /history
  /upload <path>   attach a file or image to the next message
  /examples        show the example prompts
  /logout          sign out and quit
  /help            show this help
  /quit            quit
A digit 1-4 on an empty chat sends that example prompt.
Ctrl-C while an answer is being written stops it.`

var errNotSignedIn = errors.New("not signed in")

func chatCmd() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history-file",
				Usage: "Where to keep the input history",
				Value: defaultHistoryFile(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := cfg.client()
			r := newREPL(client, cfg.conversation(client), terminal.New(), os.Stdout)
			if err := r.start(ctx, cfg.Dev); err != nil {
				return err
			}

			line := liner.NewLiner()
			line.SetCtrlCAborts(true)
			defer line.Close()

			historyFile := cmd.String("history-file")
			if f, err := os.Open(historyFile); err == nil {
				line.ReadHistory(f)
				f.Close()
			}
			defer saveHistory(line, historyFile)

			// Interrupts outside the prompt stop the answer being replayed.
			defer stopOnInterrupt(r.interrupt)()

			return r.loop(ctx, line)
		},
	}
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "qachat", "history")
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// prompter reads one line of input. *liner.State satisfies it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// repl is the interactive chat screen.
type repl struct {
	client  *api.Client
	conv    *chat.Conversation
	render  *terminal.Renderer
	out     io.Writer
	prompts []core.ExamplePrompt

	user      *core.User
	connected bool
	pending   []chat.Attachment
	listed    []core.Session // last /history, for /load <n>
}

func newREPL(client *api.Client, conv *chat.Conversation, r *terminal.Renderer, out io.Writer) *repl {
	return &repl{
		client:  client,
		conv:    conv,
		render:  r,
		out:     out,
		prompts: core.ExamplePrompts,
	}
}

// start checks the backend and the signed-in user and draws the first screen.
func (r *repl) start(ctx context.Context, dev bool) error {
	r.connected = r.client.Health(ctx) == nil
	if !r.connected {
		log.Warn("backend unreachable", "url", r.client.BaseURL())
	}

	if dev {
		u := core.MockUser
		r.user = &u
	} else if r.connected {
		u, err := r.client.Me(ctx)
		if err != nil {
			return fmt.Errorf("check sign-in: %w", err)
		}
		if u == nil {
			fmt.Fprintf(r.out, "Sign in with Google at %s\nthen pass the session_id cookie with --session or QACHAT_SESSION.\n", r.client.LoginURL())
			return errNotSignedIn
		}
		r.user = u
	}

	r.drawHeader()
	r.render.WriteWelcome(r.out, r.user, r.prompts)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Type /help for commands.")
	return nil
}

func (r *repl) drawHeader() {
	r.render.WriteStatus(r.out, terminal.Status{
		Connected: r.connected,
		SessionID: r.conv.SessionID(),
		User:      r.user,
	})
}

func (r *repl) interrupt() {
	if r.conv.Busy() {
		r.conv.Stop()
	}
}

func (r *repl) loop(ctx context.Context, in prompter) error {
	for {
		raw, err := in.Prompt(r.promptString())
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out, "(use /quit or Ctrl-D to leave)")
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(raw)
		if input == "" {
			continue
		}
		in.AppendHistory(input)

		exit, err := r.handle(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if exit {
			return nil
		}
	}
}

func (r *repl) promptString() string {
	if n := len(r.pending); n > 0 {
		return fmt.Sprintf("[%d attached] > ", n)
	}
	return "> "
}

// handle runs one line of input and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, input string) (bool, error) {
	if !strings.HasPrefix(input, "/") {
		if n, err := strconv.Atoi(input); err == nil && len(r.conv.Messages()) == 0 && n >= 1 && n <= len(r.prompts) {
			input = r.prompts[n-1].Message
			fmt.Fprintln(r.out, input)
		}
		return false, r.send(ctx, input)
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/new":
		if err := r.conv.NewSession(ctx); err != nil {
			return false, err
		}
		r.pending = nil
		r.drawHeader()
		r.render.WriteWelcome(r.out, r.user, r.prompts)
	case "/delete":
		if err := r.conv.DeleteSession(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Chat deleted.")
		r.drawHeader()
	case "/history":
		sessions, err := r.conv.History(ctx)
		if err != nil {
			return false, err
		}
		r.listed = sessions
		r.render.WriteHistory(r.out, sessions, r.conv.SessionID())
	case "/load":
		return false, r.load(ctx, arg)
	case "/upload":
		if arg == "" {
			return false, fmt.Errorf("usage: /upload <path>")
		}
		a, err := r.conv.Upload(ctx, arg)
		if err != nil {
			return false, err
		}
		r.pending = append(r.pending, a)
		fmt.Fprintf(r.out, "Attached %s (%s)\n", a.Filename, a.Type)
	case "/examples":
		r.render.WriteWelcome(r.out, r.user, r.prompts)
	case "/logout":
		if err := r.client.Logout(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Signed out.")
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (r *repl) load(ctx context.Context, arg string) error {
	if arg == "" {
		return fmt.Errorf("usage: /load <n|id>")
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(r.listed) {
			return fmt.Errorf("no chat %d in the last /history", n)
		}
		id = r.listed[n-1].ID
	}
	if err := r.conv.SelectSession(ctx, id); err != nil {
		return err
	}
	r.pending = nil
	r.drawHeader()
	for _, m := range r.conv.Messages() {
		if err := r.render.WriteMessage(r.out, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	attachments := r.pending
	r.pending = nil

	r.render.WriteCardHeader(r.out, core.Message{Role: core.RoleAssistant})
	fmt.Fprint(r.out, "  ")
	_, err := r.conv.Send(ctx, text, attachments, func(chunk string) {
		fmt.Fprint(r.out, strings.ReplaceAll(chunk, "\n", "\n  "))
	})
	fmt.Fprintln(r.out)
	return err
}
