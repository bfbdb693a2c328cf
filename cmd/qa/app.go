package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/api"
	"github.com/sonnes/qachat/chat"
	"github.com/sonnes/qachat/reader"
	"github.com/sonnes/qachat/reader/jsonfile"
	"github.com/sonnes/qachat/reader/remote"
	"github.com/sonnes/qachat/redact"
	"github.com/sonnes/qachat/render"
	htmlrender "github.com/sonnes/qachat/render/html"
	jsonrender "github.com/sonnes/qachat/render/json"
	"github.com/sonnes/qachat/render/terminal"
	"github.com/sonnes/qachat/replay"
	"github.com/urfave/cli/v3"
)

// configFlags are set on the root command and inherited by every subcommand.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the chat backend",
			Value:   api.DefaultBaseURL,
			Sources: cli.EnvVars("QACHAT_API_URL"),
		},
		&cli.StringFlag{
			Name:    "session",
			Usage:   "Value of the session_id cookie from a browser sign-in",
			Sources: cli.EnvVars("QACHAT_SESSION"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Request timeout",
			Value:   api.DefaultTimeout,
			Sources: cli.EnvVars("QACHAT_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "dev",
			Usage:   "Skip sign-in and act as the development user",
			Sources: cli.EnvVars("QACHAT_DEV"),
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Maximum characters per replayed chunk",
			Value:   replay.DefaultChunkSize,
			Sources: cli.EnvVars("QACHAT_CHUNK_SIZE"),
		},
		&cli.DurationFlag{
			Name:    "delay",
			Usage:   "Pause between replayed chunks",
			Value:   replay.DefaultDelay,
			Sources: cli.EnvVars("QACHAT_DELAY"),
		},
	}
}

// config is the resolved client configuration.
type config struct {
	APIURL  string
	Session string
	Timeout time.Duration
	Dev     bool
	Replay  replay.Options
}

func loadConfig(cmd *cli.Command) (config, error) {
	opts := replay.DefaultOptions()
	opts.ChunkSize = int(cmd.Int("chunk-size"))
	opts.Delay = cmd.Duration("delay")
	if err := opts.Validate(); err != nil {
		return config{}, fmt.Errorf("invalid replay settings: %w", err)
	}
	if cmd.Duration("timeout") <= 0 {
		return config{}, fmt.Errorf("timeout must be positive")
	}
	return config{
		APIURL:  cmd.String("api-url"),
		Session: cmd.String("session"),
		Timeout: cmd.Duration("timeout"),
		Dev:     cmd.Bool("dev"),
		Replay:  opts,
	}, nil
}

func (c config) client() *api.Client {
	return api.New(c.APIURL,
		api.WithTimeout(c.Timeout),
		api.WithSession(c.Session),
		api.WithLogger(log.Default()),
	)
}

func (c config) conversation(b chat.Backend) *chat.Conversation {
	return chat.New(b, chat.WithReplayOptions(c.Replay), chat.WithLogger(log.Default()))
}

// app holds reader and renderer registries used by CLI commands.
type app struct {
	cfg       config
	readers   map[string]func() reader.Reader
	renderers map[string]func() render.Renderer
}

func newApp(cfg config, fromDir string) *app {
	return &app{
		cfg: cfg,
		readers: map[string]func() reader.Reader{
			"remote": func() reader.Reader { return remote.New(cfg.client()) },
			"file":   func() reader.Reader { return &jsonfile.Reader{Dir: fromDir} },
		},
		renderers: map[string]func() render.Renderer{
			"terminal": func() render.Renderer { return terminal.New() },
			"html":     func() render.Renderer { return htmlrender.New() },
			"json":     func() render.Renderer { return jsonrender.New(true) },
		},
	}
}

func (a *app) reader(name string) (reader.Reader, error) {
	fn, ok := a.readers[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return fn(), nil
}

func (a *app) renderer(name string) (render.Renderer, error) {
	fn, ok := a.renderers[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", name)
	}
	return fn(), nil
}

// sourceReader picks the file reader when --from is set, else the backend.
func sourceReader(cmd *cli.Command) (reader.Reader, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	from := cmd.String("from")
	a := newApp(cfg, from)
	if from != "" {
		return a.reader("file")
	}
	return a.reader("remote")
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "from",
		Usage: "Read sessions from a directory of exported JSON instead of the backend",
	}
}

func redactFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-redact",
			Usage: "Disable redaction of secrets and PII",
		},
		&cli.StringSliceFlag{
			Name:  "redact",
			Usage: "Allowlist of rules to redact. Example: --redact=secrets,pii",
		},
	}
}

// newRedactor builds a Redactor from CLI flags. Returns nil when --no-redact is set.
func newRedactor(cmd *cli.Command) (*redact.Redactor, error) {
	if cmd.Bool("no-redact") {
		return nil, nil
	}

	cfg := redact.Config{}
	rules := cmd.StringSlice("redact")

	if len(rules) == 0 {
		cfg.Secrets = true
		cfg.PII = true
	} else {
		for _, r := range rules {
			switch r {
			case "secrets":
				cfg.Secrets = true
			case "pii":
				cfg.PII = true
			default:
				return nil, fmt.Errorf("unknown redaction rule %q", r)
			}
		}
	}

	return redact.New(cfg), nil
}
