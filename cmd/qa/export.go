package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/core"
	"github.com/sonnes/qachat/manifest"
	"github.com/sonnes/qachat/reader"
	"github.com/sonnes/qachat/redact"
	htmlrender "github.com/sonnes/qachat/render/html"
	jsonrender "github.com/sonnes/qachat/render/json"
	"github.com/urfave/cli/v3"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write sessions as HTML pages with a JSON copy, manifest and index",
		Description: `Writes <id>.html and <id>.json for each session into --dir, upserts
their entries in manifest.json and regenerates index.html. Secrets and
personal data are redacted unless --no-redact is given.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Aliases:  []string{"d"},
				Usage:    "Output directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Export only this session",
			},
			sourceFlag(),
		}, redactFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := sourceReader(cmd)
			if err != nil {
				return err
			}
			redactor, err := newRedactor(cmd)
			if err != nil {
				return err
			}

			n, err := export(ctx, r, redactor, cmd.String("id"), cmd.String("dir"))
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d session(s) to %s\n", n, cmd.String("dir"))
			return nil
		},
	}
}

// export renders the selected sessions into dir and refreshes the manifest
// and index. It returns the number of sessions written.
func export(ctx context.Context, r reader.Reader, redactor *redact.Redactor, id, dir string) (int, error) {
	var sessions []*core.Session
	if id != "" {
		s, err := r.ReadSession(ctx, id)
		if err != nil {
			return 0, err
		}
		sessions = []*core.Session{s}
	} else {
		all, err := r.ReadAll(ctx)
		if err != nil {
			return 0, err
		}
		sessions = all
	}

	// IDs come from the backend or from files and become file names in dir.
	for _, s := range sessions {
		if err := core.ValidateSessionID(s.ID); err != nil {
			return 0, err
		}
	}

	if redactor != nil {
		for _, s := range sessions {
			if err := core.Chain(s, redactor); err != nil {
				return 0, fmt.Errorf("redact: %w", err)
			}
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	m, err := manifest.ReadFile(manifestPath)
	if err != nil {
		return 0, err
	}

	html := htmlrender.New()
	js := jsonrender.New(true)
	for _, s := range sessions {
		href := s.ID + ".html"
		if err := writeFile(filepath.Join(dir, href), func(f *os.File) error { return html.Render(f, s) }); err != nil {
			return 0, err
		}
		if err := writeFile(filepath.Join(dir, s.ID+".json"), func(f *os.File) error { return js.Render(f, s) }); err != nil {
			return 0, err
		}
		m.Upsert(core.NewManifestEntry(s, href))
		log.Debug("exported session", "id", s.ID, "messages", len(s.Messages))
	}

	if err := m.WriteFile(manifestPath); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	if err := writeIndex(dir, m); err != nil {
		return 0, err
	}
	return len(sessions), nil
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
