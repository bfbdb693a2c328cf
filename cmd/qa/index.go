package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sonnes/qachat/manifest"
	htmlrender "github.com/sonnes/qachat/render/html"
	"github.com/urfave/cli/v3"
)

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Regenerate index.html from the manifest",
		Description: `Reads manifest.json from the given directory and writes index.html
alongside it. Sessions whose page is missing are dropped from the manifest.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Aliases:  []string{"d"},
				Usage:    "Directory containing manifest.json (writes index.html there)",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			manifestPath := filepath.Join(dir, "manifest.json")

			m, err := manifest.ReadFile(manifestPath)
			if err != nil {
				return err
			}

			removed := pruneManifest(dir, m)
			if removed > 0 {
				if err := m.WriteFile(manifestPath); err != nil {
					return fmt.Errorf("write manifest: %w", err)
				}
			}
			return writeIndex(dir, m)
		},
	}
}

// pruneManifest drops entries whose page no longer exists in dir and
// returns how many were removed.
func pruneManifest(dir string, m *manifest.Manifest) int {
	var stale []string
	for _, e := range m.Entries {
		if _, err := os.Stat(filepath.Join(dir, e.Href)); err != nil {
			stale = append(stale, e.SessionID)
		}
	}
	for _, id := range stale {
		m.Remove(id)
	}
	return len(stale)
}

func writeIndex(dir string, m *manifest.Manifest) error {
	renderer := htmlrender.New()
	return writeFile(filepath.Join(dir, "index.html"), func(f *os.File) error {
		return renderer.RenderIndex(f, m.Entries)
	})
}
