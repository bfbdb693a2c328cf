package terminal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

type markdownKey struct {
	style string
	width int
}

var (
	markdownMu        sync.Mutex
	markdownRenderers = map[markdownKey]*glamour.TermRenderer{}
)

// renderMarkdown renders text with a cached glamour renderer per style and
// wrap width.
func renderMarkdown(text, style string, width int) (string, error) {
	markdownMu.Lock()
	defer markdownMu.Unlock()

	key := markdownKey{style: style, width: width}
	r, ok := markdownRenderers[key]
	if !ok {
		styleOpt := glamour.WithAutoStyle()
		if style != "" {
			styleOpt = glamour.WithStandardStyle(style)
		}
		var err error
		r, err = glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
		if err != nil {
			return "", fmt.Errorf("markdown renderer: %w", err)
		}
		markdownRenderers[key] = r
	}

	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimLeft(out, "\n"), nil
}
