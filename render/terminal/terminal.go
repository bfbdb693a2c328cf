// Package terminal renders chat sessions and the interactive chat screens
// as ANSI-colored text.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/sonnes/qachat/core"
)

const defaultWidth = 100

// Renderer pretty-prints a session as message cards to the terminal.
type Renderer struct {
	// Width overrides terminal width detection. Zero means auto-detect.
	Width int
	// Markdown renders assistant answers through glamour.
	Markdown bool
	// Style is the glamour style name. Empty means auto-detect.
	Style string
}

// New creates a Renderer sized to the terminal that renders finished
// answers as markdown.
func New() *Renderer {
	return &Renderer{Markdown: true}
}

// Render writes the session as ANSI-colored message cards to w.
func (r *Renderer) Render(w io.Writer, s *core.Session) error {
	width := r.TermWidth()

	writeHeader(w, s)

	var prev time.Time
	for _, msg := range s.Messages {
		var duration string
		if !msg.CreatedAt.IsZero() && !prev.IsZero() && msg.Role == core.RoleAssistant {
			duration = formatDuration(msg.CreatedAt.Sub(prev))
		}
		if !msg.CreatedAt.IsZero() {
			prev = msg.CreatedAt
		}
		if err := r.writeMessage(w, msg, duration, width); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	return nil
}

// TermWidth returns Width, the width of stdout, or a default.
func (r *Renderer) TermWidth() int {
	if r.Width > 0 {
		return r.Width
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// WriteMessage renders a single message card.
func (r *Renderer) WriteMessage(w io.Writer, msg core.Message) error {
	return r.writeMessage(w, msg, "", r.TermWidth())
}

// WriteCardHeader writes the separator and badge line that open a message
// card. The chat screen uses it before streaming an answer's chunks.
func (r *Renderer) WriteCardHeader(w io.Writer, msg core.Message) {
	writeCardHeader(w, msg, "", r.TermWidth())
}

// writeHeader renders the session metadata block.
func writeHeader(w io.Writer, s *core.Session) {
	fmt.Fprintln(w, styleTitle.Render(s.Preview()))

	var parts []string
	if s.ID != "" {
		parts = append(parts, "#"+s.ID)
	}
	if !s.CreatedAt.IsZero() {
		parts = append(parts, core.RelativeTime(s.CreatedAt))
	}
	parts = append(parts, pluralize(len(s.Messages), "message"))
	fmt.Fprintln(w, styleMeta.Render(strings.Join(parts, "  ")))
}

// writeSeparator renders a horizontal rule.
func writeSeparator(w io.Writer, width int) {
	n := min(width, 72)
	fmt.Fprintln(w)
	fmt.Fprintln(w, styleSeparator.Render(strings.Repeat("─", n)))
}

func writeCardHeader(w io.Writer, msg core.Message, duration string, width int) {
	writeSeparator(w, width)

	var metaParts []string
	if !msg.CreatedAt.IsZero() {
		metaParts = append(metaParts, formatTime(msg.CreatedAt))
	}
	if duration != "" {
		metaParts = append(metaParts, styleDuration.Render(duration))
	}
	header := roleBadge(msg.Role)
	if len(metaParts) > 0 {
		header += "    " + styleMeta.Render(strings.Join(metaParts, "    "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+header)
}

// writeMessage renders a message card: role badge, metadata, content.
// Empty messages are skipped unless still streaming.
func (r *Renderer) writeMessage(w io.Writer, msg core.Message, duration string, width int) error {
	text := strings.TrimSpace(msg.Content)
	if text == "" && !msg.Streaming {
		return nil
	}

	contentWidth := max(width-4, 40)

	writeCardHeader(w, msg, duration, width)

	if r.Markdown && msg.Role == core.RoleAssistant && !msg.Streaming {
		out, err := renderMarkdown(text, r.Style, contentWidth)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
		return nil
	}

	body := lipgloss.NewStyle().Width(contentWidth).Render(text)
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintln(w, "  "+strings.TrimRight(line, " "))
	}
	if msg.Streaming {
		fmt.Fprintln(w, "  "+styleCursor.Render("▍"))
	}
	return nil
}

func roleBadge(role core.Role) string {
	label := strings.ToUpper(string(role))
	switch role {
	case core.RoleUser:
		return styleUserBadge.Render(label)
	case core.RoleAssistant:
		return styleAssistantBadge.Render(label)
	case core.RoleSystem:
		return styleSystemBadge.Render(label)
	default:
		return styleMeta.Render(label)
	}
}

// truncate shortens text to maxWidth, appending "..." if needed.
// Multi-line text is reduced to the first line.
func truncate(s string, maxWidth int) string {
	if maxWidth < 4 {
		maxWidth = 4
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if lipgloss.Width(s) <= maxWidth {
		return s
	}

	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func formatTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
