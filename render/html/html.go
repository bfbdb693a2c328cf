// Package html renders chat sessions as standalone HTML pages styled with
// Tailwind CSS v4 (CDN) and syntax highlighting via goldmark + chroma.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"time"

	"github.com/sonnes/qachat/core"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

//go:embed templates/*.html
var content embed.FS

// Renderer renders a session to a standalone HTML page.
type Renderer struct {
	md   goldmark.Markdown
	tmpl *template.Template
}

// New creates an HTML Renderer with goldmark configured for GFM and syntax
// highlighting. Raw HTML in answers is escaped.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false), // inline styles for standalone pages
				),
			),
		),
	)

	tmpl := template.Must(
		template.New("page.html").
			Funcs(funcMap()).
			ParseFS(content, "templates/*.html"),
	)

	return &Renderer{md: md, tmpl: tmpl}
}

// pageData is the top-level template data passed to page.html.
type pageData struct {
	Session         *core.Session
	Title           string
	Messages        []messageData
	OverallDuration string // first to last message (e.g. "2m 30s")
}

// messageData is the per-message template data.
type messageData struct {
	ID          string // anchor ID for timeline links (e.g. "msg-0")
	Message     core.Message
	RoleLabel   string
	BorderClass string
	BadgeClass  string
	DotClass    string // timeline dot color class
	Duration    string // time since previous message (e.g. "4s")
	Summary     string // short text description for timeline sidebar
	Body        template.HTML
}

// indexData is the template data passed to index.html.
type indexData struct {
	Entries []core.ManifestEntry
}

// RenderIndex writes an HTML index page listing the given sessions to w,
// most recently active first.
func (r *Renderer) RenderIndex(w io.Writer, entries []core.ManifestEntry) error {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b core.ManifestEntry) int {
		return entryActivity(b).Compare(entryActivity(a))
	})
	return r.tmpl.ExecuteTemplate(w, "index.html", indexData{Entries: sorted})
}

func entryActivity(e core.ManifestEntry) time.Time {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	return e.CreatedAt
}

// Render writes the session as a complete HTML page to w.
func (r *Renderer) Render(w io.Writer, s *core.Session) error {
	var prev time.Time
	var first, last time.Time
	var messages []messageData
	for i, msg := range s.Messages {
		body, err := renderBody(r.md, msg)
		if err != nil {
			return fmt.Errorf("render message %d: %w", i, err)
		}
		if body == "" {
			continue
		}

		md := messageData{
			ID:          fmt.Sprintf("msg-%d", i),
			Message:     msg,
			RoleLabel:   roleLabel(msg.Role),
			BorderClass: borderClass(msg.Role),
			BadgeClass:  badgeClass(msg.Role),
			DotClass:    dotClass(msg.Role),
			Summary:     messageSummary(msg),
			Body:        body,
		}
		if !msg.CreatedAt.IsZero() {
			if !prev.IsZero() {
				md.Duration = formatDuration(msg.CreatedAt.Sub(prev))
			}
			prev = msg.CreatedAt
			if first.IsZero() {
				first = msg.CreatedAt
			}
			last = msg.CreatedAt
		}
		messages = append(messages, md)
	}

	var overallDuration string
	if !first.IsZero() && last.After(first) {
		overallDuration = formatDuration(last.Sub(first))
	}

	data := pageData{
		Session:         s,
		Title:           s.Preview(),
		Messages:        messages,
		OverallDuration: overallDuration,
	}
	return r.tmpl.ExecuteTemplate(w, "page.html", data)
}

func roleLabel(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "User"
	case core.RoleAssistant:
		return "Assistant"
	case core.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}

func borderClass(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "border-l-4 border-l-blue-500"
	case core.RoleAssistant:
		return "border-l-4 border-l-emerald-500"
	case core.RoleSystem:
		return "border-l-4 border-l-slate-400"
	default:
		return ""
	}
}

func badgeClass(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "text-blue-700 dark:text-blue-400 bg-blue-50 dark:bg-blue-950"
	case core.RoleAssistant:
		return "text-emerald-700 dark:text-emerald-400 bg-emerald-50 dark:bg-emerald-950"
	case core.RoleSystem:
		return "text-slate-600 dark:text-slate-400 bg-slate-100 dark:bg-slate-800"
	default:
		return ""
	}
}

func dotClass(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "bg-blue-500"
	case core.RoleAssistant:
		return "bg-emerald-500"
	case core.RoleSystem:
		return "bg-slate-400"
	default:
		return "bg-slate-300"
	}
}
