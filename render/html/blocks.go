package html

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/sonnes/qachat/core"
	"github.com/yuin/goldmark"
)

const summaryLen = 50

// renderBody renders a message's content. Assistant answers are markdown;
// user and system text is shown verbatim. Blank content renders to "".
func renderBody(md goldmark.Markdown, msg core.Message) (template.HTML, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return "", nil
	}
	if msg.Role == core.RoleAssistant {
		return renderMarkdown(md, msg.Content)
	}
	return renderPlain(msg.Content), nil
}

func renderMarkdown(md goldmark.Markdown, text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("goldmark convert: %w", err)
	}
	return template.HTML(`<div class="prose dark:prose-invert max-w-none">` + buf.String() + `</div>`), nil
}

func renderPlain(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	return template.HTML(`<p class="whitespace-pre-wrap text-sm">` + escaped + `</p>`)
}

// messageSummary returns the first line of a message, shortened for the
// timeline sidebar.
func messageSummary(msg core.Message) string {
	text := strings.TrimSpace(msg.Content)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	text = strings.TrimLeft(text, "#>*- ")
	if r := []rune(text); len(r) > summaryLen {
		text = string(r[:summaryLen-3]) + "..."
	}
	return text
}
