package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/sonnes/qachat/core"
)

// Status is what the chat header shows about the backend and session.
type Status struct {
	Connected bool
	SessionID string
	User      *core.User
}

// WriteStatus renders the one-line chat header.
func (r *Renderer) WriteStatus(w io.Writer, st Status) {
	parts := []string{styleTitle.Render("QA Learning Platform")}
	if st.Connected {
		parts = append(parts, styleConnected.Render("● Connected"))
	} else {
		parts = append(parts, styleDisconnected.Render("● Disconnected"))
	}
	if st.SessionID != "" {
		parts = append(parts, styleMeta.Render("Session Active"))
	}
	if st.User != nil {
		parts = append(parts, styleMeta.Render(st.User.Name))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// WriteWelcome renders the empty-thread screen: a greeting and the example
// prompts numbered from 1.
func (r *Renderer) WriteWelcome(w io.Writer, user *core.User, prompts []core.ExamplePrompt) {
	width := max(r.TermWidth()-8, 20)

	fmt.Fprintln(w)
	fmt.Fprintln(w, styleTitle.Render("Hello, "+user.FirstName()))
	fmt.Fprintln(w, styleMeta.Render("How can I help you today?"))
	if len(prompts) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i, p := range prompts {
		num := stylePromptNumber.Render(fmt.Sprintf("%d.", i+1))
		fmt.Fprintf(w, "  %s %s  %s\n", num, stylePromptHeading.Render(p.Heading), stylePromptSub.Render(p.Subheading))
		fmt.Fprintln(w, "     "+styleMeta.Render(truncate(p.Message, width)))
	}
}

// WriteHistory renders sessions as a numbered list, marking currentID.
func (r *Renderer) WriteHistory(w io.Writer, sessions []core.Session, currentID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, styleMeta.Render("No chat history yet"))
		return
	}
	width := max(r.TermWidth()-30, 20)
	for i, s := range sessions {
		marker := "  "
		if s.ID == currentID {
			marker = styleCurrent.Render("▸ ")
		}
		title := truncate(s.Preview(), width)
		if s.ID == currentID {
			title = styleCurrent.Render(title)
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, stylePromptNumber.Render(fmt.Sprintf("%2d.", i+1)), title)
		fmt.Fprintln(w, "     "+styleMeta.Render(historyMeta(s)))
	}
}

// historyMeta is the detail line under a history entry.
func historyMeta(s core.Session) string {
	return core.RelativeTime(s.LastActivity()) + " · " + pluralize(len(s.Messages), "message")
}
