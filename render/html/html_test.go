package html

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sonnes/qachat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSession() *core.Session {
	now := time.Date(2026, 1, 22, 9, 8, 6, 0, time.UTC)
	later := now.Add(30 * time.Second)
	return &core.Session{
		ID:        "test-session-123",
		CreatedAt: now,
		UpdatedAt: &later,
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "How do I apply a Laplacian filter?", CreatedAt: now},
			{
				Role:      core.RoleAssistant,
				CreatedAt: later,
				Content:   "Use `cv2.Laplacian`:\n\n```python\nedges = cv2.Laplacian(img, cv2.CV_64F)\n```",
			},
		},
	}
}

func TestRenderFullPage(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, buildTestSession()))
	out := buf.String()

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<title>How do I apply a Laplacian filter?</title>")
	assert.Contains(t, out, "#test-session-123")
	assert.Contains(t, out, "Jan 22, 2026 9:08 AM")
	assert.Contains(t, out, "2 messages")
	assert.Contains(t, out, "30s")
	assert.Contains(t, out, `href="#msg-0"`)
	assert.Contains(t, out, `id="msg-1"`)
}

func TestRenderMessages(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, buildTestSession()))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, ">User</span>"))
	assert.Equal(t, 1, strings.Count(out, ">Assistant</span>"))
	assert.Contains(t, out, "border-l-blue-500")
	assert.Contains(t, out, "border-l-emerald-500")

	// Assistant markdown is converted and code is highlighted inline.
	assert.Contains(t, out, "<code>cv2.Laplacian</code>")
	assert.Contains(t, out, "background-color")
	assert.NotContains(t, out, "```")
}

func TestRenderSkipsBlankMessages(t *testing.T) {
	s := &core.Session{
		ID: "blank",
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "hello"},
			{Role: core.RoleAssistant, Content: "  "},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, s))
	out := buf.String()

	assert.Contains(t, out, ">User</span>")
	assert.NotContains(t, out, ">Assistant</span>")
}

func TestRenderEmptySession(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, &core.Session{ID: "empty"}))
	out := buf.String()

	assert.Contains(t, out, "<title>New Chat</title>")
	assert.Contains(t, out, "This conversation has no messages.")
}

func TestRenderIndex(t *testing.T) {
	base := time.Now().Add(-3 * time.Hour)
	recent := time.Now()
	entries := []core.ManifestEntry{
		{SessionID: "old", Title: "Older chat", CreatedAt: base, MessageCount: 1, Href: "old.html"},
		{SessionID: "new", Title: "Newer chat", CreatedAt: base, UpdatedAt: &recent, MessageCount: 4, Href: "new.html"},
	}

	var buf bytes.Buffer
	require.NoError(t, New().RenderIndex(&buf, entries))
	out := buf.String()

	assert.Less(t, strings.Index(out, "Newer chat"), strings.Index(out, "Older chat"))
	assert.Contains(t, out, `href="new.html"`)
	assert.Contains(t, out, "4 messages")
	assert.Contains(t, out, "1 message")
	assert.Contains(t, out, "just now")
	assert.Contains(t, out, "3h ago")

	// Input order is left untouched.
	assert.Equal(t, "old", entries[0].SessionID)
}

func TestRenderIndexEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().RenderIndex(&buf, nil))
	assert.Contains(t, buf.String(), "No chat history yet")
}

func TestFormatTimeFuncMap(t *testing.T) {
	fm := funcMap()
	for _, name := range []string{"formatTime", "formatDuration", "relativeTime", "isoTime", "pluralize", "deref"} {
		assert.Contains(t, fm, name)
	}

	assert.Equal(t, "", formatTime(time.Time{}))
	assert.Equal(t, "Mar 5, 2025 2:07 PM", formatTime(time.Date(2025, 3, 5, 14, 7, 0, 0, time.UTC)))
	assert.Equal(t, "1h 13m", formatDuration(73*time.Minute))
	assert.Equal(t, "0 messages", pluralize(0, "message"))
}
