package chat

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/api"
	"github.com/sonnes/qachat/core"
	"github.com/sonnes/qachat/replay"
	"github.com/sonnes/qachat/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	answer   string
	sendErr  error
	created  int
	deleted  []string
	requests []api.SendMessageRequest
	sessions []core.Session
	messages map[string][]core.Message
	block    chan struct{}
}

func (f *fakeBackend) CreateSession(ctx context.Context) (*api.CreateSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &api.CreateSessionResponse{SessionID: "sess-" + string(rune('0'+f.created)), ThreadID: "thread"}, nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) (*api.DeleteSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return &api.DeleteSessionResponse{SessionID: id, Deleted: true}, nil
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]core.Session, error) {
	return f.sessions, nil
}

func (f *fakeBackend) SessionMessages(ctx context.Context, id string) ([]core.Message, error) {
	msgs, ok := f.messages[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return msgs, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, req api.SendMessageRequest) (*api.SendMessageResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.SendMessageResponse{
		SessionID:         req.SessionID,
		AssistantResponse: &api.WireMessage{Role: "assistant", Content: f.answer},
	}, nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, name string, r io.Reader) (*api.UploadFileResponse, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return &api.UploadFileResponse{FileID: "file-1", Filename: filepath.Base(name), Type: api.FileTypeImage}, nil
}

func fastOptions() replay.Options {
	o := replay.DefaultOptions()
	o.Delay = 0
	return o
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSendReplaysAnswer(t *testing.T) {
	b := &fakeBackend{answer: "I can help you with that!"}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	var chunks []string
	msg, err := c.Send(context.Background(), "  hello  ", nil, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{"I can help you ", "with that!"}, chunks)
	assert.Equal(t, "I can help you with that!", msg.Content)
	assert.False(t, msg.Streaming)
	assert.Equal(t, "sess-1", c.SessionID())
	assert.False(t, c.Busy())

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)

	require.Len(t, b.requests, 1)
	assert.Equal(t, "sess-1", b.requests[0].SessionID)
}

func TestSendReusesSession(t *testing.T) {
	b := &fakeBackend{answer: "ok"}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	_, err := c.Send(context.Background(), "one", nil, nil)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "two", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, b.created)
	assert.Len(t, c.Messages(), 4)
}

func TestSendFallsBackOnError(t *testing.T) {
	b := &fakeBackend{sendErr: errors.New("connection refused")}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	var got strings.Builder
	msg, err := c.Send(context.Background(), "hello", nil, func(s string) { got.WriteString(s) })
	require.NoError(t, err)
	assert.Equal(t, replay.FallbackText, got.String())
	assert.Equal(t, replay.FallbackText, msg.Content)
}

func TestSendRejectsEmptyPrompt(t *testing.T) {
	c := New(&fakeBackend{}, WithLogger(quietLogger()))
	_, err := c.Send(context.Background(), " \n\t", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, c.Messages())
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	b := &fakeBackend{answer: "ok", block: make(chan struct{})}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first", nil, nil)
		done <- err
	}()

	require.Eventually(t, c.Busy, time.Second, time.Millisecond)
	_, err := c.Send(context.Background(), "second", nil, nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.NewSession(context.Background()), ErrBusy)

	close(b.block)
	require.NoError(t, <-done)
}

func TestStopBeforeAnswerArrives(t *testing.T) {
	b := &fakeBackend{answer: "a long answer that would take several chunks to replay", block: make(chan struct{})}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	var chunks []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Send(context.Background(), "q", nil, func(s string) { chunks = append(chunks, s) })
		assert.NoError(t, err)
	}()

	require.Eventually(t, c.Busy, time.Second, time.Millisecond)
	c.Stop()
	close(b.block)
	<-done

	assert.Empty(t, chunks)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[1].Content)
	assert.False(t, msgs[1].Streaming)
}

func TestStopDuringReplay(t *testing.T) {
	b := &fakeBackend{answer: strings.Repeat("word ", 40)}
	o := fastOptions()
	o.Delay = 2 * time.Millisecond
	c := New(b, WithReplayOptions(o), WithLogger(quietLogger()))

	var n int
	msg, err := c.Send(context.Background(), "q", nil, func(string) {
		n++
		if n == 3 {
			c.Stop()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Less(t, len(msg.Content), len(b.answer))
	assert.False(t, msg.Streaming)

	// A new answer is not affected by the earlier stop.
	b.answer = "fresh"
	msg, err = c.Send(context.Background(), "again", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", msg.Content)
}

func TestSendContextCancelled(t *testing.T) {
	b := &fakeBackend{answer: strings.Repeat("x", 100)}
	o := fastOptions()
	o.Delay = time.Hour
	c := New(b, WithReplayOptions(o), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	msg, err := c.Send(ctx, "q", nil, func(string) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, strings.Repeat("x", replay.DefaultChunkSize), msg.Content)
	assert.False(t, c.Busy())
}

func TestAttachmentsSplitByType(t *testing.T) {
	b := &fakeBackend{answer: "ok"}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	_, err := c.Send(context.Background(), "describe", []Attachment{
		{FileID: "img-1", Type: api.FileTypeImage},
		{FileID: "doc-1", Type: api.FileTypeFile},
	}, nil)
	require.NoError(t, err)

	require.Len(t, b.requests, 1)
	assert.Equal(t, []string{"img-1"}, b.requests[0].ImageFileIDs)
	assert.Equal(t, []string{"doc-1"}, b.requests[0].FileIDs)
}

func TestSessionManagement(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{
		answer: "ok",
		messages: map[string][]core.Message{
			"old": {
				{Role: core.RoleUser, Content: "earlier question"},
				{Role: core.RoleAssistant, Content: "earlier answer"},
			},
		},
	}
	c := New(b, WithReplayOptions(fastOptions()), WithLogger(quietLogger()))

	assert.ErrorIs(t, c.DeleteSession(ctx), ErrNoSession)

	require.NoError(t, c.SelectSession(ctx, "old"))
	assert.Equal(t, "old", c.SessionID())
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	assert.ErrorIs(t, c.SelectSession(ctx, "missing"), api.ErrNotFound)
	assert.Equal(t, "old", c.SessionID())

	require.NoError(t, c.NewSession(ctx))
	assert.Equal(t, "sess-1", c.SessionID())
	assert.Empty(t, c.Messages())

	require.NoError(t, c.DeleteSession(ctx))
	assert.Equal(t, []string{"sess-1"}, b.deleted)
	assert.Empty(t, c.SessionID())
}

func TestHistorySortsByActivity(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := base.Add(time.Hour)
	b := &fakeBackend{sessions: []core.Session{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base, UpdatedAt: &later},
	}}
	c := New(b, WithLogger(quietLogger()))

	sessions, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	c := New(&fakeBackend{}, WithLogger(quietLogger()))
	a, err := c.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "file-1", a.FileID)
	assert.Equal(t, "figure.png", a.Filename)

	_, err = c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestAgainstLocalServer(t *testing.T) {
	store, err := server.OpenSQLite(filepath.Join(t.TempDir(), "chat.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	srv := server.New(store)
	srv.Logger = quietLogger()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := New(api.New(ts.URL), WithReplayOptions(fastOptions()), WithLogger(quietLogger()))
	msg, err := c.Send(context.Background(), "hello", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, core.MockResponses[0], msg.Content)

	history, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, c.SessionID(), history[0].ID)
	assert.Len(t, history[0].Messages, 2)
}
