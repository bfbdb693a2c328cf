// Package chat drives one conversation with the assistant: it keeps the
// thread and the current session, sends prompts to the backend and replays
// each answer in chunks as it becomes available.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/api"
	"github.com/sonnes/qachat/core"
	"github.com/sonnes/qachat/replay"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrBusy        = errors.New("an answer is still being delivered")
	ErrNoSession   = errors.New("no active session")
)

// Backend is the subset of the API client a conversation needs.
type Backend interface {
	CreateSession(ctx context.Context) (*api.CreateSessionResponse, error)
	DeleteSession(ctx context.Context, id string) (*api.DeleteSessionResponse, error)
	ListSessions(ctx context.Context) ([]core.Session, error)
	SessionMessages(ctx context.Context, id string) ([]core.Message, error)
	SendMessage(ctx context.Context, req api.SendMessageRequest) (*api.SendMessageResponse, error)
	UploadFile(ctx context.Context, name string, r io.Reader) (*api.UploadFileResponse, error)
}

// Attachment is an uploaded file to send along with the next prompt.
type Attachment struct {
	FileID   string
	Filename string
	Type     api.FileType
}

// Conversation is safe for concurrent use: Stop may be called from another
// goroutine while Send is replaying an answer.
type Conversation struct {
	backend Backend
	opts    replay.Options
	logger  *log.Logger
	now     func() time.Time

	mu        sync.Mutex
	sessionID string
	messages  []core.Message
	active    *replay.Session
	stopped   bool // Stop arrived before the answer started replaying
	busy      bool
	seq       int
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithReplayOptions sets the chunking and pacing of answers.
func WithReplayOptions(o replay.Options) Option {
	return func(c *Conversation) { c.opts = o }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// New creates a Conversation with no current session.
func New(b Backend, opts ...Option) *Conversation {
	c := &Conversation{
		backend: b,
		opts:    replay.DefaultOptions(),
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the current session, or "" before the first exchange.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the thread.
func (c *Conversation) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Busy reports whether an answer is being fetched or replayed.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Conversation) nextID() string {
	c.seq++
	return strconv.Itoa(c.seq)
}

// Send posts text to the assistant and replays the answer through onChunk.
//
// A session is created first when none is current. If the answer cannot be
// fetched the failure is logged and replay.FallbackText is replayed instead,
// so Send only returns an error for invalid input or a cancelled ctx. The
// returned message is the final state of the assistant answer.
func (c *Conversation) Send(ctx context.Context, text string, attachments []Attachment, onChunk func(string)) (core.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Message{}, ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return core.Message{}, ErrBusy
	}
	c.busy = true
	c.stopped = false
	now := c.now()
	c.messages = append(c.messages, core.Message{
		ID:        c.nextID(),
		Role:      core.RoleUser,
		Content:   text,
		CreatedAt: now,
	})
	answerID := c.nextID()
	c.messages = append(c.messages, core.Message{
		ID:        answerID,
		Role:      core.RoleAssistant,
		CreatedAt: now,
		Streaming: true,
	})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.active = nil
		c.mu.Unlock()
	}()

	content, err := c.fetch(ctx, text, attachments)
	if err != nil {
		if ctx.Err() != nil {
			c.finish(answerID)
			return c.message(answerID), ctx.Err()
		}
		c.logger.Error("send message", "err", err)
		content = replay.FallbackText
	}

	session := replay.New(content, c.opts)
	c.mu.Lock()
	c.active = session
	if c.stopped {
		session.Stop()
	}
	c.mu.Unlock()

	runErr := session.Run(ctx, func(chunk string) {
		c.appendChunk(answerID, chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	c.finish(answerID)
	return c.message(answerID), runErr
}

func (c *Conversation) fetch(ctx context.Context, text string, attachments []Attachment) (string, error) {
	sessionID := c.SessionID()
	if sessionID == "" {
		created, err := c.backend.CreateSession(ctx)
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
		sessionID = created.SessionID
		c.setSession(sessionID)
	}

	req := api.SendMessageRequest{Message: text, SessionID: sessionID}
	for _, a := range attachments {
		if a.Type == api.FileTypeImage {
			req.ImageFileIDs = append(req.ImageFileIDs, a.FileID)
		} else {
			req.FileIDs = append(req.FileIDs, a.FileID)
		}
	}

	resp, err := c.backend.SendMessage(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.SessionID != "" {
		c.setSession(resp.SessionID)
	}
	return resp.AssistantResponse.Content, nil
}

func (c *Conversation) setSession(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

func (c *Conversation) appendChunk(id, chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Content += chunk
			return
		}
	}
}

func (c *Conversation) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Streaming = false
		}
	}
}

func (c *Conversation) message(id string) core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.ID == id {
			return m
		}
	}
	return core.Message{}
}

// Stop ends the replay of the current answer and marks every streaming
// message as finished. At most one already-scheduled chunk may still arrive.
func (c *Conversation) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.Stop()
	} else if c.busy {
		c.stopped = true
	}
	for i := range c.messages {
		c.messages[i].Streaming = false
	}
}

// NewSession opens a fresh session on the backend and clears the thread.
func (c *Conversation) NewSession(ctx context.Context) error {
	if c.Busy() {
		return ErrBusy
	}
	created, err := c.backend.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	c.mu.Lock()
	c.sessionID = created.SessionID
	c.messages = nil
	c.mu.Unlock()
	return nil
}

// DeleteSession deletes the current session and clears the thread.
func (c *Conversation) DeleteSession(ctx context.Context) error {
	if c.Busy() {
		return ErrBusy
	}
	id := c.SessionID()
	if id == "" {
		return ErrNoSession
	}
	if _, err := c.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	c.Reset()
	return nil
}

// Reset forgets the current session and thread without touching the backend.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.sessionID = ""
	c.messages = nil
	c.mu.Unlock()
}

// SelectSession makes id the current session and loads its thread.
func (c *Conversation) SelectSession(ctx context.Context, id string) error {
	if c.Busy() {
		return ErrBusy
	}
	msgs, err := c.backend.SessionMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
	c.messages = make([]core.Message, len(msgs))
	for i, m := range msgs {
		m.ID = c.nextID()
		c.messages[i] = m
	}
	return nil
}

// History lists the backend's sessions, most recently active first.
func (c *Conversation) History(ctx context.Context) ([]core.Session, error) {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	slices.SortStableFunc(sessions, func(a, b core.Session) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	return sessions, nil
}

// Upload sends the file at path to the backend.
func (c *Conversation) Upload(ctx context.Context, path string) (Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	resp, err := c.backend.UploadFile(ctx, path, f)
	if err != nil {
		return Attachment{}, fmt.Errorf("upload: %w", err)
	}
	return Attachment{FileID: resp.FileID, Filename: resp.Filename, Type: resp.Type}, nil
}
