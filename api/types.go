package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sonnes/qachat/core"
)

// Timestamp decodes both RFC 3339 times and the naive ISO-8601 times the
// backend emits (no zone, microsecond precision). Naive times are read as
// local time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses s with every layout the backend is known to use.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// WireMessage is a message as exchanged with the backend.
type WireMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// Message converts the wire form into a core.Message.
func (m WireMessage) Message() core.Message {
	return core.Message{
		Role:      core.ParseRole(m.Role),
		Content:   m.Content,
		CreatedAt: m.Timestamp.Time,
	}
}

// WireSession is a session entry of GET /sessions.
type WireSession struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Messages  []WireMessage `json:"messages"`
	CreatedAt Timestamp     `json:"created_at"`
	UpdatedAt Timestamp     `json:"updated_at"`
}

// Session converts the wire form into a core.Session.
func (s WireSession) Session() core.Session {
	out := core.Session{
		ID:        s.ID,
		ThreadID:  s.ThreadID,
		CreatedAt: s.CreatedAt.Time,
		Messages:  make([]core.Message, len(s.Messages)),
	}
	if !s.UpdatedAt.IsZero() {
		u := s.UpdatedAt.Time
		out.UpdatedAt = &u
	}
	for i, m := range s.Messages {
		out.Messages[i] = m.Message()
	}
	return out
}

// SendMessageRequest is the body of POST /chat. An empty SessionID asks the
// backend to open a new session.
type SendMessageRequest struct {
	Message      string   `json:"message"`
	SessionID    string   `json:"session_id,omitempty"`
	FileIDs      []string `json:"file_ids,omitempty"`
	ImageFileIDs []string `json:"image_file_ids,omitempty"`
}

// SendMessageResponse is the reply of POST /chat.
type SendMessageResponse struct {
	SessionID         string       `json:"session_id"`
	Message           WireMessage  `json:"message"`
	AssistantResponse *WireMessage `json:"assistant_response"`
}

// CreateSessionResponse is the reply of POST /sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
}

// DeleteSessionResponse is the reply of DELETE /sessions/{id}.
type DeleteSessionResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// FileType classifies an uploaded file.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeFile  FileType = "file"
)

// UploadFileResponse is the reply of POST /upload.
type UploadFileResponse struct {
	FileID   string   `json:"file_id"`
	Filename string   `json:"filename"`
	Type     FileType `json:"type"`
}

// SessionMessagesResponse is the reply of GET /sessions/{id}/messages.
type SessionMessagesResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []WireMessage `json:"messages"`
}

// ListSessionsResponse is the reply of GET /sessions.
type ListSessionsResponse struct {
	Sessions []WireSession `json:"sessions"`
}

// MeResponse is the reply of GET /auth/me. User is nil when signed out.
type MeResponse struct {
	User *core.User `json:"user"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// errorResponse matches the {"detail": ...} and {"error": ...} error bodies.
type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}
