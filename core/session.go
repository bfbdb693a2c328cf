// Package core defines the chat domain shared by the API client, the
// conversation controller, the renderers and the mock backend.
package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidSessionID is returned for IDs that cannot name a file.
var ErrInvalidSessionID = errors.New("invalid session id")

// ValidateSessionID rejects IDs that are empty or would resolve outside the
// directory they are joined to.
func ValidateSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("%w %q", ErrInvalidSessionID, id)
	}
	return nil
}

// Session is one conversation thread with the assistant.
type Session struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id,omitempty"` // upstream assistant thread
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Messages  []Message  `json:"messages"`
}

// Message is a single entry in the thread.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Streaming bool      `json:"streaming,omitempty"` // answer still being replayed
}

// Role enumerates who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a wire role onto a Role. Anything that is not "user" or
// "system" is treated as the assistant.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(s)) {
	case RoleUser:
		return RoleUser
	case RoleSystem:
		return RoleSystem
	default:
		return RoleAssistant
	}
}

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"picture,omitempty"`
}

// FirstName returns the first word of the user's name, or "User".
func (u *User) FirstName() string {
	if u == nil {
		return "User"
	}
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	return "User"
}

const previewLen = 50

// Preview returns the opening of the first user message, used to label the
// session in history lists. Sessions without one are "New Chat".
func (s *Session) Preview() string {
	for _, m := range s.Messages {
		if m.Role != RoleUser {
			continue
		}
		r := []rune(m.Content)
		if len(r) > previewLen {
			return string(r[:previewLen]) + "..."
		}
		return m.Content
	}
	return "New Chat"
}

// LastActivity returns UpdatedAt when set, else CreatedAt.
func (s *Session) LastActivity() time.Time {
	if s.UpdatedAt != nil {
		return *s.UpdatedAt
	}
	return s.CreatedAt
}
