// Package remote reads sessions from the chat API.
package remote

import (
	"context"
	"fmt"

	"github.com/sonnes/qachat/core"
)

// Source is the part of the API client the reader uses.
type Source interface {
	ListSessions(ctx context.Context) ([]core.Session, error)
	SessionMessages(ctx context.Context, id string) ([]core.Message, error)
}

// Reader loads sessions through a Source.
type Reader struct {
	Source Source
}

// New returns a Reader over src.
func New(src Source) *Reader {
	return &Reader{Source: src}
}

// ReadSession returns one session with its thread. The session list is
// consulted for its timestamps; the thread comes from the messages endpoint.
func (r *Reader) ReadSession(ctx context.Context, sessionID string) (*core.Session, error) {
	sessions, err := r.Source.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	msgs, err := r.Source.SessionMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	s := &core.Session{ID: sessionID}
	for _, listed := range sessions {
		if listed.ID == sessionID {
			s.ThreadID = listed.ThreadID
			s.CreatedAt = listed.CreatedAt
			s.UpdatedAt = listed.UpdatedAt
			break
		}
	}
	s.Messages = msgs
	if s.CreatedAt.IsZero() && len(msgs) > 0 {
		s.CreatedAt = msgs[0].CreatedAt
	}
	return s, nil
}

// ReadAll returns every session, fetching threads the list omitted.
func (r *Reader) ReadAll(ctx context.Context) ([]*core.Session, error) {
	sessions, err := r.Source.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	out := make([]*core.Session, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if len(s.Messages) == 0 {
			msgs, err := r.Source.SessionMessages(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("read session %s: %w", s.ID, err)
			}
			s.Messages = msgs
		}
		out = append(out, &s)
	}
	return out, nil
}
