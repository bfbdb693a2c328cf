// Package reader defines the interface for loading chat sessions, with their
// full threads, from a backend or from exported files.
package reader

import (
	"context"

	"github.com/sonnes/qachat/core"
)

// Reader loads sessions into the shared core types.
type Reader interface {
	// ReadSession locates and loads a session by its ID.
	ReadSession(ctx context.Context, sessionID string) (*core.Session, error)

	// ReadAll returns every session the source holds.
	ReadAll(ctx context.Context) ([]*core.Session, error)
}
