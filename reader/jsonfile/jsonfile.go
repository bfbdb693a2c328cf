// Package jsonfile reads sessions previously exported as JSON, one
// <session-id>.json file per session.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sonnes/qachat/core"
)

// manifestName is written next to the sessions by export and skipped here.
const manifestName = "manifest.json"

// ErrNotFound is returned when no file holds the requested session.
var ErrNotFound = errors.New("session not found")

// Reader reads session JSON files from Dir.
type Reader struct {
	Dir string
}

// ReadFile parses a single session file.
func (r *Reader) ReadFile(path string) (*core.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s core.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := core.ValidateSessionID(s.ID); err != nil {
		return nil, fmt.Errorf("session file %s: %w", path, err)
	}
	return &s, nil
}

// ReadSession loads <Dir>/<sessionID>.json.
func (r *Reader) ReadSession(ctx context.Context, sessionID string) (*core.Session, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	path := filepath.Join(r.Dir, sessionID+".json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return r.ReadFile(path)
}

// ReadAll loads every session file in Dir, most recently active first.
func (r *Reader) ReadAll(ctx context.Context) ([]*core.Session, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var sessions []*core.Session
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name() == manifestName {
			continue
		}
		s, err := r.ReadFile(filepath.Join(r.Dir, e.Name()))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	slices.SortStableFunc(sessions, func(a, b *core.Session) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	return sessions, nil
}
