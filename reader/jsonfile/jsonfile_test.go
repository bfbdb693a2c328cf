package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonnes/qachat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, dir string, s core.Session) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, s.ID+".json"), data, 0o644))
}

func TestReadSession(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	writeSession(t, dir, core.Session{
		ID:        "abc",
		CreatedAt: created,
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "What is edge detection?", CreatedAt: created},
			{Role: core.RoleAssistant, Content: "It finds boundaries.", CreatedAt: created},
		},
	})

	r := &Reader{Dir: dir}
	s, err := r.ReadSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID)
	assert.True(t, created.Equal(s.CreatedAt))
	require.Len(t, s.Messages, 2)
	assert.Equal(t, core.RoleAssistant, s.Messages[1].Role)
}

func TestReadSessionErrors(t *testing.T) {
	dir := t.TempDir()
	r := &Reader{Dir: dir}

	_, err := r.ReadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.ReadSession(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, core.ErrInvalidSessionID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))
	_, err = r.ReadSession(context.Background(), "bad")
	assert.ErrorContains(t, err, "parse session file")
}

func TestReadFileRejectsPathLikeID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.json"), []byte(`{"id":"../escaped","messages":[]}`), 0o644))

	_, err := (&Reader{Dir: dir}).ReadFile(filepath.Join(dir, "ok.json"))
	assert.ErrorIs(t, err, core.ErrInvalidSessionID)

	_, err = (&Reader{Dir: dir}).ReadAll(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidSessionID)
}

func TestReadFileDefaultsID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from-name.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[]}`), 0o644))

	s, err := (&Reader{}).ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-name", s.ID)
}

func TestReadAll(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	later := base.Add(2 * time.Hour)
	writeSession(t, dir, core.Session{ID: "old", CreatedAt: base})
	writeSession(t, dir, core.Session{ID: "new", CreatedAt: base, UpdatedAt: &later})
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.html"), []byte(`<html>`), 0o644))

	sessions, err := (&Reader{Dir: dir}).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "old", sessions[1].ID)
}
