package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonnes/qachat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, created time.Time) core.ManifestEntry {
	return core.ManifestEntry{
		SessionID: id,
		Title:     "Session " + id,
		CreatedAt: created,
		Href:      id + ".html",
	}
}

func TestReadFileNotExist(t *testing.T) {
	m, err := ReadFile(filepath.Join(t.TempDir(), "manifest.json"))
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestReadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := ReadFile(path)
	assert.ErrorContains(t, err, "parse manifest")
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")

	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)
	e := entry("abc", now)
	e.UpdatedAt = &later
	e.MessageCount = 8

	m := &Manifest{Entries: []core.ManifestEntry{e}}
	require.NoError(t, m.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "abc", got.Entries[0].SessionID)
	assert.Equal(t, 8, got.Entries[0].MessageCount)
	require.NotNil(t, got.Entries[0].UpdatedAt)
	assert.True(t, later.Equal(*got.Entries[0].UpdatedAt))
}

func TestUpsertReplace(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	m := &Manifest{}

	m.Upsert(entry("a", now))
	m.Upsert(entry("b", now.Add(time.Hour)))

	updated := entry("a", now)
	updated.Title = "Updated title"
	m.Upsert(updated)

	require.Len(t, m.Entries, 2)
	assert.Equal(t, "b", m.Entries[0].SessionID)
	assert.Equal(t, "Updated title", m.Entries[1].Title)
}

func TestUpsertSortsByActivity(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	t3 := t0.Add(3 * time.Hour)

	revived := entry("revived", t0)
	revived.UpdatedAt = &t3

	m := &Manifest{}
	m.Upsert(entry("old", t0))
	m.Upsert(entry("new", t2))
	m.Upsert(entry("mid", t1))
	m.Upsert(revived)

	var ids []string
	for _, e := range m.Entries {
		ids = append(ids, e.SessionID)
	}
	assert.Equal(t, []string{"revived", "new", "mid", "old"}, ids)
}

func TestRemove(t *testing.T) {
	now := time.Now()
	m := &Manifest{}
	m.Upsert(entry("a", now))
	m.Upsert(entry("b", now))

	assert.True(t, m.Remove("a"))
	assert.False(t, m.Remove("a"))
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "b", m.Entries[0].SessionID)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := &Manifest{Entries: []core.ManifestEntry{entry("x", time.Now())}}
	require.NoError(t, m.WriteFile(path))

	// No leftover temp files.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "manifest.json", entries[0].Name())
}

func TestWriteFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")
	require.NoError(t, (&Manifest{}).WriteFile(path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestNewManifestEntry(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	later := now.Add(30 * time.Minute)

	s := &core.Session{
		ID:        "sess-1",
		CreatedAt: now,
		UpdatedAt: &later,
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "What is histogram equalization?"},
			{Role: core.RoleAssistant, Content: "It spreads intensities."},
			{Role: core.RoleUser, Content: "Thanks"},
		},
	}

	e := core.NewManifestEntry(s, "sess-1.html")

	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, "What is histogram equalization?", e.Title)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, &later, e.UpdatedAt)
	assert.Equal(t, 3, e.MessageCount)
	assert.Equal(t, "sess-1.html", e.Href)
}
