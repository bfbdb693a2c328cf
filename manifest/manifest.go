// Package manifest manages the metadata index file (manifest.json) written
// next to exported sessions.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/sonnes/qachat/core"
)

// Manifest holds the list of session metadata entries.
type Manifest struct {
	Entries []core.ManifestEntry `json:"entries"`
}

// ReadFile reads a manifest from disk. Returns an empty Manifest if the file
// does not exist.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Upsert adds or replaces an entry matched by SessionID. Entries stay sorted
// by last activity, most recent first.
func (m *Manifest) Upsert(entry core.ManifestEntry) {
	if i := m.index(entry.SessionID); i >= 0 {
		m.Entries[i] = entry
	} else {
		m.Entries = append(m.Entries, entry)
	}
	m.sort()
}

// Remove drops the entry for sessionID and reports whether it was present.
func (m *Manifest) Remove(sessionID string) bool {
	i := m.index(sessionID)
	if i < 0 {
		return false
	}
	m.Entries = slices.Delete(m.Entries, i, i+1)
	return true
}

func (m *Manifest) index(sessionID string) int {
	return slices.IndexFunc(m.Entries, func(e core.ManifestEntry) bool {
		return e.SessionID == sessionID
	})
}

func (m *Manifest) sort() {
	slices.SortStableFunc(m.Entries, func(a, b core.ManifestEntry) int {
		return lastActivity(b).Compare(lastActivity(a))
	})
}

func lastActivity(e core.ManifestEntry) time.Time {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	return e.CreatedAt
}

// WriteFile writes the manifest to disk atomically using a temporary file and
// rename.
func (m *Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}
