package core

import "time"

// ManifestEntry holds lightweight metadata for a single exported session,
// used by the manifest file and the index page.
type ManifestEntry struct {
	SessionID    string     `json:"session_id"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	MessageCount int        `json:"message_count"`
	Href         string     `json:"href"`
}

// NewManifestEntry extracts metadata from a Session and pairs it with the
// given href (relative link to the rendered page).
func NewManifestEntry(s *Session, href string) ManifestEntry {
	return ManifestEntry{
		SessionID:    s.ID,
		Title:        s.Preview(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
		Href:         href,
	}
}
