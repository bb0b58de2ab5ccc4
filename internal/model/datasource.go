package model

import "time"

// DataSource is a named, configured backend instance. Name is unique and is
// what callers reference when submitting queries; Type selects which runner
// implementation services it.
type DataSource struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Options   map[string]any `json:"options"`
	CreatedAt time.Time      `json:"created_at"`
}
