package models

import "time"

// HistoryEntry is one refresh event from the server's audit trail.
type HistoryEntry struct {
	CreatedAt       time.Time
	ExpiresAt       time.Time
	IsActive        bool
	LastRefreshedBy string
	RefreshCount    int
}

// ActiveEntries returns the entries flagged active. A consistent trail has
// at most one.
func ActiveEntries(entries []HistoryEntry) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out
}
