package model

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryEntry records one accepted status change.
type HistoryEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedBy int64     `json:"updatedBy"`
	Note      string    `json:"note,omitempty"`
}

// StatusHistory is the append-only list of status changes stored inline on
// the owning row as a JSON array (JSONB on postgres).
type StatusHistory = datatypes.JSONSlice[HistoryEntry]

// AppendHistory returns a new history with entry appended; h is not modified.
func AppendHistory(h StatusHistory, entry HistoryEntry) StatusHistory {
	out := make(StatusHistory, len(h), len(h)+1)
	copy(out, h)
	return append(out, entry)
}

// LastEntry returns the most recent entry of h.
func LastEntry(h StatusHistory) (HistoryEntry, bool) {
	if len(h) == 0 {
		return HistoryEntry{}, false
	}
	return h[len(h)-1], true
}
