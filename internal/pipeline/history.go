package pipeline

import (
	"sync"

	"autoedit/pkg/types"
)

// defaultHistoryCapacity bounds the refine chain kept per session.
const defaultHistoryCapacity = 6

// SessionHistory is an append-only, bounded ledger of past results. When
// full, the oldest entry is evicted (FIFO). Lifetime is one session.
type SessionHistory struct {
	mu      sync.Mutex
	entries []types.HistoryEntry
	cap     int
}

// NewSessionHistory creates a history with the given capacity (<=0 uses
// the default of 6).
func NewSessionHistory(capacity int) *SessionHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &SessionHistory{cap: capacity}
}

// Append records an entry, evicting the oldest when over capacity.
func (h *SessionHistory) Append(e types.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

// Latest returns the most recent entry, if any.
func (h *SessionHistory) Latest() (types.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a newest-first copy of the ledger.
func (h *SessionHistory) Entries() []types.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len returns the number of entries.
func (h *SessionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops all entries; called on session end.
func (h *SessionHistory) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}
