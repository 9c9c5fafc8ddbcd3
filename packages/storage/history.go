package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HistoryEntry is one settled dispatch.
type HistoryEntry struct {
	RequestID string    `json:"requestId"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	ElapsedMs int64     `json:"elapsedMs"`
	Outcome   string    `json:"outcome"`
	At        time.Time `json:"at"`
}

// History records dispatches.
type History interface {
	Record(ctx context.Context, e HistoryEntry) error
	History(ctx context.Context, requestID string, limit int) ([]HistoryEntry, error)
}

// MemoryHistory is a History kept in memory.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *MemoryHistory) Record(_ context.Context, e HistoryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func (h *MemoryHistory) History(_ context.Context, requestID string, limit int) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []HistoryEntry
	for _, e := range h.entries {
		if requestID == "" || e.RequestID == requestID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
