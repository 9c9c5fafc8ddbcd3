package dispatch

import (
	"sync"
	"time"
)

// Snapshot is the last settled response of a request. It is never persisted.
type Snapshot struct {
	RequestID    string            `json:"requestId"`
	HTTPStatus   int               `json:"httpStatus,omitempty"`
	ElapsedMs    int64             `json:"elapsedMs"`
	Payload      []byte            `json:"-"`
	Headers      map[string]string `json:"headers,omitempty"`
	NetworkError bool              `json:"networkError,omitempty"`
	Error        string            `json:"error,omitempty"`
	At           time.Time         `json:"at"`
}

// Slots keeps one snapshot per request id.
type Slots struct {
	mu    sync.RWMutex
	slots map[string]Snapshot
}

func NewSlots() *Slots {
	return &Slots{slots: make(map[string]Snapshot)}
}

// Put overwrites the slot of s.RequestID.
func (s *Slots) Put(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[snap.RequestID] = snap
}

func (s *Slots) Get(requestID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.slots[requestID]
	return snap, ok
}

func (s *Slots) Delete(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, requestID)
}

// Prune drops the slots of every id, e.g. after a cascade delete.
func (s *Slots) Prune(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.slots, id)
	}
}

func (s *Slots) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
