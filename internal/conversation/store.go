// Package conversation keeps the bounded, in-memory history of exchanges per
// user that feeds the next prompt. Nothing is persisted; history lives for
// the lifetime of the process.
package conversation

import (
	"sync"
	"time"
)

const DefaultCapacity = 10

// Exchange is one user message and the prose the assistant answered with.
type Exchange struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
}

// Store maps user ids to capped histories. The map is guarded by one
// RWMutex and every history by its own lock, so users do not contend.
type Store struct {
	mu            sync.RWMutex
	capacity      int
	conversations map[string]*history
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity:      capacity,
		conversations: make(map[string]*history),
	}
}

// Append records an exchange for userID, evicting the oldest entries once
// the history holds more than Capacity exchanges.
func (s *Store) Append(userID string, exchange Exchange) {
	s.historyFor(userID).push(exchange)
}

// RecentContext returns up to window of the most recent exchanges for
// userID, oldest first. The returned slice is a copy.
func (s *Store) RecentContext(userID string, window int) []Exchange {
	if window <= 0 {
		return []Exchange{}
	}
	h := s.lookup(userID)
	if h == nil {
		return []Exchange{}
	}
	return h.last(window)
}

// Len returns how many exchanges are held for userID.
func (s *Store) Len(userID string) int {
	h := s.lookup(userID)
	if h == nil {
		return 0
	}
	return h.length()
}

// Users returns the number of users with an active conversation.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) lookup(userID string) *history {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[userID]
}

func (s *Store) historyFor(userID string) *history {
	if h := s.lookup(userID); h != nil {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.conversations[userID]; ok {
		return h
	}
	h := newHistory(s.capacity)
	s.conversations[userID] = h
	return h
}

// history is a fixed-size ring of exchanges; a full ring overwrites its
// oldest entry.
type history struct {
	mu      sync.RWMutex
	entries []Exchange
	head    int // next write position
	count   int
}

func newHistory(size int) *history {
	return &history{entries: make([]Exchange, size)}
}

func (h *history) push(exchange Exchange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = exchange
	h.head = (h.head + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

func (h *history) last(n int) []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.count {
		n = h.count
	}
	size := len(h.entries)
	result := make([]Exchange, n)
	for i := 0; i < n; i++ {
		result[i] = h.entries[(h.head-n+i+size)%size]
	}
	return result
}

func (h *history) length() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
