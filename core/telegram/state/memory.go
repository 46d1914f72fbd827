package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/sheetbot/core/logger"
)

type memoryManager[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S

	lanesMu sync.Mutex
	lanes   map[int64]*lane
}

// lane is a per-user mutex with a reference count so idle users do not leak.
type lane struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryManager constructs an in-memory Manager; sessions die with the process.
func NewMemoryManager[S any]() Manager[S] {
	return &memoryManager[S]{
		sessions: make(map[int64]S),
		lanes:    make(map[int64]*lane),
	}
}

// Get returns the session for a user if it exists.
func (m *memoryManager[S]) Get(userID int64) (S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Set stores the session for a user, replacing any previous one.
func (m *memoryManager[S]) Set(userID int64, session S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session
}

// Clear removes the entire session for a user.
func (m *memoryManager[S]) Clear(userID int64) {
	m.mu.Lock()
	_, existed := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if existed {
		logger.Debug(context.Background(), "tg", "fsm.clear",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
	}
}

// InProgress reports whether the user currently has an active session.
func (m *memoryManager[S]) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok
}

// Lock serializes handling for one user; different users never block each other.
func (m *memoryManager[S]) Lock(userID int64) func() {
	m.lanesMu.Lock()
	l, ok := m.lanes[userID]
	if !ok {
		l = &lane{}
		m.lanes[userID] = l
	}
	l.refs++
	m.lanesMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.lanesMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.lanes, userID)
			}
			m.lanesMu.Unlock()
		})
	}
}

// Len reports the number of active sessions.
func (m *memoryManager[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
