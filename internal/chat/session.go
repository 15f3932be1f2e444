package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one conversation.
type Session struct {
	ID       string
	Memory   *Memory
	lastSeen time.Time
}

// SessionStore keeps sessions in memory and expires them after a period of
// inactivity.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store. now may be nil to use the wall clock.
func NewSessionStore(timeout time.Duration, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      now,
	}
}

// Create starts a new session.
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{ID: uuid.New().String(), Memory: NewMemory(), lastSeen: s.now()}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and refreshes its expiry.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// GetOrCreate returns the session for id, or a new one when id is empty,
// unknown, or expired.
func (s *SessionStore) GetOrCreate(id string) *Session {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess
		}
	}
	return s.Create()
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return s.timeout > 0 && now.Sub(sess.lastSeen) > s.timeout
}
