package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"poRequestTracker/models"
)

// Session is a logged-in user held in memory. Tokens naming a session that is
// no longer registered are rejected, which is what makes logout effective.
type Session struct {
	ID       string
	Username string
	Role     string
	Email    string
	FullName string
	LastSeen time.Time
}

// Sessions is a registry of active sessions that expire after an idle TTL.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]*Session
}

// NewSessions returns an empty registry. A non-positive ttl means 24h.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{ttl: ttl, now: time.Now, m: make(map[string]*Session)}
}

// TTL returns the idle timeout.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Create registers a session for u and returns it.
func (s *Sessions) Create(u *models.User) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		ID:       uuid.NewString(),
		Username: u.Username,
		Role:     u.Role,
		Email:    u.Email,
		FullName: u.FullName,
		LastSeen: s.now(),
	}
	s.m[sess.ID] = sess
	return sess
}

// Get returns a copy of the session when it exists and has not idled out.
func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return Session{}, false
	}
	if s.now().Sub(sess.LastSeen) > s.ttl {
		delete(s.m, id)
		return Session{}, false
	}
	return *sess, true
}

// Touch marks the session as active now.
func (s *Sessions) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[id]; ok {
		sess.LastSeen = s.now()
	}
}

// Delete removes the session.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

// Cleanup drops every session idle for longer than the TTL and returns how many were removed.
func (s *Sessions) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.m {
		if now.Sub(sess.LastSeen) > s.ttl {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Len returns the number of registered sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
