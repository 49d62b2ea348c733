package leads

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadwizard/api/services/wizard"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or finished sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the registry is at capacity.
	ErrTooManySessions = errors.New("too many active sessions")
)

// session serializes every event of one visitor's wizard.
type session struct {
	mu       sync.Mutex
	ctrl     *wizard.Controller
	lastSeen time.Time
	closed   bool
}

// Sessions keeps in-memory wizards between HTTP requests. Wizards are
// never persisted; an idle session expires after the TTL.
type Sessions struct {
	mu    sync.Mutex
	items map[uuid.UUID]*session
	ttl   time.Duration
	max   int
	now   func() time.Time
}

// NewSessions creates a registry holding at most max sessions.
func NewSessions(ttl time.Duration, max int) *Sessions {
	return &Sessions{
		items: make(map[uuid.UUID]*session),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// Add registers ctrl under id.
func (s *Sessions) Add(id uuid.UUID, ctrl *wizard.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) >= s.max {
		s.sweepLocked()
		if len(s.items) >= s.max {
			return ErrTooManySessions
		}
	}
	s.items[id] = &session{ctrl: ctrl, lastSeen: s.now()}
	return nil
}

// Do runs fn with exclusive access to the session's controller. When fn
// reports done the session is released and later calls fail with
// ErrSessionNotFound.
func (s *Sessions) Do(id uuid.UUID, fn func(c *wizard.Controller) (done bool, err error)) error {
	s.mu.Lock()
	sess, ok := s.items[id]
	if ok && s.expired(sess) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}

	done, err := fn(sess.ctrl)

	s.mu.Lock()
	sess.lastSeen = s.now()
	if done {
		sess.closed = true
		delete(s.items, id)
	}
	s.mu.Unlock()
	return err
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired wizard sessions removed", "count", n)
			}
		}
	}
}

func (s *Sessions) sweepLocked() int {
	removed := 0
	for id, sess := range s.items {
		if s.expired(sess) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// expired must be called with s.mu held.
func (s *Sessions) expired(sess *session) bool {
	return s.now().Sub(sess.lastSeen) > s.ttl
}
