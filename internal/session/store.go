package session

import (
	"log/slog"
	"sync"
	"time"
)

// Store is an in-memory session table with idle expiry.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore returns a store whose sessions expire after ttl without a
// request. When sweepEvery is positive a goroutine removes expired sessions
// at that interval until Close.
func NewStore(ttl, sweepEvery time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if sweepEvery > 0 {
		s.wg.Add(1)
		go s.sweeper(sweepEvery)
	}
	return s
}

func (s *Store) sweeper(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

// Create adds a fresh session.
func (s *Store) Create() *Session {
	sess := newSession(s.now())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the live session for id. An expired session is removed and
// reported as missing.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// Touch records activity on id. It reports whether the session exists.
func (s *Store) Touch(id string) bool {
	sess, ok := s.Get(id)
	if ok {
		sess.touch(s.now())
	}
	return ok
}

// Delete removes id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) expired(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.idleSince()) > s.ttl
}
