// Package session keeps per-visitor state between requests: the current
// upload, the chart options and the sentiment history.
//
// Sessions live in memory. The browser only holds a signed cookie with the
// session id.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
)

// Upload is the raw CSV last uploaded in a session. It is parsed again on
// every render so no Table outlives a request.
type Upload struct {
	Name string
	Data []byte
}

// Session is one visitor's state. Read and write the mutable fields inside
// View or Update.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	LastSeen time.Time
	Upload   *Upload
	Options  chart.Options
	History  *sentiment.History
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Created:  now,
		LastSeen: now,
		Options:  chart.DefaultOptions(),
		History:  &sentiment.History{},
	}
}

// Update runs fn with exclusive access to the session.
func (s *Session) Update(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// View runs fn with the session locked for reading. fn must not modify it.
func (s *Session) View(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Snapshot returns the upload and options under the lock. The upload bytes
// are shared and must not be modified.
func (s *Session) Snapshot() (*Upload, chart.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.Options
	opts.Charts = append([]chart.ChartType(nil), s.Options.Charts...)
	return s.Upload, opts
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.LastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastSeen
}
