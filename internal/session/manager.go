package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/JonMunkholm/dataviz/internal/logging"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "dataviz_session"

const idKey = "id"

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	MaxAge int // seconds
	Secure bool
}

// Manager maps the signed cookie of a request onto a Store session.
type Manager struct {
	store   *Store
	cookies *sessions.CookieStore
	name    string
}

// NewManager signs cookies with secret.
func NewManager(store *Store, secret []byte, opts CookieOptions) *Manager {
	cs := sessions.NewCookieStore(secret)
	if opts.MaxAge > 0 {
		cs.MaxAge(opts.MaxAge)
	}
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = opts.Secure
	cs.Options.SameSite = http.SameSiteLaxMode

	name := opts.Name
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{store: store, cookies: cs, name: name}
}

// Store returns the underlying session table.
func (m *Manager) Store() *Store { return m.store }

// Load returns the session of r, creating one (and setting the cookie) on
// the first visit, after expiry, or when the cookie cannot be decoded.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	cs, err := m.cookies.Get(r, m.name)
	if err != nil {
		// Bad signature or rotated secret; cs is a fresh session.
		logging.FromContext(r.Context()).Debug("session cookie rejected", "error", err)
	}

	if id, ok := cs.Values[idKey].(string); ok {
		if sess, ok := m.store.Get(id); ok {
			sess.touch(m.store.now())
			return sess, nil
		}
	}

	sess := m.store.Create()
	cs.Values[idKey] = sess.ID
	if err := cs.Save(r, w); err != nil {
		m.store.Delete(sess.ID)
		return nil, fmt.Errorf("save session cookie: %w", err)
	}
	return sess, nil
}

// End drops the session of r and expires its cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	cs, _ := m.cookies.Get(r, m.name)
	if id, ok := cs.Values[idKey].(string); ok {
		m.store.Delete(id)
	}
	cs.Options.MaxAge = -1
	if err := cs.Save(r, w); err != nil {
		return fmt.Errorf("expire session cookie: %w", err)
	}
	return nil
}
