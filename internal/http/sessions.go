package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"finpocket/internal/app"
)

const (
	SessionCookieName = "finpocket_session"

	sessionIdleTimeout = 12 * time.Hour
	maxSessions        = 1024
)

// browserSession is the model of one browser. mu serializes requests from
// that browser; other browsers proceed in parallel.
type browserSession struct {
	mu  sync.Mutex
	app *app.App

	lastSeen time.Time // guarded by sessionStore.mu
}

// sessionStore maps opaque cookie values to per-browser models.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*browserSession
	newApp   func() *app.App
	now      func() time.Time
}

func newSessionStore(newApp func() *app.App) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*browserSession),
		newApp:   newApp,
		now:      time.Now,
	}
}

// lookup returns the live session for id. Idle sessions are dropped.
func (st *sessionStore) lookup(id string) (*browserSession, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	bs, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.Sub(bs.lastSeen) > sessionIdleTimeout {
		delete(st.sessions, id)
		return nil, false
	}
	bs.lastSeen = now
	return bs, true
}

// create starts a session on the login page. When the store is full the
// least recently seen session is evicted.
func (st *sessionStore) create() (string, *browserSession) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.pruneLocked(now)
	if len(st.sessions) >= maxSessions {
		var oldestID string
		var oldest time.Time
		for id, bs := range st.sessions {
			if oldestID == "" || bs.lastSeen.Before(oldest) {
				oldestID, oldest = id, bs.lastSeen
			}
		}
		delete(st.sessions, oldestID)
	}

	id := uuid.NewString()
	bs := &browserSession{app: st.newApp(), lastSeen: now}
	st.sessions[id] = bs
	return id, bs
}

func (st *sessionStore) pruneLocked(now time.Time) {
	for id, bs := range st.sessions {
		if now.Sub(bs.lastSeen) > sessionIdleTimeout {
			delete(st.sessions, id)
		}
	}
}

func (st *sessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// session resolves the caller's session from its cookie. With create set,
// a caller without a live session gets a fresh one and its cookie.
func (s *Server) session(w http.ResponseWriter, r *http.Request, create bool) (*browserSession, bool) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if bs, ok := s.sessions.lookup(c.Value); ok {
			return bs, true
		}
	}
	if !create {
		return nil, false
	}
	id, bs := s.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return bs, true
}

// withApp runs fn on the caller's model while holding that session's lock.
// It reports false when there is no session and create is unset.
func (s *Server) withApp(w http.ResponseWriter, r *http.Request, create bool, fn func(a *app.App)) bool {
	bs, ok := s.session(w, r, create)
	if !ok {
		return false
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	fn(bs.app)
	return true
}
