package web

// sessions.go keeps one core.Session per browser. Sessions live in a
// go-cache store and expire after the idle TTL; every access pushes the
// expiry forward. The cookie only carries the session id.

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/aibox/internal/core"
)

// SessionFactory builds a new workflow session for id.
type SessionFactory func(id string) *core.Session

// SessionStore holds workflow sessions keyed by id.
type SessionStore struct {
	cache      *cache.Cache
	ttl        time.Duration
	newSession SessionFactory
	mu         sync.Mutex
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity.
func NewSessionStore(ttl time.Duration, factory SessionFactory) *SessionStore {
	c := cache.New(ttl, cleanupInterval(ttl))
	c.OnEvicted(func(id string, _ any) {
		slog.Debug("session expired", "session_id", id)
	})
	return &SessionStore{cache: c, ttl: ttl, newSession: factory}
}

// Get returns the session for id and refreshes its expiry.
func (s *SessionStore) Get(id string) (*core.Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*core.Session)
	s.cache.Set(id, sess, s.ttl)
	return sess, true
}

// Create starts a new session with a fresh id.
func (s *SessionStore) Create() *core.Session {
	sess := s.newSession(uuid.NewString())
	s.cache.Set(sess.ID(), sess, s.ttl)
	return sess
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 2*time.Minute {
		return time.Minute
	}
	return ttl / 2
}

// sessionMiddleware attaches the browser's session to the request context,
// creating one and setting the cookie when needed.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *core.Session
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			sess, _ = s.sessions.Get(c.Value)
		}
		if sess == nil {
			sess = s.sessions.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), r, sess)))
	})
}
