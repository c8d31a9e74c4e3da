package remote

import (
	"sync"
	"time"
	"watchsync/internal/structures"

	"github.com/golang-jwt/jwt/v5"
)

type SessionInterface interface {
	Token() string
	SetToken(token string)
	Clear()
	Authenticated() bool
	Subject() string
}

// Session holds the backend bearer token. JWT tokens are inspected without
// verification only to honour their expiry; opaque tokens never expire.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *jwt.RegisteredClaims
	now    func() time.Time
}

func NewSession(conf *structures.Config) SessionInterface {
	s := &Session{now: time.Now}
	if conf.Backend.Token != "" {
		s.SetToken(conf.Backend.Token)
	}
	return s
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		claims = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = nil
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return true
	}
	return s.now().Before(s.claims.ExpiresAt.Time)
}

func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Subject
}
