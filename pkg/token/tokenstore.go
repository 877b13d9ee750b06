package tokenstore

import (
	"sync"
	"time"
)

// Store remembers revoked token ids until the token itself would have
// expired; past that point the signature check rejects it anyway.
type Store struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{revoked: map[string]time.Time{}, now: time.Now}
}

// Revoke marks jti as revoked until expiresAt. A zero expiresAt keeps it forever.
func (s *Store) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = expiresAt
	s.sweepLocked()
}

func (s *Store) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.revoked[jti]
	if !ok {
		return false
	}
	return exp.IsZero() || s.now().Before(exp)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

func (s *Store) sweepLocked() {
	now := s.now()
	for k, exp := range s.revoked {
		if !exp.IsZero() && !now.Before(exp) {
			delete(s.revoked, k)
		}
	}
}
