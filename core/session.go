package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const defaultMaxSessionEntries = 4096

// GenerateState returns a cryptographically unguessable session state.
func GenerateState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate session state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// MemorySessionStore keeps sign-in sessions in process memory. It enforces
// the TTL on consume, drops expired entries only through PruneExpired, and
// evicts the oldest session when the entry cap is exceeded.
type MemorySessionStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]SignInSession
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return NewMemorySessionStoreWithLimits(ttl, defaultMaxSessionEntries)
}

func NewMemorySessionStoreWithLimits(ttl time.Duration, maxEntries int) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxSessionEntries
	}
	return &MemorySessionStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]SignInSession{},
	}
}

func (s *MemorySessionStore) Save(_ context.Context, session SignInSession) error {
	if s == nil {
		return fmt.Errorf("core: session store is not configured")
	}
	state := strings.TrimSpace(session.State)
	if state == "" {
		return fmt.Errorf("core: session state is required")
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.Status == "" {
		session.Status = StatusInit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[state]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[state] = cloneSession(session)
	return nil
}

func (s *MemorySessionStore) Consume(_ context.Context, state string) (SignInSession, error) {
	if s == nil {
		return SignInSession{}, fmt.Errorf("core: session store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return SignInSession{}, fmt.Errorf("core: session state is required")
	}

	s.mu.Lock()
	session, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return SignInSession{}, ErrSessionNotFound
	}
	if session.Expired(time.Now(), s.ttl) {
		return SignInSession{}, NewSessionExpiredError(
			fmt.Sprintf("core: sign-in session expired after %s", s.ttl))
	}
	return cloneSession(session), nil
}

func (s *MemorySessionStore) Delete(_ context.Context, state string) error {
	if s == nil {
		return fmt.Errorf("core: session store is not configured")
	}
	s.mu.Lock()
	delete(s.entries, strings.TrimSpace(state))
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: session store is not configured")
	}
	if now.IsZero() {
		now = time.Now()
	}
	s.mu.Lock()
	pruned := s.pruneLocked(now.UTC())
	s.mu.Unlock()
	return pruned, nil
}

func (s *MemorySessionStore) pruneLocked(now time.Time) int {
	pruned := 0
	for state, session := range s.entries {
		if session.Expired(now, s.ttl) {
			delete(s.entries, state)
			pruned++
		}
	}
	return pruned
}

func (s *MemorySessionStore) evictOldestLocked() {
	type entry struct {
		state     string
		createdAt time.Time
	}
	ordered := make([]entry, 0, len(s.entries))
	for state, session := range s.entries {
		ordered = append(ordered, entry{state: state, createdAt: session.CreatedAt})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].createdAt.Before(ordered[j].createdAt)
	})
	if len(ordered) > 0 {
		delete(s.entries, ordered[0].state)
	}
}

var _ SessionStore = (*MemorySessionStore)(nil)
