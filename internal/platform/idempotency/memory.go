package idempotency

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entry struct {
	fingerprint string
	done        bool
	replay      Replay
	expires     time.Time
}

// MemoryStore holds keys for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

// Claim takes key for fingerprint unless a live entry already holds it.
func (s *MemoryStore) Claim(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expires) {
		s.entries[key] = &entry{fingerprint: fingerprint, expires: now.Add(ttl)}
		return Claim{State: ClaimAcquired}, nil
	}
	if e.fingerprint != fingerprint {
		return Claim{}, ErrKeyReused
	}
	if !e.done {
		return Claim{State: ClaimBusy}, nil
	}
	return Claim{State: ClaimReplay, Replay: Replay{
		Status: e.replay.Status,
		Header: e.replay.Header.Clone(),
		Body:   append([]byte(nil), e.replay.Body...),
	}}, nil
}

// Complete stores replay under a key previously claimed and restarts its expiry.
func (s *MemoryStore) Complete(_ context.Context, key string, replay Replay, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.done = true
	e.expires = now.Add(ttl)
	e.replay = Replay{
		Status: replay.Status,
		Header: storableHeader(replay.Header),
		Body:   append([]byte(nil), replay.Body...),
	}
	return nil
}

// Abandon forgets key so the next attempt runs again.
func (s *MemoryStore) Abandon(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops up to limit expired entries, oldest first. A non-positive limit drops all of them.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			expired = append(expired, key)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return s.entries[expired[i]].expires.Before(s.entries[expired[j]].expires)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, key := range expired {
		delete(s.entries, key)
	}
	return len(expired), nil
}

// Len reports how many entries are held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
