package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node dev runs.
// TTLs are enforced lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	hashes   map[string]map[string]string
	values   map[string]string
	zsets    map[string]map[string]float64
	expiries map[string]time.Time

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes:   make(map[string]map[string]string),
		values:   make(map[string]string),
		zsets:    make(map[string]map[string]float64),
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

// evictExpired must be called with mu held.
func (s *MemoryStore) evictExpired(key string) {
	deadline, ok := s.expiries[key]
	if !ok || s.now().Before(deadline) {
		return
	}
	delete(s.hashes, key)
	delete(s.values, key)
	delete(s.zsets, key)
	delete(s.expiries, key)
}

func (s *MemoryStore) GetMap(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SetMap(ctx context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.hashes, key)
		delete(s.values, key)
		delete(s.zsets, key)
		delete(s.expiries, key)
	}
	return nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	_, hasHash := s.hashes[key]
	_, hasValue := s.values[key]
	_, hasZSet := s.zsets[key]
	if hasHash || hasValue || hasZSet {
		s.expiries[key] = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	if ttl > 0 {
		s.expiries[key] = s.now().Add(ttl)
	}
	return true, nil
}

func (s *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (s *MemoryStore) ZRem(ctx context.Context, key string, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	if z, ok := s.zsets[key]; ok {
		delete(z, member)
		if len(z) == 0 {
			delete(s.zsets, key)
		}
	}
	return nil
}

func (s *MemoryStore) ZRange(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired(key)

	z := s.zsets[key]
	members := make([]string, 0, len(z))
	for m := range z {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if z[members[i]] == z[members[j]] {
			return members[i] < members[j]
		}
		return z[members[i]] < z[members[j]]
	})
	return members, nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.hashes {
		s.evictExpired(key)
		if _, ok := s.hashes[key]; ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key := range s.values {
		s.evictExpired(key)
		if _, ok := s.values[key]; ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
