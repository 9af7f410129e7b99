package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same semantics as RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	replies map[string]memoryReply
	history map[string][]HistoryEntry
	now     func() time.Time
}

type memoryReply struct {
	value   string
	expires time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		replies: make(map[string]memoryReply),
		history: make(map[string][]HistoryEntry),
		now:     time.Now,
	}
}

// GetReply returns a cached reply, dropping it if expired.
func (s *MemoryStore) GetReply(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.replies[replyKey(key)]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(r.expires) {
		delete(s.replies, replyKey(key))
		return "", false, nil
	}
	return r.value, true, nil
}

// PutReply caches a reply for ttl.
func (s *MemoryStore) PutReply(_ context.Context, key, reply string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies[replyKey(key)] = memoryReply{value: reply, expires: s.now().Add(ttl)}
	return nil
}

// AppendHistory prepends an entry and trims to max.
func (s *MemoryStore) AppendHistory(_ context.Context, session string, entry HistoryEntry, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := historyKey(session)
	list := append([]HistoryEntry{entry}, s.history[key]...)
	if max > 0 && len(list) > max {
		list = list[:max]
	}
	s.history[key] = list
	return nil
}

// History returns up to limit entries, newest first.
func (s *MemoryStore) History(_ context.Context, session string, limit int) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.history[historyKey(session)]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]HistoryEntry{}, list...), nil
}
