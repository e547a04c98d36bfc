package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/normanking/cortexlipsync/internal/metrics"
)

// memoryStore is the tier-1 bounded in-process store with LRU eviction.
type memoryStore struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = most recently used
	entries map[string]*list.Element
	evicted int64
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func newMemoryStore(maxSize int) *memoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &memoryStore{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element, maxSize),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if expired(entry.expiresAt, time.Now()) {
		s.order.Remove(el)
		delete(s.entries, key)
		return nil, time.Time{}, false, nil
	}
	s.order.MoveToFront(el)
	return entry.value, entry.expiresAt, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		s.order.MoveToFront(el)
		return nil
	}

	s.entries[key] = s.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})

	for s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*memoryEntry).key)
		s.evicted++
		metrics.CacheEvictions.Inc()
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.order.Remove(el)
		delete(s.entries, key)
	}
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.entries = make(map[string]*list.Element, s.maxSize)
	return nil
}

func (s *memoryStore) Size(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *memoryStore) evictions() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}
