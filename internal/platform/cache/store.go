package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/resilience"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store is an in-process TTL cache with load deduplication.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	flight  resilience.SingleFlight[T]
	now     func() time.Time
}

func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store[T]) Get(_ context.Context, key string) (T, bool) {
	var zero T
	if key == "" {
		return zero, false
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.ttl > 0 && !e.expiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

func (s *Store[T]) Set(_ context.Context, key string, value T) {
	if key == "" {
		return
	}

	expiresAt := time.Time{}
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry[T]{value: value, expiresAt: expiresAt}
	s.mu.Unlock()
}

func (s *Store[T]) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix. Pipeline runs use it to
// invalidate read models after the ledger changes.
func (s *Store[T]) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

func (s *Store[T]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (T, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return zero, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	return value, nil
}
