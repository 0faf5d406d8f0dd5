// Package memory provides an in-memory BackupWriter for tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"subtrack/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.Subscription
	order []string
}

func New() *Store {
	return &Store{items: make(map[string]core.Subscription)}
}

func (s *Store) Upsert(_ context.Context, sub core.Subscription) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[sub.ID]; !ok {
		s.order = append(s.order, sub.ID)
	}
	s.items[sub.ID] = sub
	return fmt.Sprintf("mem:%s", sub.ID), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a stored copy for assertions in tests.
func (s *Store) Get(id string) (core.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[id]
	return sub, ok
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
