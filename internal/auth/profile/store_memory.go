package profile

import (
	"context"
	"fmt"
	"sync"

	"portal/internal/auth/models"
	"portal/pkg/platform/sentinel"
)

// Error Contract:
// - Get returns sentinel.ErrNotFound when no document exists for the UID
// - Create overwrites any existing document (put semantics)

// InMemoryStore keeps profile documents in memory for tests/dev.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]models.ProfileDocument
}

// NewInMemoryStore constructs an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]models.ProfileDocument)}
}

func (s *InMemoryStore) Get(_ context.Context, uid string) (*models.ProfileDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uid]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
	}
	return &doc, nil
}

func (s *InMemoryStore) Create(_ context.Context, doc models.ProfileDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.UID] = doc
	return nil
}

// Len returns the number of stored documents.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
