package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"portal/pkg/platform/sentinel"
)

// InMemoryAccountStore keeps accounts in process.
type InMemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
	links   map[string]string
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		links:   make(map[string]string),
	}
}

func linkKey(provider, subject string) string { return provider + "|" + subject }

func (s *InMemoryAccountStore) Create(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(acct)
}

func (s *InMemoryAccountStore) createLocked(acct Account) error {
	email := strings.ToLower(acct.Email)
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("account %s: %w", email, sentinel.ErrConflict)
	}
	stored := acct
	stored.PasswordHash = append([]byte(nil), acct.PasswordHash...)
	s.byID[acct.UID] = &stored
	s.byEmail[email] = acct.UID
	return nil
}

func (s *InMemoryAccountStore) CreateLinked(_ context.Context, acct Account, provider, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[linkKey(provider, subject)]; ok {
		return fmt.Errorf("identity %s: %w", provider, sentinel.ErrConflict)
	}
	if err := s.createLocked(acct); err != nil {
		return err
	}
	s.links[linkKey(provider, subject)] = acct.UID
	return nil
}

func (s *InMemoryAccountStore) Link(_ context.Context, provider, subject, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[uid]; !ok {
		return fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	if owner, ok := s.links[linkKey(provider, subject)]; ok && owner != uid {
		return fmt.Errorf("identity %s: %w", provider, sentinel.ErrConflict)
	}
	s.links[linkKey(provider, subject)] = uid
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, uid string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(uid)
}

func (s *InMemoryAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, sentinel.ErrNotFound)
	}
	return s.copyOf(uid)
}

func (s *InMemoryAccountStore) FindByIdentity(_ context.Context, provider, subject string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.links[linkKey(provider, subject)]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", provider, sentinel.ErrNotFound)
	}
	return s.copyOf(uid)
}

func (s *InMemoryAccountStore) UpdatePassword(_ context.Context, uid string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[uid]
	if !ok {
		return fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	acct.PasswordHash = append([]byte(nil), hash...)
	return nil
}

func (s *InMemoryAccountStore) copyOf(uid string) (*Account, error) {
	acct, ok := s.byID[uid]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	out := *acct
	out.PasswordHash = append([]byte(nil), acct.PasswordHash...)
	return &out, nil
}
