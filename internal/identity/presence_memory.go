package identity

import (
	"context"
	"sync"

	"portal/internal/auth/models"
)

// InMemoryPresence tracks presence in process and delivers notifications
// synchronously on the writing goroutine. Deliveries for one client key are
// serialized so its subscribers observe changes in write order; other keys
// deliver independently. Callbacks must not write presence.
type InMemoryPresence struct {
	locksMu sync.Mutex
	locks   map[string]*deliveryLock

	mu      sync.RWMutex
	current map[string]models.Principal
	byUser  map[string]map[string]struct{}
	subs    map[string]map[uint64]func(*models.Principal)
	nextSub uint64
}

func NewInMemoryPresence() *InMemoryPresence {
	return &InMemoryPresence{
		locks:   make(map[string]*deliveryLock),
		current: make(map[string]models.Principal),
		byUser:  make(map[string]map[string]struct{}),
		subs:    make(map[string]map[uint64]func(*models.Principal)),
	}
}

func (s *InMemoryPresence) Get(_ context.Context, clientKey string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.current[clientKey]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *InMemoryPresence) Set(_ context.Context, clientKey string, p models.Principal) error {
	defer s.lockKey(clientKey)()

	s.mu.Lock()
	if prev, ok := s.current[clientKey]; ok && prev.UID != p.UID {
		s.forgetLocked(prev.UID, clientKey)
	}
	s.current[clientKey] = p
	keys, ok := s.byUser[p.UID]
	if !ok {
		keys = make(map[string]struct{})
		s.byUser[p.UID] = keys
	}
	keys[clientKey] = struct{}{}
	fns := s.subscribersLocked(clientKey)
	s.mu.Unlock()

	for _, fn := range fns {
		pc := p
		fn(&pc)
	}
	return nil
}

func (s *InMemoryPresence) Clear(_ context.Context, clientKey string) error {
	defer s.lockKey(clientKey)()
	s.clear(clientKey)
	return nil
}

func (s *InMemoryPresence) ClearUser(_ context.Context, uid string) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.byUser[uid]))
	for k := range s.byUser[uid] {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	for _, k := range keys {
		unlock := s.lockKey(k)
		s.clear(k)
		unlock()
	}
	return nil
}

func (s *InMemoryPresence) clear(clientKey string) {
	s.mu.Lock()
	prev, ok := s.current[clientKey]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.current, clientKey)
	s.forgetLocked(prev.UID, clientKey)
	fns := s.subscribersLocked(clientKey)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

func (s *InMemoryPresence) Subscribe(ctx context.Context, clientKey string, fn func(*models.Principal)) (func(), error) {
	defer s.lockKey(clientKey)()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[clientKey] == nil {
		s.subs[clientKey] = make(map[uint64]func(*models.Principal))
	}
	s.subs[clientKey][id] = fn
	s.mu.Unlock()

	current, _ := s.Get(ctx, clientKey)
	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[clientKey], id)
			if len(s.subs[clientKey]) == 0 {
				delete(s.subs, clientKey)
			}
		})
	}, nil
}

func (s *InMemoryPresence) forgetLocked(uid, clientKey string) {
	keys := s.byUser[uid]
	delete(keys, clientKey)
	if len(keys) == 0 {
		delete(s.byUser, uid)
	}
}

func (s *InMemoryPresence) subscribersLocked(clientKey string) []func(*models.Principal) {
	out := make([]func(*models.Principal), 0, len(s.subs[clientKey]))
	for _, fn := range s.subs[clientKey] {
		out = append(out, fn)
	}
	return out
}

type deliveryLock struct {
	mu   sync.Mutex
	refs int
}

// lockKey takes the delivery lock of clientKey and returns its release.
func (s *InMemoryPresence) lockKey(clientKey string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[clientKey]
	if !ok {
		l = &deliveryLock{}
		s.locks[clientKey] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, clientKey)
		}
		s.locksMu.Unlock()
	}
}
