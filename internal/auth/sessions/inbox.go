package sessions

import (
	"context"
	"sync"

	"portal/internal/auth/models"
)

const inboxCapacity = 16

// Inbox collects notifications for a client until they are drained by the
// next response. When full the oldest notification is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []models.Notification
}

func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify implements coordinator.Notifier.
func (b *Inbox) Notify(_ context.Context, n models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == inboxCapacity {
		b.items = b.items[1:]
	}
	b.items = append(b.items, n)
}

// Drain returns pending notifications in arrival order and empties the inbox.
func (b *Inbox) Drain() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	if out == nil {
		return []models.Notification{}
	}
	return out
}
