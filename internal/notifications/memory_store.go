package notifications

import (
	"context"
	"sync"

	"github.com/surveychain/backend/internal/models"
)

// MemoryStore keeps notifications in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]models.Notification
}

// NewMemoryStore creates an empty in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]models.Notification)}
}

// Add stores n under its recipient.
func (m *MemoryStore) Add(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[n.UserID] = append(m.byUser[n.UserID], n)
	return nil
}

// ListByUser returns a copy of the user's notifications, newest first.
func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.RLock()
	out := append([]models.Notification{}, m.byUser[userID]...)
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// MarkRead sets the read flag, or returns ErrNotFound when the user has no such notification.
func (m *MemoryStore) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

// ClearForUser removes every notification of the user.
func (m *MemoryStore) ClearForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
	return nil
}
