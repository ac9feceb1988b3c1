package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smsbridge/smsbridge/internal/domain"
)

// MemoryUserStore is an in-memory identity.UserStore for tests and the
// "memory" store driver.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]domain.User)}
}

// GetUser returns the user stored under key, or nil when absent.
func (s *MemoryUserStore) GetUser(ctx context.Context, key string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[key]; ok {
		copied := u
		return &copied, nil
	}
	return nil, nil
}

// SaveUser persists a user under key. First write wins, matching the
// SQLite store's conflict behavior.
func (s *MemoryUserStore) SaveUser(ctx context.Context, key string, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; !ok {
		s.users[key] = u
	}
	return nil
}

// Count returns the number of stored users.
func (s *MemoryUserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// MemoryDeliveryLog is an in-memory delivery log for tests and the
// "memory" store driver.
type MemoryDeliveryLog struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewMemoryDeliveryLog creates an empty in-memory delivery log.
func NewMemoryDeliveryLog() *MemoryDeliveryLog {
	return &MemoryDeliveryLog{}
}

// Record appends one delivery attempt.
func (l *MemoryDeliveryLog) Record(ctx context.Context, d Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	l.deliveries = append(l.deliveries, d)
	return nil
}

// Recent returns the most recent delivery attempts, newest first.
func (l *MemoryDeliveryLog) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]Delivery, 0, limit)
	for i := len(l.deliveries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.deliveries[i])
	}
	return out, nil
}
