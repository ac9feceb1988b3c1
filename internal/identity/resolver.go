// Package identity maps external phone numbers to canonical user records.
package identity

import (
	"context"
	"fmt"

	"github.com/smsbridge/smsbridge/internal/domain"
	"github.com/smsbridge/smsbridge/internal/logging"
)

// UserStore is the persistence contract the resolver depends on. SaveUser
// must be idempotent under concurrent saves of the same key: the first
// write wins and later writes are no-ops, so a race between two inbound
// messages from an unseen number still yields exactly one stored user.
type UserStore interface {
	// GetUser returns the user stored under key, or nil when absent.
	GetUser(ctx context.Context, key string) (*domain.User, error)
	// SaveUser persists a user under key.
	SaveUser(ctx context.Context, key string, u domain.User) error
}

// Resolver resolves carrier phone numbers to user records, creating a
// placeholder record on first contact.
type Resolver struct {
	store    UserStore
	platform string
	log      *logging.Logger
}

// NewResolver creates an identity resolver for one platform.
func NewResolver(store UserStore, platform string, log *logging.Logger) *Resolver {
	return &Resolver{store: store, platform: platform, log: log.Sub("identity")}
}

// Key returns the store key for an external number. Stored records are
// namespaced by platform; the ID returned to callers is the bare number.
func (r *Resolver) Key(number string) string {
	return r.platform + ":" + number
}

// GetOrCreate looks up the user for an external number, creating a
// placeholder record if none exists. The returned user always carries the
// bare number as its ID regardless of the namespaced store key.
func (r *Resolver) GetOrCreate(ctx context.Context, number string) (domain.User, error) {
	key := r.Key(number)

	existing, err := r.store.GetUser(ctx, key)
	if err != nil {
		return domain.User{}, fmt.Errorf("identity: looking up %s: %w", key, err)
	}
	if existing != nil {
		u := *existing
		u.ID = number
		return u, nil
	}

	u := domain.User{
		ID:        number,
		FirstName: "Unknown",
		LastName:  "Unknown",
		Platform:  r.platform,
		Number:    number,
	}
	if err := r.store.SaveUser(ctx, key, u); err != nil {
		return domain.User{}, fmt.Errorf("identity: creating %s: %w", key, err)
	}
	r.log.Debug().Str("number", number).Msg("user created")

	// Re-read so a concurrent creation race still returns the single
	// committed record.
	committed, err := r.store.GetUser(ctx, key)
	if err != nil {
		return domain.User{}, fmt.Errorf("identity: re-reading %s: %w", key, err)
	}
	if committed != nil {
		u = *committed
		u.ID = number
	}
	return u, nil
}
