package chat

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Factory builds a new conversation for a user.
type Factory func(ctx context.Context, userID string) (*Conversation, error)

// Registry keeps one Conversation per user and drops those idle longer than ttl.
type Registry struct {
	group   singleflight.Group
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
}

// NewRegistry creates a Registry. ttl <= 0 keeps conversations forever.
func NewRegistry(ttl time.Duration, factory Factory) *Registry {
	expiry, cleanup := ttl, ttl
	if ttl <= 0 {
		expiry, cleanup = cache.NoExpiration, 0
	}
	return &Registry{
		cache:   cache.New(expiry, cleanup),
		ttl:     expiry,
		factory: factory,
	}
}

// Get returns the user's conversation, creating it on first use. Each call
// extends the idle deadline. Concurrent first calls for one user share a
// single factory call; other users are not blocked by it.
func (r *Registry) Get(ctx context.Context, userID string) (*Conversation, error) {
	if conv, ok := r.touch(userID); ok {
		return conv, nil
	}

	v, err, _ := r.group.Do(userID, func() (interface{}, error) {
		if conv, ok := r.touch(userID); ok {
			return conv, nil
		}
		conv, err := r.factory(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.cache.Set(userID, conv, r.ttl)
		return conv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conversation), nil
}

func (r *Registry) touch(userID string) (*Conversation, bool) {
	v, ok := r.cache.Get(userID)
	if !ok {
		return nil, false
	}
	conv := v.(*Conversation)
	r.cache.Set(userID, conv, r.ttl)
	return conv, true
}

// Peek returns the user's conversation if it is live, without creating it
// or extending its deadline.
func (r *Registry) Peek(userID string) (*Conversation, bool) {
	v, ok := r.cache.Get(userID)
	if !ok {
		return nil, false
	}
	return v.(*Conversation), true
}

// Drop forgets the user's conversation.
func (r *Registry) Drop(userID string) {
	r.cache.Delete(userID)
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
