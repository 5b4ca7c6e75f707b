package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNoKey is returned when the context carries no state key and the store
// was built without a fallback.
var ErrNoKey = errors.New("store: state key not found in context")

type stateKeyContext struct{}

const defaultStateKey = "default"

// WithStateKey sets a routing key for state storage in the context,
// typically the screen or session the form belongs to.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the routing key from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(stateKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

func stateKeyOrDefault(ctx context.Context) (string, bool) {
	key, ok := StateKeyFromContext(ctx)
	if ok && key != "" {
		return key, true
	}
	return defaultStateKey, true
}

// Cache is the storage a Store writes snapshots through. Implementations
// must be safe for concurrent use; a Redis- or file-backed cache plugs in
// here without the Store noticing.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryCache keeps snapshots in a process-local map. Drafts saved here do
// not survive a restart, which is usually what a form draft wants.
type MemoryCache[S any] struct {
	mu      sync.RWMutex
	entries map[string]S
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return &MemoryCache[S]{entries: make(map[string]S)}
}

func (c *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = val
	return nil
}

func (c *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *MemoryCache[S]) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok, nil
}

// Store namespaces a Cache and routes keys through the context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     func(ctx context.Context) (string, bool)
}

// NewStore wraps core under a namespace. A nil keyFn falls back to the
// context state key (or "default").
func NewStore[S any](core Cache[S], namespace string, keyFn func(ctx context.Context) (string, bool)) Store[S] {
	if keyFn == nil {
		keyFn = stateKeyOrDefault
	}
	return Store[S]{
		core:      core,
		namespace: namespace,
		keyFn:     keyFn,
	}
}

func (c Store[S]) key(ctx context.Context) (string, bool) {
	key, exist := c.keyFn(ctx)
	if !exist {
		return "", false
	}
	return c.namespace + ":" + key, true
}

func (c Store[S]) Set(ctx context.Context, val S) error {
	key, ok := c.key(ctx)
	if !ok {
		return ErrNoKey
	}
	return c.core.Set(ctx, key, val)
}

func (c Store[S]) Get(ctx context.Context) (S, bool, error) {
	key, ok := c.key(ctx)
	if !ok {
		var zero S
		return zero, false, ErrNoKey
	}
	return c.core.Get(ctx, key)
}

func (c Store[S]) Del(ctx context.Context) error {
	key, ok := c.key(ctx)
	if !ok {
		return ErrNoKey
	}
	return c.core.Del(ctx, key)
}

func (c Store[S]) Exists(ctx context.Context) (bool, error) {
	key, ok := c.key(ctx)
	if !ok {
		return false, ErrNoKey
	}
	return c.core.Exists(ctx, key)
}
