package formstate

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

// DefaultCacheLimit is the validation cache ceiling. When a change pass
// leaves the cache above the ceiling, Cleanup truncates it to the newest
// half of the ceiling.
const DefaultCacheLimit = 100

type cacheKey struct {
	field string
	value string
}

// validationCache memoizes validator results keyed by (field, stringified
// value). Insertion order is tracked so that Cleanup can drop the oldest
// entries in one sweep instead of evicting per insert.
type validationCache struct {
	mu      sync.Mutex
	limit   int
	entries map[cacheKey]error
	order   []cacheKey
}

func newValidationCache(limit int) *validationCache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &validationCache{
		limit:   limit,
		entries: make(map[cacheKey]error),
	}
}

func (c *validationCache) get(field, value string) (error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err, ok := c.entries[cacheKey{field, value}]
	return err, ok
}

func (c *validationCache) put(field, value string, result error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{field, value}
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = result
}

// cleanup truncates the cache to the newest limit/2 entries when the limit
// is exceeded. Reports whether a truncation happened.
func (c *validationCache) cleanup() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) <= c.limit {
		return false
	}
	keep := c.limit / 2
	drop := c.order[:len(c.order)-keep]
	for _, key := range drop {
		delete(c.entries, key)
	}
	c.order = append(c.order[:0], c.order[len(c.order)-keep:]...)
	return true
}

func (c *validationCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]error)
	c.order = nil
}

func (c *validationCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// stringify produces the cache-key representation of a field value. Strings
// pass through unchanged; everything else goes through sonic so that equal
// values share a key regardless of how the UI binding produced them.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	out, err := sonic.MarshalString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}
