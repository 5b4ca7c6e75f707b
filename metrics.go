package formstate

// Metrics is a read-only snapshot of the engine's internal counters.
type Metrics struct {
	// ValidationCounts is the number of validator invocations per field
	// (cache hits do not count).
	ValidationCounts map[string]int `json:"validation_counts"`
	CacheHits        int            `json:"cache_hits"`
	CacheSize        int            `json:"cache_size"`
	CacheClears      int            `json:"cache_clears"`
	CacheCleanups    int            `json:"cache_cleanups"`
}

type counters struct {
	validations   map[string]int
	cacheHits     int
	cacheClears   int
	cacheCleanups int
}

func newCounters() *counters {
	return &counters{validations: make(map[string]int)}
}

func (c *counters) snapshot(cacheSize int) Metrics {
	counts := make(map[string]int, len(c.validations))
	for name, n := range c.validations {
		counts[name] = n
	}
	return Metrics{
		ValidationCounts: counts,
		CacheHits:        c.cacheHits,
		CacheSize:        cacheSize,
		CacheClears:      c.cacheClears,
		CacheCleanups:    c.cacheCleanups,
	}
}
