package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// exportedEntry is the serialized form of a live entry.
type exportedEntry struct {
	Key       string          `json:"key"`
	Class     Class           `json:"class"`
	CreatedAt time.Time       `json:"createdAt"`
	TTL       time.Duration   `json:"ttl"`
	Data      json.RawMessage `json:"data"`
}

// Export serializes every live entry as JSON.
func (c *TTLCache) Export() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]exportedEntry, 0, len(c.entries))
	for key, e := range c.entries {
		if e.expired(now) {
			continue
		}
		data, err := json.Marshal(e.data)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		out = append(out, exportedEntry{
			Key:       key,
			Class:     e.class,
			CreatedAt: e.createdAt,
			TTL:       e.ttl,
			Data:      data,
		})
	}
	return json.Marshal(out)
}

// Import loads entries produced by Export, skipping those already expired.
// It returns the number of entries imported.
func (c *TTLCache) Import(data []byte) (int, error) {
	var in []exportedEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, fmt.Errorf("import cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	imported := 0
	for _, ex := range in {
		e := &cacheEntry{
			data:      ex.Data,
			class:     ex.Class,
			createdAt: ex.CreatedAt,
			ttl:       ex.TTL,
		}
		if ex.Key == "" || e.ttl <= 0 || e.expired(now) {
			continue
		}
		c.entries[ex.Key] = e
		imported++
	}
	c.metrics.SetCacheEntries(len(c.entries))
	return imported, nil
}
