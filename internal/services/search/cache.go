package search

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aptihub/chatetl/internal/models"
)

// resultCache is an LRU+TTL cache of ranked result lists
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
}

type resultEntry struct {
	key        string
	results    []*models.SearchResult
	insertedAt time.Time
}

func newResultCache(maxEntries int, ttl time.Duration) *resultCache {
	return &resultCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// cacheKey renders the query into a stable string. The vector contributes
// a rounded fingerprint of its first 16 dimensions so that numerically
// identical queries hit the same entry.
func cacheKey(q *models.SearchQuery) string {
	types := make([]string, 0, len(q.DocTypes))
	for _, t := range q.DocTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)

	prefix := q.Vector
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	var fp strings.Builder
	for _, v := range prefix {
		fmt.Fprintf(&fp, "%.4f,", v)
	}

	return fmt.Sprintf("%s|%s|%.4f|%d|%s|%s|%s",
		q.UserID, q.Metric, q.Threshold, q.Limit, strings.Join(types, ","), q.Ranking, fp.String())
}

func (c *resultCache) get(key string) ([]*models.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*resultEntry)
	if time.Since(entry.insertedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.results, true
}

func (c *resultCache) put(key string, results []*models.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*resultEntry)
		entry.results = results
		entry.insertedAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*resultEntry).key)
	}

	c.entries[key] = c.order.PushFront(&resultEntry{
		key:        key,
		results:    results,
		insertedAt: time.Now(),
	})
}

func (c *resultCache) invalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := userID + "|"
	for key, elem := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.order.Remove(elem)
			delete(c.entries, key)
		}
	}
}
