package session

import (
	"strings"
	"sync"
)

// HeaderCache exposes header values copied out of previously observed
// requests to the marketplace API. The resolver only reads it; whatever
// captures traffic (the cURL parser, a proxy, ...) writes it.
type HeaderCache interface {
	Get(name string) (string, bool)
}

// MapCache is an in-memory HeaderCache. Header names are matched
// case-insensitively the way HTTP headers are.
type MapCache struct {
	headers map[string]string
	mu      sync.RWMutex
}

func NewMapCache() *MapCache {
	return &MapCache{
		headers: make(map[string]string),
	}
}

func (c *MapCache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.headers[canonical(name)]
	return v, ok
}

func (c *MapCache) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[canonical(name)] = value
}

// SetAll copies every header into the cache.
func (c *MapCache) SetAll(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range headers {
		c.headers[canonical(k)] = v
	}
}

func (c *MapCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.headers, canonical(name))
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
