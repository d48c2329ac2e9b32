package iconpool

import (
	"image"
	"sync"
)

// Cache keeps the images delivered for the newest listing generation.
// A result from a newer generation empties it; older ones are ignored.
type Cache struct {
	mu     sync.RWMutex
	gen    uint64
	images map[string]image.Image
	failed int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{images: make(map[string]image.Image)}
}

// Put stores r. It reports whether r belonged to the cached generation.
func (c *Cache) Put(r Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case r.Gen < c.gen:
		return false
	case r.Gen > c.gen:
		c.gen = r.Gen
		c.images = make(map[string]image.Image)
		c.failed = 0
	}
	if r.Err != nil || r.Image == nil {
		c.failed++
		return true
	}
	c.images[r.Name] = r.Image
	return true
}

// Get returns the image loaded for name under gen.
func (c *Cache) Get(gen uint64, name string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gen != c.gen {
		return nil, false
	}
	img, ok := c.images[name]
	return img, ok
}

// Len returns the number of images and failed loads for the cached
// generation.
func (c *Cache) Len() (loaded, failed int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images), c.failed
}
