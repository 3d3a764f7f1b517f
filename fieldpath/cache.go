package fieldpath

import "github.com/wkalt/dynconn/util"

// DefaultCacheSize is the number of parsed paths retained by NewCache when no
// size is given.
const DefaultCacheSize = 1024

// Cache memoizes parsed paths. Parse errors are not cached.
type Cache struct {
	lru *util.LRU[string, Path]
}

// NewCache returns a cache holding up to size parsed paths.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{lru: util.NewLRU[string, Path](size)}
}

// Parse returns the parsed form of text, consulting the cache first. The
// returned path is a private copy and may be modified by the caller.
func (c *Cache) Parse(text string) (Path, error) {
	if path, ok := c.lru.Get(text); ok {
		return path.clone(), nil
	}
	path, err := Parse(text)
	if err != nil {
		return nil, err
	}
	c.lru.Put(text, path.clone())
	return path, nil
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	return c.lru.Len()
}
