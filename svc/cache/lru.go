package cache

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Render is an LRU of rendered paste pages keyed by id+content hash.
// Paste content is immutable, so entries never go stale; commit ids are
// deliberately not cached anywhere.
type Render struct {
	c *lru.Cache[string, string]
}

func NewRender(size int) (*Render, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Render{c: c}, nil
}

func key(id, sha string) string {
	return id + ":" + sha
}

func (r *Render) Get(id, sha string) (string, bool) {
	return r.c.Get(key(id, sha))
}

func (r *Render) Set(id, sha, html string) {
	r.c.Add(key(id, sha), html)
}
