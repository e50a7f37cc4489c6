package youtube

import (
	"fmt"
	"regexp"
	"sync/atomic"
)

// KeyPool rotates among API keys when one exhausts its daily quota. The
// cursor is shared by every in-flight request: once a key is burned,
// all subsequent calls start from its successor. State lives only in
// memory; a restart begins again at the first key.
type KeyPool struct {
	keys   []string
	cursor atomic.Int64
}

// API keys are 35-45 chars of [A-Za-z0-9_-].
var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{35,45}$`)

// ValidAPIKey reports whether key has the shape of a YouTube API key.
func ValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// NewKeyPool builds a pool from the given keys, in order.
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key pool requires at least one API key")
	}
	return &KeyPool{keys: keys}, nil
}

// Current returns the key at the cursor.
func (p *KeyPool) Current() string {
	return p.keys[p.Index()]
}

// Advance moves the cursor to the next key, wrapping around.
func (p *KeyPool) Advance() {
	p.cursor.Add(1)
}

// Index returns the cursor as a valid index into the pool.
func (p *KeyPool) Index() int {
	return int(p.cursor.Load() % int64(len(p.keys)))
}

// Len returns the pool size.
func (p *KeyPool) Len() int {
	return len(p.keys)
}
