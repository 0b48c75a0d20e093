package cache

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"pastebox/pkg/domain"
)

// LRU keeps recently touched pastes in memory. Pastes are immutable and
// never deleted, so entries carry no expiry and there is no invalidation
// path; eviction is by capacity only.
type LRU struct {
	c  *lru.Cache[string, *domain.Paste]
	mu sync.Mutex
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if size > 100000 {
		return nil, errors.New("cache size too large")
	}
	c, err := lru.New[string, *domain.Paste](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}
func (l *LRU) Get(id string) *domain.Paste {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.c.Get(id)
	if !ok {
		return nil
	}
	return p
}
func (l *LRU) Set(p *domain.Paste) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Add(p.ID, p)
}
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}
