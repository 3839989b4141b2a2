// Package ratelimit caps the number of AI requests a single run may issue.
package ratelimit

import (
	"fmt"
	"sync"
)

// Limiter is a per-run request budget. A max of 0 means unlimited.
type Limiter struct {
	mu     sync.Mutex
	used   int
	max    int
	hits   int
	misses int
}

func New(max int) *Limiter {
	return &Limiter{max: max}
}

// Allow reports whether another request fits in the budget.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max <= 0 || l.used < l.max
}

// Use consumes one request from the budget.
func (l *Limiter) Use() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.used >= l.max {
		return fmt.Errorf("ai request budget exhausted (%d/%d)", l.used, l.max)
	}
	l.used++
	l.misses++
	return nil
}

// RecordCacheHit notes that a cached response saved a request.
func (l *Limiter) RecordCacheHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits++
}

// Stats returns usage counters for end-of-run logging.
func (l *Limiter) Stats() (used, max, cacheHits, cacheMisses int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used, l.max, l.hits, l.misses
}
