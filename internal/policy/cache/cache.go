// Package cache memoizes compiled policy sets keyed by their source text.
// Statements are immutable and snapshot-independent, so a compiled set can
// be reused across any number of verification runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/flowvet/flowvet/internal/policy"
)

type InMemory struct {
	mu    sync.RWMutex
	max   int
	items map[string][]policy.Statement
}

func NewInMemory(max int) *InMemory {
	return &InMemory{
		max:   max,
		items: make(map[string][]policy.Statement, max),
	}
}

// GetOrCompute returns the cached statement set for the source text, or
// compiles it via fn. Concurrent callers for the same key share one
// compilation; errors are not cached.
func (c *InMemory) GetOrCompute(source string, fn func() ([]policy.Statement, error)) ([]policy.Statement, error) {
	key := hash(source)

	c.mu.RLock()
	if v, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		return v, nil
	}

	stmts, err := compute(fn)
	if err != nil {
		return nil, err
	}

	if len(c.items) < c.max {
		c.items[key] = stmts
	}

	return stmts, nil
}

// compute runs fn with panics converted into errors so a poisoned policy
// source cannot take the process down or wedge waiters.
func compute(fn func() ([]policy.Statement, error)) (stmts []policy.Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy compilation panicked: %v", r)
		}
	}()
	return fn()
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
